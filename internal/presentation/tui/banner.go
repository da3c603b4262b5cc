package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the tripgate banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _       _                   _       ", "#34d399"},
		{"| |_ _ _(_)_ __  __ _ __ _ _| |_ ___ ", "#2dd4bf"},
		{"|  _| '_| | '_ \\/ _` / _` |  _/ -_)", "#22d3ee"},
		{" \\__|_| |_| .__/\\__, \\__,_|\\__\\___|", "#38bdf8"},
		{"          |_|   |___/               ", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Status renders a dim one-line status such as the active conversation ID.
func Status(format string, args ...any) string {
	return termenv.String(fmt.Sprintf(format, args...)).Faint().String()
}
