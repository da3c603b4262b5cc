package tripgate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/router"
)

// Runner drives a chat loop against an Engine using the provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
	UserID   *int64
	// ConversationID resumes an existing conversation when set.
	ConversationID string
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner. Input and Output must be set before Run.
func NewRunner() *Runner {
	return &Runner{}
}

// Run reads one query per line until EOF or "exit".
// A turn after a clarification continues the pending episode.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)
	writer := r.Output

	if !r.Headless {
		fmt.Fprintln(writer, "--- tripgate chat ---")
	}

	conversationID := r.ConversationID
	mode := router.ModeQuery
	if conversationID != "" {
		mode = router.ModeResume
	}

	for {
		if !r.Headless {
			fmt.Fprint(writer, "> ")
		}
		text, err := lineReader.ReadString('\n')
		input := strings.TrimSpace(text)
		if err != nil && err != io.EOF {
			return fmt.Errorf("input error: %w", err)
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(writer, "Bye!")
			return nil
		}
		if input != "" {
			reply, askErr := engine.Ask(ctx, router.Request{
				Query:          input,
				UserID:         r.UserID,
				ConversationID: conversationID,
				Mode:           mode,
			})
			if askErr != nil {
				return fmt.Errorf("turn error: %w", askErr)
			}
			conversationID = reply.ConversationID
			if reply.Outcome == domain.OutcomeClarification {
				mode = router.ModeResume
			} else {
				mode = router.ModeQuery
			}
			r.print(writer, reply)
		}
		if err == io.EOF {
			return nil
		}
	}
}

func (r *Runner) print(w io.Writer, reply *Reply) {
	content := strings.Join(reply.Text(), "\n\n")
	if final := reply.Last(domain.EventFinalItinerary); final != nil {
		if md, err := ItineraryMarkdown(final.Payload); err == nil {
			content = md + "\n\n" + content
		}
	}
	if r.Renderer != nil {
		if rendered, err := r.Renderer(content); err == nil {
			content = rendered
		}
	}
	fmt.Fprintln(w, strings.TrimSpace(content))
}

// ItineraryMarkdown renders a final_itinerary payload as a Markdown outline.
func ItineraryMarkdown(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var body struct {
		Itinerary struct {
			TripProfile struct {
				DestinationCity string `json:"destination_city"`
			} `json:"trip_profile"`
			Days []struct {
				DayIndex int `json:"day_index"`
				Slots    []struct {
					Slot     string `json:"slot"`
					Activity string `json:"activity"`
				} `json:"slots"`
			} `json:"days"`
		} `json:"itinerary"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s · %d 天\n", body.Itinerary.TripProfile.DestinationCity, len(body.Itinerary.Days))
	for _, day := range body.Itinerary.Days {
		fmt.Fprintf(&sb, "\n## 第 %d 天\n", day.DayIndex)
		for _, slot := range day.Slots {
			fmt.Fprintf(&sb, "- **%s** %s\n", slot.Slot, slot.Activity)
		}
	}
	return sb.String(), nil
}
