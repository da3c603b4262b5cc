package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/tripgate"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tripgate",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tripgate version %s\n", strings.TrimSpace(tripgate.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
