package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tripgate/internal/cli"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Manage open clarification episodes",
	Long:  `List, inspect, and remove the pending clarification episodes of the configured backend.
With the memory backend every process starts empty, so this is mostly useful with redis.`,
}

var pendingLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List conversations waiting for clarification",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		ids, err := stack.Engine.ListPending(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing episodes: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No pending episodes found.")
			return nil
		}
		fmt.Fprintln(out, "Pending Episodes:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var pendingInspectCmd = &cobra.Command{
	Use:   "inspect <conversation-id>",
	Short: "Inspect the pending episode of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		ep, err := stack.Engine.Pending(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading episode '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(ep, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling episode: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var pendingRmCmd = &cobra.Command{
	Use:   "rm <conversation-id>...",
	Short: "Remove one or more pending episodes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		failed := 0
		for _, id := range args {
			if err := stack.Engine.ClearPending(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed episode '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d episode(s) could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.AddCommand(pendingLsCmd)
	pendingCmd.AddCommand(pendingInspectCmd)
	pendingCmd.AddCommand(pendingRmCmd)
}

func openStack(cmd *cobra.Command) (*cli.Stack, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Metrics = false
	return cli.BuildStack(cmd.Context(), cfg, logger)
}
