package main

import (
	"context"
	"os"

	"github.com/aretw0/tripgate"
	"github.com/aretw0/tripgate/internal/cli"
	"github.com/aretw0/tripgate/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Plan a trip interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		headless, _ := cmd.Flags().GetBool("headless")
		conversationID, _ := cmd.Flags().GetString("conversation")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		stack, err := cli.BuildStack(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		r := tripgate.NewRunner()
		r.Input = cli.NewInterruptibleReader(os.Stdin, ctx.Done())
		r.Output = os.Stdout
		r.Headless = headless || !tui.IsTerminal(os.Stdin)
		r.ConversationID = conversationID
		if cmd.Flags().Changed("user") {
			uid, _ := cmd.Flags().GetInt64("user")
			r.UserID = &uid
		}
		if !r.Headless {
			tui.PrintBanner(os.Stdout)
			r.Renderer = tui.NewRenderer()
			if conversationID != "" {
				cli.PrintSystemMessage(os.Stdout, "%s", tui.Status("Resuming conversation %s", conversationID))
			}
		}

		return cli.HandleExecutionError(r.Run(ctx, stack.Engine))
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("headless", false, "Plain output without banner or markdown rendering")
	chatCmd.Flags().String("conversation", "", "Continue an existing conversation")
	chatCmd.Flags().Int64("user", 0, "Numeric user ID recorded on the conversation")
}
