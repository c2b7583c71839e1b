package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/turnstack"
	"github.com/aretw0/turnstack/internal/presentation/tui"
	"github.com/aretw0/turnstack/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot in the terminal",
	Long: `Starts an interactive conversation with the configured bot.
Commands: /reset clears the conversation, /stack shows the active dialogs, /quit exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		conversationID, _ := cmd.Flags().GetString("conversation")
		jsonMode, _ := cmd.Flags().GetBool("json")

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			var opts []runner.TextHandlerOption
			if runner.IsTerminal(os.Stdout) {
				tui.PrintBanner(os.Stdout, turnstack.Version)
				if render, err := tui.NewRenderer(80); err == nil {
					opts = append(opts, runner.WithTextHandlerRenderer(render))
				} else {
					a.logger.Warn("Markdown rendering disabled", "err", err)
				}
			}
			handler = runner.NewTextHandler(os.Stdin, os.Stdout, opts...)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := runner.NewRunner(a.dispatcher,
			runner.WithLogger(a.logger),
			runner.WithInputHandler(handler),
			runner.WithConversationID(conversationID),
			runner.WithGreeting(!jsonMode),
		)
		return r.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("conversation", "c", "", "Conversation to resume (default: a new random id)")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
}
