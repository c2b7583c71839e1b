package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/turnstack/internal/presentation/graph"
	"github.com/aretw0/turnstack/pkg/state"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted conversations",
	Long:  `List, inspect, and remove the dialog stacks persisted in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored conversations",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		ids, err := conversationIDs(cmd, a)
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored conversations found.")
			return nil
		}

		fmt.Fprintln(out, "Stored Conversations:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	}),
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <conversation-id>",
	Short: "Inspect the dialog stack of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		conversationID := args[0]
		format, _ := cmd.Flags().GetString("format")

		snapshot, err := a.accessor.Get(cmd.Context(), state.ConversationRef(conversationID))
		if err != nil {
			return fmt.Errorf("loading conversation '%s': %w", conversationID, err)
		}
		if len(snapshot.Stack) == 0 {
			return fmt.Errorf("conversation '%s' has no stored stack", conversationID)
		}

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			data, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling stack: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case "mermaid":
			chart, err := graph.GenerateMermaid(snapshot)
			if err != nil {
				return err
			}
			fmt.Fprint(out, chart)
		default:
			return fmt.Errorf("unknown format %q, supported: json, mermaid", format)
		}
		return nil
	}),
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [conversation-id]...",
	Short: "Remove one or more conversations",
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) > 0) {
			return errors.New("pass conversation ids or --all, not both")
		}

		ids := args
		if all {
			var err error
			if ids, err = conversationIDs(cmd, a); err != nil {
				return fmt.Errorf("listing conversations: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		for _, id := range ids {
			if err := a.accessor.Delete(cmd.Context(), state.ConversationRef(id)); err != nil {
				errs = append(errs, fmt.Errorf("removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(out, "Removed conversation '%s'\n", id)
		}
		return errors.Join(errs...)
	}),
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionInspectCmd.Flags().String("format", "json", "Output format: json or mermaid")
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored conversation")
}

// withApp builds the runtime from the command's flags and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// conversationIDs lists the conversations holding a stack under the router's property.
func conversationIDs(cmd *cobra.Command, a *app) ([]string, error) {
	keys, err := a.sessions.List(cmd.Context())
	if err != nil {
		return nil, err
	}
	suffix := "/" + a.accessor.Property()

	var ids []string
	for _, key := range keys {
		if id, ok := strings.CutSuffix(key, suffix); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
