// Package menu implements the demo bot served by the turnstack binary: a menu of
// question flows, each one a waterfall of text prompts defined in configuration.
package menu

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/turnstack/internal/config"
	"github.com/aretw0/turnstack/internal/logging"
	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
)

// Global commands understood at any point of a conversation.
const (
	CommandCancel = "cancel"
	CommandMenu   = "menu"
)

// DialogRegistrar is anything dialogs can be added to, such as turnstack.Router.
type DialogRegistrar interface {
	AddDialog(d dialog.Dialog) error
}

// Bot is a turn handler that dispatches between configured flows.
type Bot struct {
	cfg    config.BotConfig
	logger *slog.Logger
}

// Option configures the Bot.
type Option func(*Bot)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// New creates a bot for the given flows.
func New(cfg config.BotConfig, opts ...Option) (*Bot, error) {
	if len(cfg.Flows) == 0 {
		return nil, fmt.Errorf("%w: menu bot needs at least one flow", domain.ErrInvalidArgument)
	}
	b := &Bot{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Register adds every flow waterfall and its prompts to r.
func (b *Bot) Register(r DialogRegistrar) error {
	for _, d := range b.Dialogs() {
		if err := r.AddDialog(d); err != nil {
			return err
		}
	}
	return nil
}

// Dialogs builds the dialogs backing the configured flows.
func (b *Bot) Dialogs() []dialog.Dialog {
	var out []dialog.Dialog
	for _, flow := range b.cfg.Flows {
		out = append(out, newFlow(flow))
		for _, step := range flow.Steps {
			out = append(out, dialog.NewTextPrompt(promptID(flow, step), choiceValidator(step.Choices)))
		}
	}
	return out
}

// OnRunTurn routes one turn: global commands first, then the active flow, then the menu.
func (b *Bot) OnRunTurn(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
	tc := inner.TurnContext()
	activity := tc.Activity()
	text := strings.TrimSpace(activity.Text)

	if activity.Type == domain.ActivityConversationUpdate {
		if inner.ActiveDialog() == nil {
			if err := b.send(ctx, tc, b.cfg.Greeting, b.menu()); err != nil {
				return domain.TurnResult{}, err
			}
		}
		return domain.EndOfTurn, nil
	}

	switch strings.ToLower(text) {
	case CommandCancel:
		if inner.ActiveDialog() != nil {
			if _, err := inner.CancelAllDialogs(ctx); err != nil {
				return domain.TurnResult{}, err
			}
			b.logger.Debug("Flow cancelled", "conversation_id", tc.ConversationID())
		}
		return domain.EndOfTurn, b.send(ctx, tc, "Okay, cancelled.", b.menu())
	case CommandMenu:
		if inner.ActiveDialog() == nil {
			return domain.EndOfTurn, b.send(ctx, tc, b.menu())
		}
	}

	if inner.ActiveDialog() != nil {
		res, err := inner.ContinueDialog(ctx)
		if err != nil {
			return domain.TurnResult{}, err
		}
		if res.Status == domain.StatusWaiting {
			return res, nil
		}
		// The flow is over; stay alive and offer the menu again.
		return domain.EndOfTurn, b.send(ctx, tc, b.menu())
	}

	flow, ok := b.match(text)
	if !ok {
		return domain.EndOfTurn, b.send(ctx, tc, "Sorry, I didn't get that.", b.menu())
	}
	b.logger.Debug("Flow selected", "conversation_id", tc.ConversationID(), "flow", flow.ID)
	res, err := inner.BeginDialog(ctx, flow.ID, nil)
	if err != nil {
		return domain.TurnResult{}, err
	}
	if res.Status != domain.StatusWaiting {
		return domain.EndOfTurn, b.send(ctx, tc, b.menu())
	}
	return res, nil
}

// match resolves a menu choice by number, id or title.
func (b *Bot) match(text string) (config.FlowConfig, bool) {
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(b.cfg.Flows) {
		return b.cfg.Flows[n-1], true
	}
	for _, flow := range b.cfg.Flows {
		if strings.EqualFold(text, flow.ID) || strings.EqualFold(text, flow.Title) {
			return flow, true
		}
	}
	return config.FlowConfig{}, false
}

func (b *Bot) menu() string {
	var sb strings.Builder
	sb.WriteString(b.cfg.MenuPrompt)
	for i, flow := range b.cfg.Flows {
		title := flow.Title
		if title == "" {
			title = flow.ID
		}
		fmt.Fprintf(&sb, "\n%d. %s", i+1, title)
	}
	return sb.String()
}

func (b *Bot) send(ctx context.Context, tc *dialog.TurnContext, messages ...string) error {
	for _, msg := range messages {
		if msg == "" {
			continue
		}
		if err := tc.SendActivity(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
