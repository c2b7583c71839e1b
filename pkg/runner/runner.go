package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/turnstack/internal/logging"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/google/uuid"
)

// Chat loop commands.
const (
	CommandQuit  = "/quit"
	CommandExit  = "/exit"
	CommandReset = "/reset"
	CommandStack = "/stack"
)

// Runner drives a single conversation from an IOHandler: it reads a line, dispatches
// it as a turn and prints the replies, until the input ends or the user quits.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on Stdin/Stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// ConversationID is the conversation to resume or start. Defaults to a random id.
	ConversationID string

	// Greet sends a conversationUpdate activity before reading any input.
	Greet bool

	dispatcher *Dispatcher
}

// NewRunner creates a chat loop over the dispatcher.
func NewRunner(dispatcher *Dispatcher, opts ...Option) *Runner {
	r := &Runner{dispatcher: dispatcher}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.ConversationID == "" {
		r.ConversationID = uuid.NewString()
	}
	return r
}

// Run executes the loop. It returns nil on end of input, on /quit, on Ctrl+C and when
// ctx is cancelled; any other error aborts the loop.
func (r *Runner) Run(ctx context.Context) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	r.Logger.Info("Chat started", "conversation_id", r.ConversationID)

	if r.Greet {
		greeting := domain.Activity{
			Type:           domain.ActivityConversationUpdate,
			ConversationID: r.ConversationID,
		}
		if err := r.turn(ctx, greeting); err != nil {
			return err
		}
	}

	for {
		text, err := r.Handler.Input(signals.Context())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			signals.CheckRace()
			if signals.Interrupted() {
				_ = r.Handler.SystemOutput(ctx, "Interrupted.")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		switch strings.TrimSpace(text) {
		case CommandQuit, CommandExit:
			return nil
		case CommandReset:
			if err := r.dispatcher.Reset(ctx, r.ConversationID); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			_ = r.Handler.SystemOutput(ctx, "Conversation reset.")
			continue
		case CommandStack:
			path, err := r.dispatcher.Stack(ctx, r.ConversationID)
			if err != nil {
				return fmt.Errorf("stack inspection failed: %w", err)
			}
			_ = r.Handler.SystemOutput(ctx, "Stack: "+formatPath(path))
			continue
		}

		if err := r.turn(ctx, domain.NewMessage(r.ConversationID, text)); err != nil {
			return err
		}
	}
}

func (r *Runner) turn(ctx context.Context, activity domain.Activity) error {
	reply, err := r.dispatcher.Dispatch(ctx, activity)
	if err != nil {
		if errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) {
			// User Feedback: Prompt retry
			return r.Handler.SystemOutput(ctx, fmt.Sprintf("Error: %v. Please try again.", err))
		}
		return fmt.Errorf("turn failed: %w", err)
	}

	if err := r.Handler.Output(ctx, reply); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	r.Logger.Debug("Turn rendered",
		"conversation_id", reply.ConversationID,
		"status", reply.Status,
		"path", reply.Path,
	)
	return nil
}

func formatPath(path []string) string {
	if len(path) == 0 {
		return "(empty)"
	}
	return strings.Join(path, " > ")
}
