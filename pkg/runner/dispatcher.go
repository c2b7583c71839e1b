package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/turnstack/internal/logging"
	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/session"
	"github.com/aretw0/turnstack/pkg/state"
	"github.com/google/uuid"
)

// Router is the part of turnstack.Router the transports depend on.
type Router interface {
	Run(ctx context.Context, tc *dialog.TurnContext) (domain.TurnResult, error)
	Path(ctx context.Context, conv state.Conversation) ([]string, error)
	Reset(ctx context.Context, conv state.Conversation) error
}

// Reply is what a transport hands back to its client after one turn.
type Reply struct {
	ConversationID string            `json:"conversation_id"`
	Status         domain.TurnStatus `json:"status"`
	Result         any               `json:"result,omitempty"`
	Responses      []string          `json:"responses"`
	Path           []string          `json:"path"`
}

// Dispatcher is the shared inbound pipeline of every transport (chat loop, HTTP, MCP):
// normalize and sanitize the activity, take the conversation's turn lock, run the
// router and collect the replies.
type Dispatcher struct {
	router   Router
	sessions *session.Manager
	logger   *slog.Logger
	sender   func(conversationID string) dialog.SendFunc
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithSenderFactory streams replies of a conversation as they are sent, e.g. to a terminal.
func WithSenderFactory(fn func(conversationID string) dialog.SendFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.sender = fn
	}
}

// NewDispatcher creates a dispatcher. A nil sessions manager gets an in-process one.
func NewDispatcher(router Router, sessions *session.Manager, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		router:   router,
		sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sessions == nil {
		d.sessions = session.NewManager(nil, session.WithLogger(d.logger))
	}
	return d
}

// Dispatch processes one inbound activity as a turn.
func (d *Dispatcher) Dispatch(ctx context.Context, activity domain.Activity) (*Reply, error) {
	if activity.ConversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", domain.ErrInvalidArgument)
	}
	if activity.Type == "" {
		activity.Type = domain.ActivityMessage
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}
	if activity.Type == domain.ActivityMessage {
		clean, err := SanitizeInput(activity.Text)
		if err != nil {
			d.logger.Warn("Input rejected",
				"conversation_id", activity.ConversationID,
				"size", len(activity.Text),
				"err", err,
			)
			return nil, err
		}
		activity.Text = clean
	}

	var opts []dialog.TurnOption
	if d.sender != nil {
		opts = append(opts, dialog.WithSender(d.sender(activity.ConversationID)))
	}
	tc := dialog.NewTurnContext(activity, opts...)

	reply := &Reply{ConversationID: activity.ConversationID}
	err := d.sessions.WithLock(ctx, activity.ConversationID, func(ctx context.Context) error {
		res, err := d.router.Run(ctx, tc)
		if err != nil {
			return err
		}
		reply.Status = res.Status
		reply.Result = res.Result

		path, err := d.router.Path(ctx, tc)
		if err != nil {
			return err
		}
		reply.Path = path
		return nil
	})
	if err != nil {
		return nil, err
	}

	reply.Responses = tc.Responses()
	if reply.Path == nil {
		reply.Path = []string{}
	}
	return reply, nil
}

// Stack returns the active dialog chain of a conversation.
func (d *Dispatcher) Stack(ctx context.Context, conversationID string) ([]string, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", domain.ErrInvalidArgument)
	}
	path, err := d.router.Path(ctx, state.ConversationRef(conversationID))
	if err != nil {
		return nil, err
	}
	if path == nil {
		path = []string{}
	}
	return path, nil
}

// Reset forgets a conversation's stack. It waits for any in-flight turn to finish.
func (d *Dispatcher) Reset(ctx context.Context, conversationID string) error {
	return d.sessions.WithLock(ctx, conversationID, func(ctx context.Context) error {
		return d.router.Reset(ctx, state.ConversationRef(conversationID))
	})
}
