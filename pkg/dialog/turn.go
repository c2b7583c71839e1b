package dialog

import (
	"context"
	"sync"

	"github.com/aretw0/turnstack/pkg/domain"
)

// SendFunc delivers an outgoing message to the transport as soon as it is sent.
type SendFunc func(ctx context.Context, text string) error

// TurnContext carries one inbound activity and collects the replies produced for it.
type TurnContext struct {
	activity domain.Activity
	sender   SendFunc

	mu        sync.Mutex
	responses []string

	// Values is a turn-scoped bag for handlers and middleware. It is never persisted.
	Values map[string]any
}

// TurnOption configures a TurnContext.
type TurnOption func(*TurnContext)

// WithSender streams replies to the transport in addition to buffering them.
func WithSender(fn SendFunc) TurnOption {
	return func(tc *TurnContext) {
		tc.sender = fn
	}
}

// NewTurnContext creates a turn for the given activity.
func NewTurnContext(activity domain.Activity, opts ...TurnOption) *TurnContext {
	tc := &TurnContext{
		activity: activity,
		Values:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Activity returns the inbound activity.
func (tc *TurnContext) Activity() domain.Activity {
	return tc.activity
}

// ConversationID returns the id of the conversation this turn belongs to.
func (tc *TurnContext) ConversationID() string {
	return tc.activity.ConversationID
}

// SendActivity records a reply and forwards it to the sender, if any.
func (tc *TurnContext) SendActivity(ctx context.Context, text string) error {
	tc.mu.Lock()
	tc.responses = append(tc.responses, text)
	tc.mu.Unlock()

	if tc.sender != nil {
		return tc.sender(ctx, text)
	}
	return nil
}

// Responses returns a copy of the replies sent during this turn.
func (tc *TurnContext) Responses() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make([]string, len(tc.responses))
	copy(out, tc.responses)
	return out
}
