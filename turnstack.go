package turnstack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/turnstack/internal/logging"
	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/state"
)

// TurnHandler decides what happens on every turn routed to it.
//
// inner is bound to the router's nested stack for the current conversation. The
// handler begins, continues, replaces or ends child dialogs on it and returns the
// resulting outcome. It is called exactly once per turn, whether the router was just
// started or resumed.
type TurnHandler interface {
	OnRunTurn(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error)
}

// TurnHandlerFunc adapts a function to TurnHandler.
type TurnHandlerFunc func(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error)

// OnRunTurn implements TurnHandler.
func (f TurnHandlerFunc) OnRunTurn(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
	return f(ctx, inner)
}

// Router is a component dialog that owns the root frame of a conversation's stack and
// hands every turn to a TurnHandler.
//
// Application dialogs are registered with AddDialog and started by the handler.
type Router struct {
	*dialog.Component

	id       string
	accessor state.Accessor
	stack    *dialog.Set // private, holds only the router itself
	handler  TurnHandler
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Router.
type Option func(*Router)

// WithID sets the dialog id the router persists its root frame under (default: "main").
func WithID(id string) Option {
	return func(r *Router) {
		r.id = id
	}
}

// WithLogger sets a custom structured logger for the router.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = hooks
	}
}

// New creates a Router that reads and writes its stack through accessor and hands
// every turn to handler.
func New(accessor state.Accessor, handler TurnHandler, opts ...Option) (*Router, error) {
	if accessor == nil {
		return nil, fmt.Errorf("%w: state accessor is required", domain.ErrInvalidArgument)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: turn handler is required", domain.ErrInvalidArgument)
	}

	r := &Router{
		id:       domain.DefaultRouterID,
		accessor: accessor,
		handler:  handler,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		return nil, fmt.Errorf("%w: router id cannot be empty", domain.ErrInvalidArgument)
	}

	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.logger = r.logger.With("router_id", r.id)

	r.Component = dialog.NewComponent(r.id, dialog.WithHooks(interceptor{handler: handler}))

	r.stack = dialog.NewSet(accessor)
	r.stack.SetLifecycleHooks(r.hooks)
	if err := r.stack.Add(r.Component); err != nil {
		return nil, err
	}
	// The root frame must always resolve back to this router.
	if r.stack.Find(r.id) != dialog.Dialog(r.Component) {
		return nil, fmt.Errorf("root dialog %q does not resolve to the router", r.id)
	}

	return r, nil
}

// Run processes one turn: it resumes whatever is on the conversation's stack, or
// starts the router when the stack is empty. Errors from the stack or the handler are
// returned unchanged and leave the stored stack untouched.
//
// Turns of the same conversation must not run concurrently; see session.Manager.
func (r *Router) Run(ctx context.Context, tc *dialog.TurnContext) (domain.TurnResult, error) {
	if tc == nil {
		return domain.TurnResult{}, fmt.Errorf("%w: turn context is required", domain.ErrInvalidArgument)
	}

	start := time.Now()
	r.fireTurn(ctx, r.hooks.OnTurnStart, &domain.TurnEvent{
		EventBase: r.eventBase(tc, domain.EventTurnStart),
		RouterID:  r.id,
	})

	dc, err := r.stack.CreateContext(ctx, tc)
	if err != nil {
		return r.endTurn(ctx, tc, start, false, domain.TurnResult{}, err)
	}

	res, err := dc.ContinueDialog(ctx)
	if err != nil {
		return r.endTurn(ctx, tc, start, false, res, err)
	}

	began := false
	if res.Status == domain.StatusEmpty {
		began = true
		res, err = dc.BeginDialog(ctx, r.id, nil)
	}
	return r.endTurn(ctx, tc, start, began, res, err)
}

// Path returns the dialog ids of a conversation's stack, from the router's root frame
// down to the innermost active child. Every frame of each level is listed bottom to
// top; only the active frame's nested stack is descended into.
func (r *Router) Path(ctx context.Context, conv state.Conversation) ([]string, error) {
	snapshot, err := r.accessor.Get(ctx, conv)
	if err != nil {
		return nil, err
	}

	var path []string
	for snapshot != nil {
		active := snapshot.Active()
		if active == nil {
			break
		}
		path = append(path, snapshot.IDs()...)
		nested, ok := active.State[domain.KeyDialogs]
		if !ok {
			break
		}
		if snapshot, err = dialog.DecodeState(nested); err != nil {
			return nil, err
		}
	}
	return path, nil
}

// Reset removes the stored stack of a conversation, so its next turn starts fresh.
func (r *Router) Reset(ctx context.Context, conv state.Conversation) error {
	return r.accessor.Delete(ctx, conv)
}

func (r *Router) endTurn(ctx context.Context, tc *dialog.TurnContext, start time.Time, began bool, res domain.TurnResult, err error) (domain.TurnResult, error) {
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Error("Turn failed",
			"conversation_id", tc.ConversationID(),
			"err", err,
		)
	} else {
		r.logger.Debug("Turn processed",
			"conversation_id", tc.ConversationID(),
			"began", began,
			"status", res.Status,
			"duration", elapsed,
		)
	}

	r.fireTurn(ctx, r.hooks.OnTurnEnd, &domain.TurnEvent{
		EventBase: r.eventBase(tc, domain.EventTurnEnd),
		RouterID:  r.id,
		Began:     began,
		Status:    res.Status,
		Duration:  elapsed,
		Err:       err,
	})
	return res, err
}

func (r *Router) fireTurn(ctx context.Context, hook func(context.Context, *domain.TurnEvent), e *domain.TurnEvent) {
	if hook != nil {
		hook(ctx, e)
	}
}

func (r *Router) eventBase(tc *dialog.TurnContext, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:      time.Now(),
		Type:           t,
		ConversationID: tc.ConversationID(),
	}
}

// interceptor replaces both component hooks with a call to the turn handler.
type interceptor struct {
	handler TurnHandler
}

// OnBeginDialog ignores options; the handler inspects the context instead.
func (i interceptor) OnBeginDialog(ctx context.Context, inner *dialog.Context, options any) (domain.TurnResult, error) {
	return i.handler.OnRunTurn(ctx, inner)
}

func (i interceptor) OnContinueDialog(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
	return i.handler.OnRunTurn(ctx, inner)
}
