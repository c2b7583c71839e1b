package dialog

import (
	"context"
	"fmt"

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ComponentHooks are the two extension points a Component uses to drive its nested stack.
type ComponentHooks interface {
	// OnBeginDialog runs when the component itself is started.
	OnBeginDialog(ctx context.Context, inner *Context, options any) (domain.TurnResult, error)

	// OnContinueDialog runs on every later turn while the component is active.
	OnContinueDialog(ctx context.Context, inner *Context) (domain.TurnResult, error)
}

// Component is a dialog that runs its own stack of child dialogs inside one frame
// of its parent's stack.
//
// Without hooks, it begins its initial dialog and then keeps continuing whatever child
// is on top of its nested stack. When the nested stack stops waiting, the component
// ends itself with the nested result.
type Component struct {
	Base
	dialogs   *Set
	initialID string
	hooks     ComponentHooks
}

// ComponentOption configures a Component.
type ComponentOption func(*Component)

// WithInitialDialog sets the child started by the default begin hook.
func WithInitialDialog(id string) ComponentOption {
	return func(c *Component) {
		c.initialID = id
	}
}

// WithHooks replaces the default begin/continue behavior.
func WithHooks(hooks ComponentHooks) ComponentOption {
	return func(c *Component) {
		c.hooks = hooks
	}
}

// NewComponent creates a component dialog with an empty child set.
func NewComponent(id string, opts ...ComponentOption) *Component {
	c := &Component{
		Base:    NewBase(id),
		dialogs: NewSet(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddDialog registers a child dialog. The first child becomes the initial dialog
// unless one was configured.
func (c *Component) AddDialog(d Dialog) error {
	if err := c.dialogs.Add(d); err != nil {
		return err
	}
	if c.initialID == "" {
		c.initialID = d.ID()
	}
	return nil
}

// Dialogs returns the child set.
func (c *Component) Dialogs() *Set {
	return c.dialogs
}

// InitialDialogID returns the child started by the default begin hook.
func (c *Component) InitialDialogID() string {
	return c.initialID
}

// BeginDialog implements Dialog.
func (c *Component) BeginDialog(ctx context.Context, outer *Context, options any) (domain.TurnResult, error) {
	inner, err := c.innerContext(outer, true)
	if err != nil {
		return domain.TurnResult{}, err
	}
	res, err := c.resolveHooks().OnBeginDialog(ctx, inner, options)
	if err != nil {
		return domain.TurnResult{}, err
	}
	return c.finish(ctx, outer, res)
}

// ContinueDialog implements Dialog.
func (c *Component) ContinueDialog(ctx context.Context, outer *Context) (domain.TurnResult, error) {
	inner, err := c.innerContext(outer, false)
	if err != nil {
		return domain.TurnResult{}, err
	}
	res, err := c.resolveHooks().OnContinueDialog(ctx, inner)
	if err != nil {
		return domain.TurnResult{}, err
	}
	return c.finish(ctx, outer, res)
}

// ResumeDialog implements Dialog. A dialog the component pushed on its parent's
// stack has ended; the nested stack is left as it was.
func (c *Component) ResumeDialog(ctx context.Context, outer *Context, result any) (domain.TurnResult, error) {
	return domain.EndOfTurn, nil
}

// EndDialog implements Dialog. Cancelling the component cancels its nested stack,
// firing the end hooks of every nested frame one level below dc.
func (c *Component) EndDialog(ctx context.Context, dc *Context, instance *domain.DialogInstance, reason domain.EndReason) error {
	if reason != domain.ReasonCancelCalled {
		return nil
	}
	stack, err := DecodeState(instance.State[domain.KeyDialogs])
	if err != nil {
		return err
	}
	inner := NewChildContext(c.dialogs, dc, stack)
	_, err = inner.CancelAllDialogs(ctx)
	return err
}

func (c *Component) finish(ctx context.Context, outer *Context, res domain.TurnResult) (domain.TurnResult, error) {
	if res.Status == domain.StatusWaiting {
		return res, nil
	}
	ended, err := outer.EndDialog(ctx, res.Result)
	if err != nil {
		return ended, err
	}
	if res.Status == domain.StatusCancelled && ended.Status == domain.StatusComplete {
		ended.Status = domain.StatusCancelled
	}
	return ended, nil
}

// innerContext binds the nested stack stored in the component's frame.
func (c *Component) innerContext(outer *Context, fresh bool) (*Context, error) {
	instance := outer.ActiveDialog()
	if instance == nil || instance.ID != c.ID() {
		return nil, fmt.Errorf("%w: component %q is not the active dialog", domain.ErrNoActiveDialog, c.ID())
	}
	if instance.State == nil {
		instance.State = make(map[string]any)
	}

	stack := domain.NewDialogState()
	if !fresh {
		var err error
		stack, err = DecodeState(instance.State[domain.KeyDialogs])
		if err != nil {
			return nil, err
		}
	}
	instance.State[domain.KeyDialogs] = stack
	return NewChildContext(c.dialogs, outer, stack), nil
}

func (c *Component) resolveHooks() ComponentHooks {
	if c.hooks != nil {
		return c.hooks
	}
	return defaultHooks{c}
}

type defaultHooks struct {
	c *Component
}

func (h defaultHooks) OnBeginDialog(ctx context.Context, inner *Context, options any) (domain.TurnResult, error) {
	if h.c.initialID == "" {
		return domain.TurnResult{}, fmt.Errorf("%w: component %q has no initial dialog", domain.ErrDialogNotFound, h.c.ID())
	}
	return inner.BeginDialog(ctx, h.c.initialID, options)
}

func (h defaultHooks) OnContinueDialog(ctx context.Context, inner *Context) (domain.TurnResult, error) {
	return inner.ContinueDialog(ctx)
}

// DecodeState restores a nested stack from a frame's state. Stores that round-trip
// through JSON hand back generic maps, so those are decoded with mapstructure.
func DecodeState(v any) (*domain.DialogState, error) {
	switch t := v.(type) {
	case nil:
		return domain.NewDialogState(), nil
	case *domain.DialogState:
		if t.Stack == nil {
			t.Stack = []domain.DialogInstance{}
		}
		return t, nil
	case domain.DialogState:
		return &t, nil
	}

	var out domain.DialogState
	if err := mapstructure.Decode(v, &out); err != nil {
		return nil, fmt.Errorf("failed to decode nested dialog state: %w", err)
	}
	if out.Stack == nil {
		out.Stack = []domain.DialogInstance{}
	}
	for i := range out.Stack {
		if out.Stack[i].State == nil {
			out.Stack[i].State = make(map[string]any)
		}
	}
	return &out, nil
}
