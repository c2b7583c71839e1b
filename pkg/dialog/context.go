package dialog

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/turnstack/pkg/domain"
)

// Context binds a dialog set to one stack for the duration of a turn.
//
// Operations on the root context persist the stack through the set's accessor once
// the outermost operation returns without error. Child contexts, created by component
// dialogs, mutate the stack stored in their parent's frame and never persist on their own.
type Context struct {
	set    *Set
	tc     *TurnContext
	state  *domain.DialogState
	parent *Context
	hooks  domain.LifecycleHooks

	persist bool
	depth   int
}

// NewChildContext creates a context over a nested stack owned by a frame of parent.
func NewChildContext(set *Set, parent *Context, stack *domain.DialogState) *Context {
	if stack == nil {
		stack = domain.NewDialogState()
	}
	return &Context{
		set:    set,
		tc:     parent.tc,
		state:  stack,
		parent: parent,
		hooks:  parent.hooks,
	}
}

// TurnContext returns the turn this context is bound to.
func (dc *Context) TurnContext() *TurnContext {
	return dc.tc
}

// Parent returns the enclosing context, or nil for the root.
func (dc *Context) Parent() *Context {
	return dc.parent
}

// Dialogs returns the set this context resolves ids against first.
func (dc *Context) Dialogs() *Set {
	return dc.set
}

// State returns the stack this context operates on.
func (dc *Context) State() *domain.DialogState {
	return dc.state
}

// Stack returns the frames of this context's stack, top first.
func (dc *Context) Stack() []domain.DialogInstance {
	return dc.state.Stack
}

// ActiveDialog returns the frame on top of the stack, or nil.
func (dc *Context) ActiveDialog() *domain.DialogInstance {
	return dc.state.Active()
}

// FindDialog resolves id in this context's set, then in each parent's set.
func (dc *Context) FindDialog(id string) Dialog {
	for c := dc; c != nil; c = c.parent {
		if d := c.set.Find(id); d != nil {
			return d
		}
	}
	return nil
}

// Child returns a context over the nested stack of the active frame, or nil when the
// active dialog is not a component.
func (dc *Context) Child() (*Context, error) {
	active := dc.ActiveDialog()
	if active == nil {
		return nil, nil
	}
	comp, ok := dc.FindDialog(active.ID).(*Component)
	if !ok {
		return nil, nil
	}
	return comp.innerContext(dc, false)
}

// Depth is the nesting level of this context; the root is 0.
func (dc *Context) Depth() int {
	depth := 0
	for c := dc.parent; c != nil; c = c.parent {
		depth++
	}
	return depth
}

// BeginDialog pushes a new instance of id and starts it.
func (dc *Context) BeginDialog(ctx context.Context, id string, options any) (domain.TurnResult, error) {
	if id == "" {
		return domain.TurnResult{}, fmt.Errorf("%w: dialog id is required", domain.ErrInvalidArgument)
	}
	d := dc.FindDialog(id)
	if d == nil {
		return domain.TurnResult{}, fmt.Errorf("%w: %q", domain.ErrDialogNotFound, id)
	}

	dc.enter()
	instance := domain.DialogInstance{ID: id, State: make(map[string]any)}
	dc.state.Stack = append([]domain.DialogInstance{instance}, dc.state.Stack...)
	dc.fireBegin(ctx, id)

	res, err := d.BeginDialog(ctx, dc, options)
	return dc.leave(ctx, res, err)
}

// ContinueDialog hands the turn to the active dialog.
// It reports domain.StatusEmpty when nothing is on the stack.
func (dc *Context) ContinueDialog(ctx context.Context) (domain.TurnResult, error) {
	active := dc.ActiveDialog()
	if active == nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, nil
	}
	d := dc.FindDialog(active.ID)
	if d == nil {
		return domain.TurnResult{}, fmt.Errorf("%w: %q", domain.ErrDialogNotFound, active.ID)
	}

	dc.enter()
	res, err := d.ContinueDialog(ctx, dc)
	return dc.leave(ctx, res, err)
}

// EndDialog pops the active dialog and resumes the one below it with result.
// When the stack empties, the result is returned with domain.StatusComplete.
func (dc *Context) EndDialog(ctx context.Context, result any) (domain.TurnResult, error) {
	dc.enter()
	if err := dc.endActive(ctx, domain.ReasonEndCalled); err != nil {
		return dc.leave(ctx, domain.TurnResult{}, err)
	}

	active := dc.ActiveDialog()
	if active == nil {
		return dc.leave(ctx, domain.TurnResult{Status: domain.StatusComplete, Result: result}, nil)
	}
	d := dc.FindDialog(active.ID)
	if d == nil {
		return dc.leave(ctx, domain.TurnResult{}, fmt.Errorf("%w: %q", domain.ErrDialogNotFound, active.ID))
	}
	res, err := d.ResumeDialog(ctx, dc, result)
	return dc.leave(ctx, res, err)
}

// ReplaceDialog ends the active dialog and starts id in its place, without resuming
// the dialog below.
func (dc *Context) ReplaceDialog(ctx context.Context, id string, options any) (domain.TurnResult, error) {
	dc.enter()
	if err := dc.endActive(ctx, domain.ReasonReplaceCalled); err != nil {
		return dc.leave(ctx, domain.TurnResult{}, err)
	}
	res, err := dc.BeginDialog(ctx, id, options)
	return dc.leave(ctx, res, err)
}

// CancelAllDialogs ends every instance on the stack.
func (dc *Context) CancelAllDialogs(ctx context.Context) (domain.TurnResult, error) {
	if dc.ActiveDialog() == nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, nil
	}

	dc.enter()
	for dc.ActiveDialog() != nil {
		if err := dc.endActive(ctx, domain.ReasonCancelCalled); err != nil {
			return dc.leave(ctx, domain.TurnResult{}, err)
		}
	}
	return dc.leave(ctx, domain.TurnResult{Status: domain.StatusCancelled}, nil)
}

func (dc *Context) endActive(ctx context.Context, reason domain.EndReason) error {
	active := dc.ActiveDialog()
	if active == nil {
		return nil
	}
	instance := *active
	dc.state.Stack = dc.state.Stack[1:]

	if d := dc.FindDialog(instance.ID); d != nil {
		if err := d.EndDialog(ctx, dc, &instance, reason); err != nil {
			return fmt.Errorf("failed to end dialog %q: %w", instance.ID, err)
		}
	}
	dc.fireEnd(ctx, instance.ID, reason)
	return nil
}

func (dc *Context) enter() {
	dc.depth++
}

// leave closes an operation opened by enter. The outermost operation of a root
// context writes the stack back.
func (dc *Context) leave(ctx context.Context, res domain.TurnResult, err error) (domain.TurnResult, error) {
	dc.depth--
	if err != nil || !dc.persist || dc.depth > 0 {
		return res, err
	}
	if err := dc.set.accessor.Set(ctx, dc.tc, dc.state); err != nil {
		return res, err
	}
	return res, nil
}

func (dc *Context) fireBegin(ctx context.Context, id string) {
	if dc.hooks.OnDialogBegin == nil {
		return
	}
	dc.hooks.OnDialogBegin(ctx, &domain.DialogEvent{
		EventBase: dc.eventBase(domain.EventDialogBegin),
		DialogID:  id,
		Depth:     dc.Depth(),
	})
}

func (dc *Context) fireEnd(ctx context.Context, id string, reason domain.EndReason) {
	if dc.hooks.OnDialogEnd == nil {
		return
	}
	dc.hooks.OnDialogEnd(ctx, &domain.DialogEvent{
		EventBase: dc.eventBase(domain.EventDialogEnd),
		DialogID:  id,
		Depth:     dc.Depth(),
		Reason:    reason,
	})
}

func (dc *Context) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:      time.Now(),
		Type:           t,
		ConversationID: dc.tc.ConversationID(),
	}
}
