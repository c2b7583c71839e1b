package dialog

import (
	"context"

	"github.com/aretw0/turnstack/pkg/domain"
)

// Dialog is a unit of conversation that can live on a dialog stack.
type Dialog interface {
	// ID is the id the dialog is registered and persisted under.
	ID() string

	// BeginDialog is called when a new instance was pushed for this dialog.
	// The instance is dc.ActiveDialog().
	BeginDialog(ctx context.Context, dc *Context, options any) (domain.TurnResult, error)

	// ContinueDialog is called when a turn arrives and this dialog is on top of the stack.
	ContinueDialog(ctx context.Context, dc *Context) (domain.TurnResult, error)

	// ResumeDialog is called when a dialog this one started has ended with result.
	ResumeDialog(ctx context.Context, dc *Context, result any) (domain.TurnResult, error)

	// EndDialog is called after the instance was removed from dc's stack.
	EndDialog(ctx context.Context, dc *Context, instance *domain.DialogInstance, reason domain.EndReason) error
}

// Base provides the default behavior for everything but BeginDialog.
type Base struct {
	id string
}

// NewBase creates a Base for the given dialog id.
func NewBase(id string) Base {
	return Base{id: id}
}

// ID implements Dialog.
func (b Base) ID() string {
	return b.id
}

// ContinueDialog ends the dialog by default.
func (b Base) ContinueDialog(ctx context.Context, dc *Context) (domain.TurnResult, error) {
	return dc.EndDialog(ctx, nil)
}

// ResumeDialog ends the dialog with the child's result by default.
func (b Base) ResumeDialog(ctx context.Context, dc *Context, result any) (domain.TurnResult, error) {
	return dc.EndDialog(ctx, result)
}

// EndDialog does nothing by default.
func (b Base) EndDialog(ctx context.Context, dc *Context, instance *domain.DialogInstance, reason domain.EndReason) error {
	return nil
}
