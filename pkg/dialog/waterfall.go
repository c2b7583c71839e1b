package dialog

import (
	"context"
	"fmt"

	"github.com/aretw0/turnstack/pkg/domain"
)

// WaterfallStep is one step of a Waterfall. A step either waits (EndOfTurn or by
// beginning a child dialog), advances with Next, or ends the waterfall.
type WaterfallStep func(ctx context.Context, step *WaterfallStepContext) (domain.TurnResult, error)

// Waterfall runs a fixed sequence of steps, one per turn or child dialog result.
type Waterfall struct {
	Base
	steps []WaterfallStep
}

// NewWaterfall creates a waterfall dialog.
func NewWaterfall(id string, steps ...WaterfallStep) *Waterfall {
	return &Waterfall{Base: NewBase(id), steps: steps}
}

// AddStep appends a step.
func (w *Waterfall) AddStep(step WaterfallStep) *Waterfall {
	w.steps = append(w.steps, step)
	return w
}

// BeginDialog implements Dialog.
func (w *Waterfall) BeginDialog(ctx context.Context, dc *Context, options any) (domain.TurnResult, error) {
	instance := dc.ActiveDialog()
	instance.State[domain.KeyOptions] = options
	instance.State[domain.KeyValues] = make(map[string]any)
	return w.runStep(ctx, dc, 0, nil)
}

// ContinueDialog implements Dialog. Only message activities advance the waterfall.
func (w *Waterfall) ContinueDialog(ctx context.Context, dc *Context) (domain.TurnResult, error) {
	if dc.TurnContext().Activity().Type != domain.ActivityMessage {
		return domain.EndOfTurn, nil
	}
	return w.ResumeDialog(ctx, dc, dc.TurnContext().Activity().Text)
}

// ResumeDialog implements Dialog.
func (w *Waterfall) ResumeDialog(ctx context.Context, dc *Context, result any) (domain.TurnResult, error) {
	instance := dc.ActiveDialog()
	return w.runStep(ctx, dc, toInt(instance.State[domain.KeyStepIndex])+1, result)
}

func (w *Waterfall) runStep(ctx context.Context, dc *Context, index int, result any) (domain.TurnResult, error) {
	if index >= len(w.steps) {
		return dc.EndDialog(ctx, result)
	}

	instance := dc.ActiveDialog()
	instance.State[domain.KeyStepIndex] = index

	values, _ := instance.State[domain.KeyValues].(map[string]any)
	if values == nil {
		values = make(map[string]any)
		instance.State[domain.KeyValues] = values
	}

	step := &WaterfallStepContext{
		Context:   dc,
		waterfall: w,
		Index:     index,
		Options:   instance.State[domain.KeyOptions],
		Result:    result,
		Values:    values,
	}
	res, err := w.steps[index](ctx, step)
	if err != nil {
		return domain.TurnResult{}, fmt.Errorf("waterfall %q step %d: %w", w.ID(), index, err)
	}
	return res, nil
}

// WaterfallStepContext is handed to each step.
type WaterfallStepContext struct {
	*Context
	waterfall  *Waterfall
	nextCalled bool

	// Index is the position of the running step.
	Index int
	// Options are the options the waterfall was started with.
	Options any
	// Result is the previous step's result: a child dialog's result or the user's reply.
	Result any
	// Values persist across the steps of one waterfall instance.
	Values map[string]any
}

// Next skips waiting and runs the following step with result.
func (s *WaterfallStepContext) Next(ctx context.Context, result any) (domain.TurnResult, error) {
	if s.nextCalled {
		return domain.TurnResult{}, fmt.Errorf("waterfall %q step %d: Next called twice", s.waterfall.ID(), s.Index)
	}
	s.nextCalled = true
	return s.waterfall.ResumeDialog(ctx, s.Context, result)
}

// Prompt begins a prompt dialog with the given text.
func (s *WaterfallStepContext) Prompt(ctx context.Context, dialogID, text string) (domain.TurnResult, error) {
	return s.BeginDialog(ctx, dialogID, PromptOptions{Prompt: text})
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
