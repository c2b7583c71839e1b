package dialog

import (
	"context"
	"strings"

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// PromptOptions configure a prompt instance.
type PromptOptions struct {
	Prompt      string `mapstructure:"prompt"`
	RetryPrompt string `mapstructure:"retryPrompt"`
}

// PromptValidator accepts or rejects a reply.
type PromptValidator func(ctx context.Context, text string) (bool, error)

// TextPrompt asks a question and ends with the next message's text.
type TextPrompt struct {
	Base
	validator PromptValidator
}

// NewTextPrompt creates a text prompt. validator may be nil.
func NewTextPrompt(id string, validator PromptValidator) *TextPrompt {
	return &TextPrompt{Base: NewBase(id), validator: validator}
}

// BeginDialog implements Dialog.
func (p *TextPrompt) BeginDialog(ctx context.Context, dc *Context, options any) (domain.TurnResult, error) {
	opts, err := decodePromptOptions(options)
	if err != nil {
		return domain.TurnResult{}, err
	}
	// Stored as a plain map so it survives JSON stores unchanged.
	dc.ActiveDialog().State[domain.KeyOptions] = map[string]any{
		"prompt":      opts.Prompt,
		"retryPrompt": opts.RetryPrompt,
	}
	if opts.Prompt != "" {
		if err := dc.TurnContext().SendActivity(ctx, opts.Prompt); err != nil {
			return domain.TurnResult{}, err
		}
	}
	return domain.EndOfTurn, nil
}

// ContinueDialog implements Dialog.
func (p *TextPrompt) ContinueDialog(ctx context.Context, dc *Context) (domain.TurnResult, error) {
	activity := dc.TurnContext().Activity()
	if activity.Type != domain.ActivityMessage {
		return domain.EndOfTurn, nil
	}

	text := strings.TrimSpace(activity.Text)
	ok := text != ""
	if ok && p.validator != nil {
		var err error
		if ok, err = p.validator(ctx, text); err != nil {
			return domain.TurnResult{}, err
		}
	}
	if ok {
		return dc.EndDialog(ctx, text)
	}

	opts, err := decodePromptOptions(dc.ActiveDialog().State[domain.KeyOptions])
	if err != nil {
		return domain.TurnResult{}, err
	}
	retry := opts.RetryPrompt
	if retry == "" {
		retry = opts.Prompt
	}
	if retry != "" {
		if err := dc.TurnContext().SendActivity(ctx, retry); err != nil {
			return domain.TurnResult{}, err
		}
	}
	return domain.EndOfTurn, nil
}

// ResumeDialog implements Dialog by re-asking the question.
func (p *TextPrompt) ResumeDialog(ctx context.Context, dc *Context, result any) (domain.TurnResult, error) {
	opts, err := decodePromptOptions(dc.ActiveDialog().State[domain.KeyOptions])
	if err != nil {
		return domain.TurnResult{}, err
	}
	if opts.Prompt != "" {
		if err := dc.TurnContext().SendActivity(ctx, opts.Prompt); err != nil {
			return domain.TurnResult{}, err
		}
	}
	return domain.EndOfTurn, nil
}

func decodePromptOptions(v any) (PromptOptions, error) {
	switch t := v.(type) {
	case nil:
		return PromptOptions{}, nil
	case PromptOptions:
		return t, nil
	case *PromptOptions:
		return *t, nil
	case string:
		return PromptOptions{Prompt: t}, nil
	}
	var opts PromptOptions
	if err := mapstructure.Decode(v, &opts); err != nil {
		return PromptOptions{}, err
	}
	return opts, nil
}
