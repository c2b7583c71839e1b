package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/turnstack/internal/config"
	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
)

// newFlow turns a flow definition into a waterfall: one prompt per step, then a summary.
func newFlow(flow config.FlowConfig) *dialog.Waterfall {
	w := dialog.NewWaterfall(flow.ID)
	for i, step := range flow.Steps {
		w.AddStep(askStep(flow, i, step))
	}
	w.AddStep(summaryStep(flow))
	return w
}

func askStep(flow config.FlowConfig, index int, step config.StepConfig) dialog.WaterfallStep {
	return func(ctx context.Context, s *dialog.WaterfallStepContext) (domain.TurnResult, error) {
		if index > 0 {
			record(s, flow.Steps[index-1])
		}
		return s.BeginDialog(ctx, promptID(flow, step), dialog.PromptOptions{
			Prompt:      promptText(step),
			RetryPrompt: step.RetryPrompt,
		})
	}
}

func summaryStep(flow config.FlowConfig) dialog.WaterfallStep {
	return func(ctx context.Context, s *dialog.WaterfallStepContext) (domain.TurnResult, error) {
		record(s, flow.Steps[len(flow.Steps)-1])
		if flow.Summary != "" {
			if err := s.TurnContext().SendActivity(ctx, render(flow.Summary, s.Values)); err != nil {
				return domain.TurnResult{}, err
			}
		}
		return s.EndDialog(ctx, s.Values)
	}
}

// record stores the answer to step, normalized to the matching choice if any.
func record(s *dialog.WaterfallStepContext, step config.StepConfig) {
	answer := fmt.Sprint(s.Result)
	for _, c := range step.Choices {
		if strings.EqualFold(answer, c) {
			answer = c
			break
		}
	}
	s.Values[step.Key] = answer
}

func promptID(flow config.FlowConfig, step config.StepConfig) string {
	return flow.ID + "/" + step.Key
}

func promptText(step config.StepConfig) string {
	if len(step.Choices) == 0 {
		return step.Prompt
	}
	return fmt.Sprintf("%s (%s)", step.Prompt, strings.Join(step.Choices, ", "))
}

func choiceValidator(choices []string) dialog.PromptValidator {
	if len(choices) == 0 {
		return nil
	}
	return func(ctx context.Context, text string) (bool, error) {
		for _, c := range choices {
			if strings.EqualFold(text, c) {
				return true, nil
			}
		}
		return false, nil
	}
}

// render replaces {{key}} placeholders with collected values.
func render(tmpl string, values map[string]any) string {
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
