package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/ports"
)

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of keys matching the patterns.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, key string, state *domain.DialogState) error {
	// 1. Deep Clone to avoid side effects on the in-memory stack used by the router.
	cloned := state.Clone()

	// 2. Mask PII in every frame, nested stacks included.
	maskStack(cloned, m.patterns)

	return m.next.Save(ctx, key, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (*domain.DialogState, error) {
	return m.next.Load(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func maskStack(s *domain.DialogState, patterns []*regexp.Regexp) {
	if s == nil {
		return
	}
	for i := range s.Stack {
		maskMap(s.Stack[i].State, patterns)
	}
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		// Check key against patterns
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				masked = true
				break
			}
		}
		if !masked {
			maskValue(v, patterns)
		}
	}
}

func maskValue(v any, patterns []*regexp.Regexp) {
	switch t := v.(type) {
	case map[string]any:
		maskMap(t, patterns)
	case []any:
		for _, e := range t {
			maskValue(e, patterns)
		}
	case *domain.DialogState:
		maskStack(t, patterns)
	case []domain.DialogInstance:
		maskStack(&domain.DialogState{Stack: t}, patterns)
	}
}
