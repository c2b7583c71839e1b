package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/turnstack/internal/presentation/graph"
	"github.com/aretw0/turnstack/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *domain.DialogState
		contains []string
		excludes []string
	}{
		{
			name:     "Empty Stack",
			snapshot: domain.NewDialogState(),
			contains: []string{"graph TD\n"},
			excludes: []string{"classDef"},
		},
		{
			name: "Root Frame Shape",
			snapshot: &domain.DialogState{Stack: []domain.DialogInstance{
				{ID: "main", State: map[string]any{}},
			}},
			contains: []string{
				`s_0(("main"))`,
				"class s_0 current;",
			},
		},
		{
			name: "Plain Stack Chain",
			snapshot: &domain.DialogState{Stack: []domain.DialogInstance{
				{ID: "top", State: map[string]any{}},
				{ID: "bottom", State: map[string]any{}},
			}},
			contains: []string{
				`s_0(("bottom"))`,
				`s_1["top"]`,
				"s_0 --> s_1",
				"class s_1 current;",
			},
			excludes: []string{"class s_0 current;"},
		},
		{
			name: "Nested Component Stack",
			snapshot: &domain.DialogState{Stack: []domain.DialogInstance{
				{ID: "main", State: map[string]any{
					// JSON shape, as loaded from a store.
					"dialogs": map[string]any{
						"dialogStack": []any{
							map[string]any{"id": "profile/name", "state": map[string]any{}},
							map[string]any{"id": "profile", "state": map[string]any{}},
						},
					},
				}},
			}},
			contains: []string{
				`s_0(("main"))`,
				`s_0_0["profile"]`,
				`s_0_1["profile/name"]`,
				"s_0 -.-> s_0_0",
				"s_0_0 --> s_0_1",
				"class s_0 current;",
				"class s_0_1 current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := graph.GenerateMermaid(tt.snapshot)
			if err != nil {
				t.Fatalf("GenerateMermaid() error = %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("GenerateMermaid() = %v, want contains %v", got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("GenerateMermaid() = %v, want excludes %v", got, s)
				}
			}
		})
	}
}
