package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a stored dialog stack, nested
// component stacks included. It applies semantic styling:
// - Root frame: ((Circle))
// - Component hosting a nested stack: [[Subroutine]]
// - Default: [Rectangle]
// Frames of one stack are chained bottom to top with solid arrows; a component
// points at the root of its nested stack with a dotted arrow. Active frames are
// highlighted.
func GenerateMermaid(snapshot *domain.DialogState) (string, error) {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var active []string
	if err := writeStack(&sb, snapshot, "s", "", &active); err != nil {
		return "", err
	}

	if len(active) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range active {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", id))
		}
	}
	return sb.String(), nil
}

// writeStack emits the frames of one stack. prefix makes node ids unique per level;
// host is the node id of the component owning this stack ("" for the outermost one).
func writeStack(sb *strings.Builder, snapshot *domain.DialogState, prefix, host string, active *[]string) error {
	if snapshot == nil || len(snapshot.Stack) == 0 {
		return nil
	}

	prev := host
	// Stack[0] is the top; walk from the bottom up.
	for i := len(snapshot.Stack) - 1; i >= 0; i-- {
		frame := snapshot.Stack[i]
		nodeID := fmt.Sprintf("%s_%d", prefix, len(snapshot.Stack)-1-i)

		nested, hasNested := frame.State[domain.KeyDialogs]

		opener, closer := "[", "]"
		switch {
		case host == "" && i == len(snapshot.Stack)-1:
			opener, closer = "((", "))" // Circle
		case hasNested:
			opener, closer = "[[", "]]" // Subroutine
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", nodeID, opener, escapeLabel(frame.ID), closer))

		if prev != "" {
			arrow := "-->"
			if prev == host {
				arrow = "-.->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", prev, arrow, nodeID))
		}
		prev = nodeID

		if i == 0 {
			*active = append(*active, nodeID)
		}
		if hasNested {
			inner, err := dialog.DecodeState(nested)
			if err != nil {
				return fmt.Errorf("frame %q: %w", frame.ID, err)
			}
			if err := writeStack(sb, inner, nodeID, nodeID, active); err != nil {
				return err
			}
		}
	}
	return nil
}

func escapeLabel(id string) string {
	return strings.ReplaceAll(id, "\"", "'")
}
