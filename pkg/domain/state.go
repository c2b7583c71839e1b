package domain

// DialogInstance is a single frame of the dialog stack.
type DialogInstance struct {
	// ID is the id of the dialog this frame runs.
	ID string `json:"id" mapstructure:"id"`

	// State is the private, serializable state of the running dialog.
	State map[string]any `json:"state" mapstructure:"state"`
}

// DialogState is the persisted dialog stack of a conversation.
// The active dialog is at index 0.
type DialogState struct {
	Stack []DialogInstance `json:"dialogStack" mapstructure:"dialogStack"`
}

// NewDialogState creates an empty stack snapshot.
func NewDialogState() *DialogState {
	return &DialogState{Stack: []DialogInstance{}}
}

// Active returns the frame on top of the stack, or nil if the stack is empty.
func (s *DialogState) Active() *DialogInstance {
	if s == nil || len(s.Stack) == 0 {
		return nil
	}
	return &s.Stack[0]
}

// IDs lists the dialog ids from the bottom (root) of the stack to the top.
func (s *DialogState) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Stack))
	for i := len(s.Stack) - 1; i >= 0; i-- {
		ids = append(ids, s.Stack[i].ID)
	}
	return ids
}

// Clone returns a deep copy of the snapshot so stores and callers never share maps.
func (s *DialogState) Clone() *DialogState {
	if s == nil {
		return nil
	}
	out := &DialogState{Stack: make([]DialogInstance, len(s.Stack))}
	for i, inst := range s.Stack {
		out.Stack[i] = DialogInstance{ID: inst.ID, State: CloneMap(inst.State)}
	}
	return out
}

// CloneMap deep copies nested maps and slices. Scalar values are shared.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []DialogInstance:
		return (&DialogState{Stack: t}).Clone().Stack
	case *DialogState:
		return t.Clone()
	default:
		return v
	}
}
