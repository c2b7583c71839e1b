package dialog

import (
	"context"
	"fmt"

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/state"
)

// Set is a registry of dialogs. A Set created with an accessor can bind itself to a turn.
type Set struct {
	accessor state.Accessor
	dialogs  map[string]Dialog
	order    []string
	hooks    domain.LifecycleHooks
}

// NewSet creates a dialog set. accessor may be nil for sets that are only used by
// component dialogs for their nested stacks.
func NewSet(accessor state.Accessor) *Set {
	return &Set{
		accessor: accessor,
		dialogs:  make(map[string]Dialog),
	}
}

// SetLifecycleHooks registers observability hooks for contexts created from this set.
func (s *Set) SetLifecycleHooks(hooks domain.LifecycleHooks) {
	s.hooks = hooks
}

// Add registers a dialog. Ids must be unique within the set.
func (s *Set) Add(d Dialog) error {
	if d == nil || d.ID() == "" {
		return fmt.Errorf("%w: dialog must have an id", domain.ErrInvalidArgument)
	}
	if _, exists := s.dialogs[d.ID()]; exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateDialog, d.ID())
	}
	s.dialogs[d.ID()] = d
	s.order = append(s.order, d.ID())
	return nil
}

// Find returns the dialog registered under id, or nil.
func (s *Set) Find(id string) Dialog {
	return s.dialogs[id]
}

// IDs lists registered dialog ids in registration order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// CreateContext loads the persisted stack for the turn's conversation and binds it
// to this set. The returned context is the root of the turn.
func (s *Set) CreateContext(ctx context.Context, tc *TurnContext) (*Context, error) {
	if tc == nil {
		return nil, fmt.Errorf("%w: turn context is required", domain.ErrInvalidArgument)
	}
	if s.accessor == nil {
		return nil, fmt.Errorf("%w: dialog set has no state accessor", domain.ErrInvalidArgument)
	}

	snapshot, err := s.accessor.Get(ctx, tc)
	if err != nil {
		return nil, err
	}

	return &Context{
		set:     s,
		tc:      tc,
		state:   snapshot,
		hooks:   s.hooks,
		persist: true,
	}, nil
}
