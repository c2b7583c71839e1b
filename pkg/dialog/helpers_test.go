package dialog_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/turnstack/pkg/adapters/memory"
	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/state"
	"github.com/stretchr/testify/require"
)

// jsonStore round-trips every snapshot through JSON like the file and redis stores do.
type jsonStore struct {
	*memory.Store
}

func (s jsonStore) Save(ctx context.Context, key string, st *domain.DialogState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	var decoded domain.DialogState
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	return s.Store.Save(ctx, key, &decoded)
}

func newAccessor(t *testing.T) (*state.ConversationState, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	acc, err := state.NewConversationState(jsonStore{store}, "")
	require.NoError(t, err)
	return acc, store
}

func message(text string) *dialog.TurnContext {
	return dialog.NewTurnContext(domain.NewMessage("conv-1", text))
}

// echo waits once and then ends with the text it received.
type echo struct {
	dialog.Base
}

func newEcho(id string) *echo {
	return &echo{Base: dialog.NewBase(id)}
}

func (e *echo) BeginDialog(ctx context.Context, dc *dialog.Context, options any) (domain.TurnResult, error) {
	return domain.EndOfTurn, nil
}

func (e *echo) ContinueDialog(ctx context.Context, dc *dialog.Context) (domain.TurnResult, error) {
	return dc.EndDialog(ctx, dc.TurnContext().Activity().Text)
}

var errBoom = errors.New("boom")

// failing errors on every continue.
type failing struct {
	dialog.Base
}

func (f *failing) BeginDialog(ctx context.Context, dc *dialog.Context, options any) (domain.TurnResult, error) {
	return domain.EndOfTurn, nil
}

func (f *failing) ContinueDialog(ctx context.Context, dc *dialog.Context) (domain.TurnResult, error) {
	dc.State().Stack = nil
	return domain.TurnResult{}, errBoom
}
