package turnstack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/turnstack"
	"github.com/aretw0/turnstack/pkg/adapters/memory"
	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDomain = errors.New("order service unavailable")

// greetBot starts "greet" on a fresh stack and otherwise continues the active child.
type greetBot struct {
	calls  int
	seen   []string // active child observed on each call ("" when none)
	fail   bool
	endAll bool
}

func (b *greetBot) OnRunTurn(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
	b.calls++
	active := inner.ActiveDialog()
	if active == nil {
		b.seen = append(b.seen, "")
	} else {
		b.seen = append(b.seen, active.ID)
	}

	if b.fail {
		return domain.TurnResult{}, errDomain
	}
	if b.endAll {
		if _, err := inner.CancelAllDialogs(ctx); err != nil {
			return domain.TurnResult{}, err
		}
		return domain.TurnResult{Status: domain.StatusComplete, Result: "bye"}, nil
	}
	if active != nil {
		return inner.ContinueDialog(ctx)
	}
	return inner.BeginDialog(ctx, "greet", dialog.PromptOptions{Prompt: "What's your name?"})
}

type harness struct {
	router *turnstack.Router
	bot    *greetBot
	store  *memory.Store
	acc    *state.ConversationState

	turnEvents []*domain.TurnEvent
	mainBegins int
}

func newHarness(t *testing.T, opts ...turnstack.Option) *harness {
	t.Helper()
	h := &harness{bot: &greetBot{}, store: memory.NewStore()}

	acc, err := state.NewConversationState(h.store, "")
	require.NoError(t, err)
	h.acc = acc

	hooks := domain.LifecycleHooks{
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			h.turnEvents = append(h.turnEvents, e)
		},
		OnDialogBegin: func(ctx context.Context, e *domain.DialogEvent) {
			if e.Depth == 0 && e.DialogID == domain.DefaultRouterID {
				h.mainBegins++
			}
		},
	}
	opts = append([]turnstack.Option{turnstack.WithLifecycleHooks(hooks)}, opts...)

	router, err := turnstack.New(acc, h.bot, opts...)
	require.NoError(t, err)
	require.NoError(t, router.AddDialog(dialog.NewTextPrompt("greet", nil)))
	h.router = router
	return h
}

func (h *harness) send(t *testing.T, conv, text string) (domain.TurnResult, *dialog.TurnContext, error) {
	t.Helper()
	tc := dialog.NewTurnContext(domain.NewMessage(conv, text))
	res, err := h.router.Run(context.Background(), tc)
	return res, tc, err
}

func (h *harness) lastTurn() *domain.TurnEvent {
	return h.turnEvents[len(h.turnEvents)-1]
}

func TestRouter_FirstTurnBeginsOnce(t *testing.T) {
	h := newHarness(t)

	res, tc, err := h.send(t, "c1", "hello")
	require.NoError(t, err)

	assert.Equal(t, 1, h.mainBegins, "router begins itself exactly once")
	assert.Equal(t, 1, h.bot.calls, "handler runs exactly once")
	assert.True(t, h.lastTurn().Began)

	// Scenario A
	assert.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, []string{"What's your name?"}, tc.Responses())
	path, err := h.router.Path(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "greet"}, path)
}

func TestRouter_ActiveChildContinues(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.send(t, "c1", "hello")
	require.NoError(t, err)

	// Scenario B
	res, _, err := h.send(t, "c1", "Ada")
	require.NoError(t, err)

	assert.Equal(t, 2, h.bot.calls, "handler runs once per turn")
	assert.Equal(t, 1, h.mainBegins, "continue path never begins the router again")
	assert.False(t, h.lastTurn().Began)
	assert.Equal(t, []string{"", "greet"}, h.bot.seen, "handler observes greet active")

	// The prompt ended, so the handler's result collapses the stack.
	assert.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "Ada", res.Result)
}

func TestRouter_CompletedStackStartsFresh(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.send(t, "c1", "hello")
	require.NoError(t, err)

	// Scenario C
	h.bot.endAll = true
	res, tc, err := h.send(t, "c1", "stop")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "bye", res.Result)

	path, err := h.router.Path(context.Background(), tc)
	require.NoError(t, err)
	assert.Empty(t, path)

	h.bot.endAll = false
	res, _, err = h.send(t, "c1", "again")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, 2, h.mainBegins)
	assert.True(t, h.lastTurn().Began)
	assert.Equal(t, []string{"", "greet", ""}, h.bot.seen)
}

func TestRouter_HandlerErrorLeavesStackUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, tc, err := h.send(t, "c1", "hello")
	require.NoError(t, err)

	before, err := h.acc.Get(ctx, tc)
	require.NoError(t, err)

	// Scenario D
	h.bot.fail = true
	_, _, err = h.send(t, "c1", "Ada")
	assert.ErrorIs(t, err, errDomain)
	assert.Same(t, errDomain, err, "handler errors propagate unchanged")
	assert.Equal(t, errDomain, h.lastTurn().Err)

	after, err := h.acc.Get(ctx, tc)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRouter_HandlerErrorOnFirstTurnPersistsNothing(t *testing.T) {
	h := newHarness(t)
	h.bot.fail = true

	_, _, err := h.send(t, "c1", "hello")
	assert.ErrorIs(t, err, errDomain)

	keys, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRouter_InvalidArguments(t *testing.T) {
	store := memory.NewStore()
	acc, _ := state.NewConversationState(store, "")
	bot := &greetBot{}

	_, err := turnstack.New(nil, bot)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = turnstack.New(acc, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = turnstack.New(acc, bot, turnstack.WithID(""))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	router, err := turnstack.New(acc, bot)
	require.NoError(t, err)
	_, err = router.Run(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Zero(t, bot.calls)
	keys, _ := store.List(context.Background())
	assert.Empty(t, keys, "failed calls never touch the store")
}

func TestRouter_SameIDDifferentAccessorsDoNotCrossTalk(t *testing.T) {
	store := memory.NewStore()
	accA, _ := state.NewConversationState(store, "A")
	accB, _ := state.NewConversationState(store, "B")

	botA, botB := &greetBot{}, &greetBot{}
	routerA, err := turnstack.New(accA, botA)
	require.NoError(t, err)
	routerB, err := turnstack.New(accB, botB)
	require.NoError(t, err)
	require.NoError(t, routerA.AddDialog(dialog.NewTextPrompt("greet", nil)))
	require.NoError(t, routerB.AddDialog(dialog.NewTextPrompt("greet", nil)))

	ctx := context.Background()
	tc := dialog.NewTurnContext(domain.NewMessage("shared", "hi"))
	_, err = routerA.Run(ctx, tc)
	require.NoError(t, err)

	pathB, err := routerB.Path(ctx, tc)
	require.NoError(t, err)
	assert.Empty(t, pathB)

	_, err = routerB.Run(ctx, dialog.NewTurnContext(domain.NewMessage("shared", "hi")))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, botB.seen, "router B starts fresh")
	assert.Equal(t, []string{""}, botA.seen)
}

func TestRouter_ConversationsAreIndependent(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.send(t, "c1", "hello")
	require.NoError(t, err)
	_, _, err = h.send(t, "c2", "hello")
	require.NoError(t, err)

	assert.Equal(t, 2, h.mainBegins)
	assert.Equal(t, []string{"", ""}, h.bot.seen)
}

func TestRouter_RootFrameIsAlwaysRouterID(t *testing.T) {
	h := newHarness(t, turnstack.WithID("concierge"))
	ctx := context.Background()

	for _, text := range []string{"hi", "Ada", "hi again", "Grace"} {
		_, tc, err := h.send(t, "c1", text)
		require.NoError(t, err)

		snapshot, err := h.acc.Get(ctx, tc)
		require.NoError(t, err)
		if len(snapshot.Stack) > 0 {
			assert.Len(t, snapshot.Stack, 1)
			assert.Equal(t, "concierge", snapshot.Stack[0].ID)
		}
	}
}

func TestRouter_ForeignRootFrameFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tc := dialog.NewTurnContext(domain.NewMessage("c1", "hi"))

	require.NoError(t, h.acc.Set(ctx, tc, &domain.DialogState{Stack: []domain.DialogInstance{
		{ID: "someone-else", State: map[string]any{}},
	}}))

	_, err := h.router.Run(ctx, tc)
	assert.ErrorIs(t, err, domain.ErrDialogNotFound)
	assert.Zero(t, h.bot.calls)
}

func TestRouter_ResetStartsOver(t *testing.T) {
	h := newHarness(t)
	_, tc, err := h.send(t, "c1", "hello")
	require.NoError(t, err)

	require.NoError(t, h.router.Reset(context.Background(), tc))
	_, _, err = h.send(t, "c1", "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, h.mainBegins)
}

func TestTurnHandlerFunc(t *testing.T) {
	acc, _ := state.NewConversationState(memory.NewStore(), "")
	var got *dialog.Context
	router, err := turnstack.New(acc, turnstack.TurnHandlerFunc(func(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
		got = inner
		return domain.EndOfTurn, nil
	}))
	require.NoError(t, err)

	res, err := router.Run(context.Background(), dialog.NewTurnContext(domain.NewMessage("c", "x")))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, res.Status)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Depth())
	assert.Equal(t, router.Dialogs(), got.Dialogs(), "handler sees the router's child set")
}

func TestRouter_PathListsEveryNestedFrame(t *testing.T) {
	store := memory.NewStore()
	acc, err := state.NewConversationState(store, "")
	require.NoError(t, err)

	router, err := turnstack.New(acc, turnstack.TurnHandlerFunc(func(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
		if inner.ActiveDialog() != nil {
			return inner.ContinueDialog(ctx)
		}
		return inner.BeginDialog(ctx, "signup", nil)
	}))
	require.NoError(t, err)
	require.NoError(t, router.AddDialog(dialog.NewTextPrompt("name", nil)))
	require.NoError(t, router.AddDialog(dialog.NewWaterfall("signup",
		func(ctx context.Context, step *dialog.WaterfallStepContext) (domain.TurnResult, error) {
			return step.Prompt(ctx, "name", "What's your name?")
		},
		func(ctx context.Context, step *dialog.WaterfallStepContext) (domain.TurnResult, error) {
			return step.EndDialog(ctx, step.Result)
		},
	)))

	ctx := context.Background()
	tc := dialog.NewTurnContext(domain.NewMessage("c1", "hi"))
	res, err := router.Run(ctx, tc)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, res.Status)

	snapshot, err := acc.Get(ctx, tc)
	require.NoError(t, err)
	nested, err := dialog.DecodeState(snapshot.Active().State[domain.KeyDialogs])
	require.NoError(t, err)
	assert.Equal(t, []string{"signup", "name"}, nested.IDs())

	path, err := router.Path(ctx, tc)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "signup", "name"}, path)

	res, err = router.Run(ctx, dialog.NewTurnContext(domain.NewMessage("c1", "Ada")))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "Ada", res.Result)

	path, err = router.Path(ctx, tc)
	require.NoError(t, err)
	assert.Empty(t, path)
}
