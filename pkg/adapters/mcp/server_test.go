package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/turnstack"
	"github.com/aretw0/turnstack/pkg/adapters/memory"
	"github.com/aretw0/turnstack/pkg/dialog"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/runner"
	"github.com/aretw0/turnstack/pkg/session"
	"github.com/aretw0/turnstack/pkg/state"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewStore()
	acc, err := state.NewConversationState(store, "")
	require.NoError(t, err)

	router, err := turnstack.New(acc, turnstack.TurnHandlerFunc(func(ctx context.Context, inner *dialog.Context) (domain.TurnResult, error) {
		if inner.ActiveDialog() != nil {
			return inner.ContinueDialog(ctx)
		}
		return inner.BeginDialog(ctx, "city", dialog.PromptOptions{Prompt: "Which city?"})
	}))
	require.NoError(t, err)
	require.NoError(t, router.AddDialog(dialog.NewTextPrompt("city", nil)))

	sessions := session.NewManager(store)
	return NewServer(runner.NewDispatcher(router, sessions), sessions)
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestSendActivityAndStack(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	args := map[string]interface{}{"conversation_id": "c1", "text": "hi"}
	reply, err := s.handleSendActivity(ctx, toolRequest(args), args)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, reply.Status)
	assert.Equal(t, []string{"Which city?"}, reply.Responses)

	res, err := s.handleGetStack(ctx, toolRequest(map[string]any{"conversation_id": "c1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `["main","city"]`, textOf(t, res))

	contents, err := s.readConversations(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.JSONEq(t, `["c1/DialogState"]`, contents[0].(mcp.TextResourceContents).Text)

	res, err = s.handleReset(ctx, toolRequest(map[string]any{"conversation_id": "c1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGetStack(ctx, toolRequest(map[string]any{"conversation_id": "c1"}))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, textOf(t, res))
}

func TestSendActivity_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	args := map[string]interface{}{"text": "hi"}
	_, err := s.handleSendActivity(ctx, toolRequest(args), args)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	t.Setenv(runner.EnvMaxInputSize, "2")
	args = map[string]interface{}{"conversation_id": "c1", "text": "too long"}
	_, err = s.handleSendActivity(ctx, toolRequest(args), args)
	assert.ErrorIs(t, err, runner.ErrInputTooLarge)

	res, err := s.handleGetStack(ctx, toolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
