package tools

import (
	"context"
	"testing"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	fn func(ctx context.Context, args map[string]any) (string, error)
}

func (f *fakeHandler) Invoke(ctx context.Context, args map[string]any, _ ports.ToolCallContext) (string, error) {
	return f.fn(ctx, args)
}

func echoTool() Tool {
	return Tool{
		Schema: Schema{
			Name:         "echo",
			FriendlyName: "Echo Text",
			Args:         []ArgSpec{{Name: "text", Required: true}},
		},
		Handler: &fakeHandler{fn: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		}},
	}
}

func TestRegistry_ExecuteHappyPath(t *testing.T) {
	r := NewRegistry(echoTool())
	out, err := r.Execute(context.Background(), "echo", map[string]any{"text": "hi", "bogus": 1}, ports.ToolCallContext{})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestRegistry_ResolveByFriendlyName(t *testing.T) {
	r := NewRegistry(echoTool())
	out, err := r.Execute(context.Background(), "Echo Text", map[string]any{"text": "hey"}, ports.ToolCallContext{})
	require.NoError(t, err)
	assert.Equal(t, "hey", out)
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "missing", nil, ports.ToolCallContext{})
	var e *corerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, corerr.ToolNotFound, e.ToolKind)
}

func TestRegistry_MissingRequiredArg(t *testing.T) {
	r := NewRegistry(echoTool())
	_, err := r.Execute(context.Background(), "echo", map[string]any{}, ports.ToolCallContext{})
	var e *corerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, corerr.ToolInvalidArgs, e.ToolKind)
}

func TestRegistry_HandlerFailure(t *testing.T) {
	r := NewRegistry(Tool{
		Schema: Schema{Name: "boom"},
		Handler: &fakeHandler{fn: func(context.Context, map[string]any) (string, error) {
			return "", assertErr("kaboom")
		}},
	})
	_, err := r.Execute(context.Background(), "boom", nil, ports.ToolCallContext{})
	var e *corerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, corerr.ToolHandlerFailed, e.ToolKind)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
