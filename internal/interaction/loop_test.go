package interaction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/llm"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/agixt-go/orchestrator/internal/prompt"
	"github.com/agixt-go/orchestrator/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Infer(_ context.Context, _ string, _ int, _ [][]byte) (string, error) {
	if p.calls >= len(p.responses) {
		return p.responses[len(p.responses)-1], nil
	}
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}

type fakeConvoStore struct {
	messages []domain.Message
}

func (f *fakeConvoStore) GetConversation(context.Context, string, string) (*domain.Conversation, error) {
	return nil, nil
}
func (f *fakeConvoStore) AppendMessage(_ context.Context, _ string, _ string, msg domain.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}
func (f *fakeConvoStore) UpdateMessage(context.Context, string, string, domain.Message) error {
	return nil
}
func (f *fakeConvoStore) ForkConversation(context.Context, string, string, string) (*domain.Conversation, error) {
	return nil, nil
}
func (f *fakeConvoStore) DeleteConversation(context.Context, string, string) error { return nil }

type echoToolHandler struct{}

func (echoToolHandler) Invoke(_ context.Context, args map[string]any, _ ports.ToolCallContext) (string, error) {
	return fmt.Sprintf("echoed:%v", args["text"]), nil
}

func newTestLoop(responses []string) (*Loop, *fakeConvoStore) {
	provider := &scriptedProvider{responses: responses}
	driver := llm.NewDriver(provider)
	registry := tools.NewRegistry(tools.Tool{
		Schema: tools.Schema{Name: "echo", FriendlyName: "Echo", Args: []tools.ArgSpec{{Name: "text"}}},
		Handler: echoToolHandler{},
	})
	convos := &fakeConvoStore{}
	l := New(prompt.New(), driver, registry, nil, convos)
	l.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return l, convos
}

func TestLoop_PlainResponseNoTools(t *testing.T) {
	l, convos := newTestLoop([]string{"Hello there."})
	res, err := l.Run(context.Background(), Request{
		Agent:     &domain.Agent{Name: "assistant"},
		UserInput: "hi",
		Template:  "Respond to: {user_input}",
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, "Hello there.", res.FinalResponse)
	require.Len(t, convos.messages, 2)
	assert.Equal(t, domain.RoleUser, convos.messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, convos.messages[1].Role)
}

func TestLoop_ToolDispatchHappyPath(t *testing.T) {
	l, _ := newTestLoop([]string{
		`{"thoughts":"use echo","response":"done","commands":{"echo":{"text":"hi"}}}`,
	})
	res, err := l.Run(context.Background(), Request{
		Agent:     &domain.Agent{Name: "assistant", Commands: map[string]bool{"echo": true}},
		UserInput: "say hi",
		Template:  "{COMMANDS}\nRespond to: {user_input}",
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Contains(t, res.FinalResponse, "done")
	assert.Contains(t, res.FinalResponse, "echoed:hi")
}

func TestLoop_ToolDispatchRunsCommandsInDeclaredOrder(t *testing.T) {
	registry := tools.NewRegistry(
		tools.Tool{
			Schema:  tools.Schema{Name: "first", FriendlyName: "First", Args: []tools.ArgSpec{{Name: "text"}}},
			Handler: echoToolHandler{},
		},
		tools.Tool{
			Schema:  tools.Schema{Name: "second", FriendlyName: "Second", Args: []tools.ArgSpec{{Name: "text"}}},
			Handler: echoToolHandler{},
		},
		tools.Tool{
			Schema:  tools.Schema{Name: "third", FriendlyName: "Third", Args: []tools.ArgSpec{{Name: "text"}}},
			Handler: echoToolHandler{},
		},
	)
	provider := &scriptedProvider{responses: []string{
		`{"response":"done","commands":{"third":{"text":"c"},"first":{"text":"a"},"second":{"text":"b"}}}`,
	}}
	driver := llm.NewDriver(provider)
	l := New(prompt.New(), driver, registry, nil, &fakeConvoStore{})
	l.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	res, err := l.Run(context.Background(), Request{
		Agent:     &domain.Agent{Name: "assistant", Commands: map[string]bool{"first": true, "second": true, "third": true}},
		UserInput: "run three things",
		Template:  "{COMMANDS}\nRespond to: {user_input}",
	})
	require.NoError(t, err)

	thirdIdx := indexOf(res.FinalResponse, "echoed:c")
	firstIdx := indexOf(res.FinalResponse, "echoed:a")
	secondIdx := indexOf(res.FinalResponse, "echoed:b")
	require.NotEqual(t, -1, thirdIdx)
	require.NotEqual(t, -1, firstIdx)
	require.NotEqual(t, -1, secondIdx)
	assert.True(t, thirdIdx < firstIdx, "third command result should appear before first, matching declared key order")
	assert.True(t, firstIdx < secondIdx, "first command result should appear before second, matching declared key order")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestLoop_InvalidJSONRetriesThenGivesUp(t *testing.T) {
	l, _ := newTestLoop([]string{"not json", "still not json", "nope", "nope again"})
	res, err := l.Run(context.Background(), Request{
		Agent:          &domain.Agent{Name: "assistant", Commands: map[string]bool{}},
		UserInput:      "do something",
		Template:       "{COMMANDS}\n{user_input}",
		ContextResults: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, maxInvalidJSONRetries, res.InvalidJSONRetries)
}

func TestLoop_CancellationSkipsPersistence(t *testing.T) {
	l, convos := newTestLoop([]string{"hello"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := l.Run(ctx, Request{
		Agent:     &domain.Agent{Name: "assistant"},
		UserInput: "hi",
		Template:  "{user_input}",
	})
	require.Error(t, err)
	assert.Equal(t, StateCancelled, res.State)
	assert.Empty(t, convos.messages)
}
