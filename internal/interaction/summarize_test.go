package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummarizeProvider struct {
	calls    int
	response string
}

func (f *fakeSummarizeProvider) Infer(ctx context.Context, prompt string, maxOutputTokens int, images [][]byte) (string, error) {
	f.calls++
	return f.response, nil
}

func conversationWithMessages(n int) *domain.Conversation {
	c := &domain.Conversation{ID: uuid.New(), UserID: "u1"}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		c.Messages = append(c.Messages, domain.Message{
			ID: uuid.New(), Role: role, Content: "message content", Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return c
}

func TestSummarizer_UnderBudgetReturnsVerbatim(t *testing.T) {
	p := &fakeSummarizeProvider{}
	s := &Summarizer{Provider: p, BudgetChars: 10_000}
	out := s.Render(context.Background(), conversationWithMessages(4))
	assert.Equal(t, 0, p.calls)
	assert.Contains(t, out, "message content")
}

func TestSummarizer_OverBudgetCollapsesOlderMessages(t *testing.T) {
	p := &fakeSummarizeProvider{response: "the gist of it"}
	s := &Summarizer{Provider: p, BudgetChars: 50}
	convo := conversationWithMessages(20)
	out := s.Render(context.Background(), convo)
	require.Equal(t, 1, p.calls)
	assert.Contains(t, out, "Summary of earlier conversation:")
	assert.Contains(t, out, "the gist of it")
}

func TestSummarizer_EmptyConversation(t *testing.T) {
	s := NewSummarizer(&fakeSummarizeProvider{})
	assert.Equal(t, "", s.Render(context.Background(), &domain.Conversation{}))
}
