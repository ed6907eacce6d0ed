package interaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
)

// defaultHistoryBudgetChars caps the rendered-history text handed to the
// Prompt Composer before a rolling summary kicks in. Estimated at ~4
// characters per token (len(runes)/4 + 1).
const defaultHistoryBudgetChars = 8000

// minKeepLastMessages is never summarized away, so the model always sees
// the most recent exchange verbatim.
const minKeepLastMessages = 4

// Summarizer renders a Conversation's history into prompt text, rolling
// everything but the most recent messages into a running summary once
// the transcript exceeds a character budget (BudgetChars): the last
// minKeepLastMessages messages verbatim plus an LLM-maintained running
// summary of everything older, recomputed on each
// render rather than persisted, since this system has no separate
// summary-storage table.
type Summarizer struct {
	Provider    ports.LLMProvider
	BudgetChars int
}

func NewSummarizer(provider ports.LLMProvider) *Summarizer {
	return &Summarizer{Provider: provider, BudgetChars: defaultHistoryBudgetChars}
}

// Render returns the conversation history text to embed in a rendered
// prompt template's {conversation_history} placeholder. When the full
// transcript fits the budget it is returned verbatim; otherwise the
// oldest messages are collapsed into one summary paragraph via the
// agent's own provider and the most recent minKeepLastMessages are kept
// verbatim after it.
func (s *Summarizer) Render(ctx context.Context, c *domain.Conversation) string {
	if c == nil || len(c.Messages) == 0 {
		return ""
	}
	full := renderMessages(c.Messages)
	if len(full) <= s.budget() || s.Provider == nil {
		return full
	}

	tailStart := len(c.Messages) - minKeepLastMessages
	if tailStart < 1 {
		tailStart = 1
	}
	older, tail := c.Messages[:tailStart], c.Messages[tailStart:]

	summary, err := s.summarize(ctx, older)
	if err != nil {
		log := observability.LoggerWithTrace(ctx)
		log.Warn().Err(err).Msg("interaction_summarize_failed")
		return full
	}

	var b strings.Builder
	b.WriteString("Summary of earlier conversation:\n")
	b.WriteString(summary)
	b.WriteString("\n\n")
	b.WriteString(renderMessages(tail))
	return b.String()
}

func (s *Summarizer) budget() int {
	if s.BudgetChars > 0 {
		return s.BudgetChars
	}
	return defaultHistoryBudgetChars
}

func (s *Summarizer) summarize(ctx context.Context, messages []domain.Message) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("Summarize the following conversation turns concisely but information-dense. ")
	prompt.WriteString("Preserve user goals, decisions, facts, identifiers, and open questions. ")
	prompt.WriteString("Return only the summary, aiming for under 1000 characters.\n\n")
	prompt.WriteString(renderMessages(messages))

	text, err := s.Provider.Infer(ctx, prompt.String(), 512, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func renderMessages(messages []domain.Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
