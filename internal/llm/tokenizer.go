// Package llm implements the Inference Driver (C4): a single-shot,
// budgeted, retrying call to an injected ports.LLMProvider with optional
// JSON-structured response validation.
package llm

import "context"

// Tokenizer provides accurate token counting when a provider exposes one.
// The Inference Driver does not consult it; it budgets from the
// caller-supplied Request.EstimatedInputTokens.
type Tokenizer interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// EstimateTokens is the heuristic fallback (roughly 4 characters/token)
// used when no accurate Tokenizer is wired.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return len([]rune(s))/4 + 1
}

// ContextSize returns the known context window for well-known model
// names, or 0 if unknown. Callers should fall back to a conservative
// default when 0 is returned.
func ContextSize(model string) int {
	switch model {
	case "gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini":
		return 128_000
	case "claude-3-5-sonnet", "claude-3-7-sonnet", "claude-sonnet-4":
		return 200_000
	case "gemini-1.5-pro", "gemini-2.0-flash":
		return 1_000_000
	default:
		return 0
	}
}
