package domain

import "time"

// PromptType enumerates the kind of work a ChainStep performs.
type PromptType string

const (
	StepPrompt  PromptType = "Prompt"
	StepCommand PromptType = "Command"
	StepChain   PromptType = "Chain"
)

// ChainStepResponse records one timestamped result of executing a
// ChainStep.
type ChainStepResponse struct {
	Content   string
	Timestamp time.Time
}

// ChainStep is one entry of a Chain's ordered step list.
type ChainStep struct {
	StepNumber int
	AgentName  string
	PromptType PromptType
	Payload    map[string]string
	Responses  []ChainStepResponse
}

// LatestResponse returns the most recently recorded response for this
// step, if any.
func (s *ChainStep) LatestResponse() (ChainStepResponse, bool) {
	if len(s.Responses) == 0 {
		return ChainStepResponse{}, false
	}
	return s.Responses[len(s.Responses)-1], true
}

// Chain is an ordered, dense 1-based sequence of ChainSteps.
type Chain struct {
	Name   string
	UserID string
	Steps  []*ChainStep
}

// StepByNumber returns the step with the given number, if present.
func (c *Chain) StepByNumber(n int) (*ChainStep, bool) {
	for _, s := range c.Steps {
		if s.StepNumber == n {
			return s, true
		}
	}
	return nil, false
}

// Dense reports whether the chain's step numbers form {1..len(Steps)}
// (invariant).
func (c *Chain) Dense() bool {
	seen := make(map[int]bool, len(c.Steps))
	for _, s := range c.Steps {
		seen[s.StepNumber] = true
	}
	for i := 1; i <= len(c.Steps); i++ {
		if !seen[i] {
			return false
		}
	}
	return true
}
