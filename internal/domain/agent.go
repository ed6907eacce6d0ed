// Package domain contains the orchestrator's core entities and the
// invariants placed on them. Types here carry no behavior beyond small
// invariant-preserving helpers; collaborators (persistence, providers)
// live behind the ports package.
package domain

import "time"

// AgentSettings binds an agent to concrete provider selections and knobs.
// Values are opaque to the core beyond what it needs to budget tokens and
// select capability adapters by name.
type AgentSettings struct {
	ProviderName   string
	Model          string
	EmbedderName   string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	ContextResults int // k for retrieval augmentation
	// ValidateResponses gates the second (validation) inference pass of the
	// Interaction Loop. Resolves Open Question #2.
	ValidateResponses bool
}

// AgentRunState reports whether a background Task Engine run currently
// owns the agent.
type AgentRunState struct {
	Running    bool
	TaskRunID  string
	StartedAt  time.Time
}

// Agent is a named LLM configuration owned by a user.
type Agent struct {
	OwnerUserID string
	Name        string
	Settings    AgentSettings
	// Commands maps tool name to its enabled flag.
	Commands map[string]bool
	Status   AgentRunState
}

// EnabledTools returns the names of tools enabled on this agent, in no
// particular order.
func (a *Agent) EnabledTools() []string {
	out := make([]string, 0, len(a.Commands))
	for name, enabled := range a.Commands {
		if enabled {
			out = append(out, name)
		}
	}
	return out
}
