package orchestrator

import (
	"context"

	"github.com/agixt-go/orchestrator/internal/chain"
	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/memory"
	"github.com/agixt-go/orchestrator/internal/ports"
)

// MemoryFor exposes the Memory Store (C1) for one agent, so callers (e.g.
// an HTTP handler backing the memory management surface) can drive
// write_text/query/delete/export/import without reaching into the loop
// machinery.
func (o *Orchestrator) MemoryFor(ctx context.Context, userID, agentName string) (*memory.Store, error) {
	agent, err := o.Agents.GetAgent(ctx, userID, agentName)
	if err != nil {
		return nil, corerr.Wrap(corerr.NotFound, "load agent", err)
	}
	mem, err := o.memoryFor(agent)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, corerr.New(corerr.UpstreamFailure, "no vector store configured")
	}
	return mem, nil
}

// Prompt CRUD

func (o *Orchestrator) GetPrompt(ctx context.Context, userID, category, name string) (*domain.Prompt, error) {
	return o.Prompts.GetPrompt(ctx, category, name, userID)
}

func (o *Orchestrator) ListPrompts(ctx context.Context, userID, category string) ([]*domain.Prompt, error) {
	return o.Prompts.ListPrompts(ctx, category, userID)
}

func (o *Orchestrator) SavePrompt(ctx context.Context, p *domain.Prompt) error {
	return o.Prompts.SavePrompt(ctx, p)
}

func (o *Orchestrator) RenamePrompt(ctx context.Context, userID, category, oldName, newName string) error {
	return o.Prompts.RenamePrompt(ctx, category, userID, oldName, newName)
}

func (o *Orchestrator) DeletePrompt(ctx context.Context, userID, category, name string) error {
	return o.Prompts.DeletePrompt(ctx, category, name, userID)
}

// Chain CRUD plus the move_step operation, which is pure domain logic
// (no engine involvement) once the Chain is loaded.

func (o *Orchestrator) GetChain(ctx context.Context, userID, name string) (*domain.Chain, error) {
	return o.Chains.GetChain(ctx, userID, name)
}

func (o *Orchestrator) ListChains(ctx context.Context, userID string) ([]string, error) {
	return o.Chains.ListChains(ctx, userID)
}

func (o *Orchestrator) SaveChain(ctx context.Context, c *domain.Chain) error {
	return o.Chains.SaveChain(ctx, c)
}

func (o *Orchestrator) RenameChain(ctx context.Context, userID, oldName, newName string) error {
	return o.Chains.RenameChain(ctx, userID, oldName, newName)
}

func (o *Orchestrator) DeleteChain(ctx context.Context, userID, name string) error {
	return o.Chains.DeleteChain(ctx, userID, name)
}

func (o *Orchestrator) MoveChainStep(ctx context.Context, userID, name string, oldNum, newNum int) error {
	c, err := o.Chains.GetChain(ctx, userID, name)
	if err != nil {
		return corerr.Wrap(corerr.NotFound, "load chain", err)
	}
	if err := chain.MoveStep(c, oldNum, newNum); err != nil {
		return err
	}
	return o.Chains.SaveChain(ctx, c)
}

// Agent CRUD

func (o *Orchestrator) GetAgent(ctx context.Context, userID, name string) (*domain.Agent, error) {
	return o.Agents.GetAgent(ctx, userID, name)
}

func (o *Orchestrator) ListAgents(ctx context.Context, userID string) ([]*domain.Agent, error) {
	return o.Agents.ListAgents(ctx, userID)
}

func (o *Orchestrator) SaveAgent(ctx context.Context, a *domain.Agent) error {
	return o.Agents.SaveAgent(ctx, a)
}

func (o *Orchestrator) RenameAgent(ctx context.Context, userID, oldName, newName string) error {
	return o.Agents.RenameAgent(ctx, userID, oldName, newName)
}

func (o *Orchestrator) DeleteAgent(ctx context.Context, userID, name string) error {
	return o.Agents.DeleteAgent(ctx, userID, name)
}

// DeleteConversation removes a conversation and, since a conversation's
// memory collection is keyed by its own UUID and only ever read by that
// conversation, wipes the collection along with it so an ephemeral
// collection never outlives the conversation that created it.
func (o *Orchestrator) DeleteConversation(ctx context.Context, userID, agentName, conversationID string) error {
	if err := o.Convos.DeleteConversation(ctx, userID, conversationID); err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "delete conversation", err)
	}
	agent, err := o.Agents.GetAgent(ctx, userID, agentName)
	if err != nil {
		return nil
	}
	mem, err := o.memoryFor(agent)
	if err != nil || mem == nil {
		return nil
	}
	return mem.Wipe(ctx, conversationID)
}

// RegisterProvider and RegisterEmbedder wire a concrete adapter under the
// name an Agent's Settings select it by.
func (o *Orchestrator) RegisterProvider(name string, p ports.LLMProvider) {
	o.Providers[name] = p
}

func (o *Orchestrator) RegisterEmbedder(name string, e ports.Embedder) {
	o.Embedders[name] = e
}
