// Package ports declares the collaborator interfaces the orchestrator
// core consumes. Concrete adapters (HTTP provider clients, Qdrant,
// Postgres, tool handlers) implement these; the core never imports a
// concrete adapter package, only ports.
package ports

import (
	"context"
	"time"

	"github.com/agixt-go/orchestrator/internal/domain"
)

// LLMProvider is a capability-addressed inference backend. A concrete
// adapter may implement any subset of the optional interfaces below in
// addition to Infer.
type LLMProvider interface {
	// Infer performs a single completion call and returns raw text.
	Infer(ctx context.Context, prompt string, maxOutputTokens int, images [][]byte) (string, error)
}

// Embedder converts text to embedding vectors.
type Embedder interface {
	Dim() int
	ChunkSize() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TTS is an optional LLMProvider capability.
type TTS interface {
	TextToSpeech(ctx context.Context, text string) ([]byte, error)
}

// Transcriber is an optional LLMProvider capability.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ImageGen is an optional LLMProvider capability.
type ImageGen interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// VectorRecord is one point stored in a VectorStore collection.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string
}

// VectorMatch is a nearest-neighbor result.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorStore is the pluggable nearest-neighbor backend behind the Memory
// Store (C1).
type VectorStore interface {
	CreateCollection(ctx context.Context, collection string, dim int) error
	Upsert(ctx context.Context, collection string, rec VectorRecord) error
	Query(ctx context.Context, collection string, vector []float32, k int, minScore float64) ([]VectorMatch, error)
	Delete(ctx context.Context, collection, id string) error
	// DeleteBySource removes every record in collection whose "source"
	// metadata equals source. A no-op, not an error, if none match.
	DeleteBySource(ctx context.Context, collection, source string) error
	ListSources(ctx context.Context, collection string) ([]string, error)
	Wipe(ctx context.Context, collection string) error
}

// ConversationStore persists Conversations and their Messages.
type ConversationStore interface {
	GetConversation(ctx context.Context, userID string, id string) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, userID string, conversationID string, msg domain.Message) error
	UpdateMessage(ctx context.Context, userID, conversationID string, msg domain.Message) error
	ForkConversation(ctx context.Context, userID, conversationID string, messageID string) (*domain.Conversation, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

// AgentStore persists Agent configuration.
type AgentStore interface {
	GetAgent(ctx context.Context, ownerUserID, name string) (*domain.Agent, error)
	ListAgents(ctx context.Context, ownerUserID string) ([]*domain.Agent, error)
	SaveAgent(ctx context.Context, agent *domain.Agent) error
	RenameAgent(ctx context.Context, ownerUserID, oldName, newName string) error
	DeleteAgent(ctx context.Context, ownerUserID, name string) error
}

// PromptStore persists named Prompt templates.
type PromptStore interface {
	GetPrompt(ctx context.Context, category, name, userID string) (*domain.Prompt, error)
	ListPrompts(ctx context.Context, category, userID string) ([]*domain.Prompt, error)
	SavePrompt(ctx context.Context, p *domain.Prompt) error
	RenamePrompt(ctx context.Context, category, userID, oldName, newName string) error
	DeletePrompt(ctx context.Context, category, name, userID string) error
}

// ChainStore persists Chains, their Steps, and ChainStepResponses.
type ChainStore interface {
	GetChain(ctx context.Context, userID, name string) (*domain.Chain, error)
	ListChains(ctx context.Context, userID string) ([]string, error)
	SaveChain(ctx context.Context, c *domain.Chain) error
	RenameChain(ctx context.Context, userID, oldName, newName string) error
	DeleteChain(ctx context.Context, userID, name string) error
}

// TaskStore persists deferred TaskItems driven by the Task Monitor.
type TaskStore interface {
	// ClaimDueTasks returns and atomically marks claimed (e.g. via
	// SELECT ... FOR UPDATE SKIP LOCKED or a leased running_on column) the
	// set of tasks eligible for execution right now.
	ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]domain.TaskItem, error)
	CompleteTask(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error
	InsertTask(ctx context.Context, t domain.TaskItem) error
}

// UserStore resolves user identity for impersonation (C8).
type UserStore interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

// ToolHandler invokes one named tool.
type ToolHandler interface {
	Invoke(ctx context.Context, args map[string]any, callCtx ToolCallContext) (string, error)
}

// ToolCallContext is injected into a ToolHandler invocation.
type ToolCallContext struct {
	AgentName      string
	ConversationID string
	UserID         string
}
