// Package orchestrator is the public facade (C9) wiring the Memory
// Store, Prompt Composer, Interaction Loop, Chain Engine, Task Engine,
// and Task Monitor into the handful of operations a caller (HTTP
// handler, CLI, or the Task Monitor itself) actually needs.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/agixt-go/orchestrator/internal/chain"
	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/interaction"
	"github.com/agixt-go/orchestrator/internal/llm"
	"github.com/agixt-go/orchestrator/internal/memory"
	"github.com/agixt-go/orchestrator/internal/prompt"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/agixt-go/orchestrator/internal/task"
	"github.com/agixt-go/orchestrator/internal/tools"
)

// Orchestrator composes every engine package behind the stores and
// provider/embedder registries an Agent's Settings select by name.
type Orchestrator struct {
	Agents ports.AgentStore
	Prompts ports.PromptStore
	Chains ports.ChainStore
	Convos ports.ConversationStore
	Vector ports.VectorStore
	Tasks  ports.TaskStore

	Tools *tools.Registry

	// Providers and Embedders are keyed by AgentSettings.ProviderName /
	// EmbedderName, resolved at call time so one process can serve agents
	// pinned to different backends.
	Providers map[string]ports.LLMProvider
	Embedders map[string]ports.Embedder
}

func New(agents ports.AgentStore, prompts ports.PromptStore, chains ports.ChainStore, convos ports.ConversationStore, vector ports.VectorStore, taskStore ports.TaskStore, reg *tools.Registry) *Orchestrator {
	return &Orchestrator{
		Agents: agents, Prompts: prompts, Chains: chains, Convos: convos,
		Vector: vector, Tasks: taskStore, Tools: reg,
		Providers: map[string]ports.LLMProvider{}, Embedders: map[string]ports.Embedder{},
	}
}

func (o *Orchestrator) provider(name string) (ports.LLMProvider, error) {
	p, ok := o.Providers[name]
	if !ok {
		return nil, corerr.New(corerr.NotFound, fmt.Sprintf("no provider registered for %q", name))
	}
	return p, nil
}

func (o *Orchestrator) embedder(name string) (ports.Embedder, error) {
	e, ok := o.Embedders[name]
	if !ok {
		return nil, corerr.New(corerr.NotFound, fmt.Sprintf("no embedder registered for %q", name))
	}
	return e, nil
}

// memoryFor builds a per-agent Memory Store (C1) bound to the agent's
// configured embedder.
func (o *Orchestrator) memoryFor(agent *domain.Agent) (*memory.Store, error) {
	if o.Vector == nil {
		return nil, nil
	}
	emb, err := o.embedder(agent.Settings.EmbedderName)
	if err != nil {
		return nil, err
	}
	return memory.New(agent.Name, o.Vector, emb), nil
}

// loopFor assembles the Interaction Loop (C5) for one agent, wiring its
// configured provider into an Inference Driver.
func (o *Orchestrator) loopFor(agent *domain.Agent) (*interaction.Loop, error) {
	p, err := o.provider(agent.Settings.ProviderName)
	if err != nil {
		return nil, err
	}
	mem, err := o.memoryFor(agent)
	if err != nil {
		return nil, err
	}
	driver := llm.NewDriver(p)
	composer := prompt.New()
	return interaction.New(composer, driver, o.Tools, mem, o.Convos), nil
}

func (o *Orchestrator) promptLookup(userID string) task.PromptLookup {
	return func(ctx context.Context, name string) (string, error) {
		p, err := o.Prompts.GetPrompt(ctx, "Default", name, userID)
		if err != nil {
			return "", err
		}
		return p.Body, nil
	}
}

// Interact runs one turn of the Interaction Loop for (userID, agentName,
// conversationID), resolving the agent's named prompt template first.
func (o *Orchestrator) Interact(ctx context.Context, userID, agentName, conversationID, templateName, userInput string) (interaction.Result, error) {
	agent, err := o.Agents.GetAgent(ctx, userID, agentName)
	if err != nil {
		return interaction.Result{}, corerr.Wrap(corerr.NotFound, "load agent", err)
	}
	tmpl, err := o.Prompts.GetPrompt(ctx, "Default", templateName, userID)
	if err != nil {
		return interaction.Result{}, corerr.Wrap(corerr.NotFound, "load prompt template", err)
	}

	loop, err := o.loopFor(agent)
	if err != nil {
		return interaction.Result{}, err
	}

	var history string
	if o.Convos != nil {
		if convo, err := o.Convos.GetConversation(ctx, userID, conversationID); err == nil && convo != nil {
			if p, err := o.provider(agent.Settings.ProviderName); err == nil {
				history = interaction.NewSummarizer(p).Render(ctx, convo)
			} else {
				history = renderHistory(convo)
			}
		}
	}

	var validateBody string
	if agent.Settings.ValidateResponses {
		if v, err := o.Prompts.GetPrompt(ctx, "Default", "validate", userID); err == nil {
			validateBody = v.Body
		}
	}

	return loop.Run(ctx, interaction.Request{
		Agent:            agent,
		ConversationID:   conversationID,
		UserID:           userID,
		UserInput:        userInput,
		Template:         tmpl.Body,
		ValidateTemplate: validateBody,
		History:          history,
		ContextResults:   agent.Settings.ContextResults,
	})
}

func renderHistory(c *domain.Conversation) string {
	var out string
	for _, m := range c.Messages {
		out += fmt.Sprintf("%s: %s\n", m.Role, m.Content)
	}
	return out
}

// RunChain executes a named chain from fromStep (1 to resume from the
// start).
func (o *Orchestrator) RunChain(ctx context.Context, userID, chainName string, fromStep int, userInput, agentName string) (chain.RunResult, error) {
	c, err := o.Chains.GetChain(ctx, userID, chainName)
	if err != nil {
		return chain.RunResult{}, corerr.Wrap(corerr.NotFound, "load chain", err)
	}

	defaultAgent, err := o.Agents.GetAgent(ctx, userID, agentName)
	if err != nil {
		return chain.RunResult{}, corerr.Wrap(corerr.NotFound, "load default chain agent", err)
	}
	loop, err := o.loopFor(defaultAgent)
	if err != nil {
		return chain.RunResult{}, err
	}

	engine := chain.New(
		chainInteractor{orchestrator: o, loop: loop, userID: userID},
		chainExecutor{tools: o.Tools, userID: userID},
		o.promptLookup(userID),
		func(ctx context.Context, name string) (*domain.Chain, error) {
			return o.Chains.GetChain(ctx, userID, name)
		},
	)
	return engine.Run(ctx, c, fromStep, userInput, agentName)
}

// chainInteractor adapts the per-request Agent resolution the Chain
// Engine needs (each step may name a different agent) onto a loop built
// for the chain's default agent, falling back to a fresh loop when a
// step names a different agent.
type chainInteractor struct {
	orchestrator *Orchestrator
	loop         *interaction.Loop
	userID       string
}

func (c chainInteractor) Run(ctx context.Context, req interaction.Request) (interaction.Result, error) {
	loop := c.loop
	if req.Agent != nil && req.Agent.Name != "" {
		if full, err := c.orchestrator.Agents.GetAgent(ctx, c.userID, req.Agent.Name); err == nil {
			req.Agent = full
			if l, err := c.orchestrator.loopFor(full); err == nil {
				loop = l
			}
		}
	}
	return loop.Run(ctx, req)
}

type chainExecutor struct {
	tools  *tools.Registry
	userID string
}

func (c chainExecutor) Execute(ctx context.Context, toolName string, args map[string]any, callCtx ports.ToolCallContext) (string, error) {
	if c.tools == nil {
		return "", corerr.New(corerr.NotFound, "no tool registry configured")
	}
	return c.tools.Execute(ctx, toolName, args, callCtx)
}

// RunTask runs the autonomous Task Engine (C7) loop for one objective
// under agentName, streaming progress lines to output.
func (o *Orchestrator) RunTask(ctx context.Context, userID, agentName, objective string, output task.OutputSink) error {
	agent, err := o.Agents.GetAgent(ctx, userID, agentName)
	if err != nil {
		return corerr.Wrap(corerr.NotFound, "load agent", err)
	}
	loop, err := o.loopFor(agent)
	if err != nil {
		return err
	}
	eng := task.New(taskInteractor{loop: loop}, o.promptLookup(userID), agent)
	eng.Output = output
	return eng.Run(ctx, objective)
}

type taskInteractor struct {
	loop *interaction.Loop
}

func (t taskInteractor) Run(ctx context.Context, req interaction.Request) (interaction.Result, error) {
	return t.loop.Run(ctx, req)
}
