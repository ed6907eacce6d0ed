// Package interaction implements the Interaction Loop: the per-turn state
// machine that composes a prompt, infers a response, dispatches any
// declared tool calls, validates, and persists both sides of the turn. It
// follows a step-loop, tool-call-fan-out-with-a-bounded-semaphore shape,
// generalized from native provider tool-calling to a model-emitted JSON
// wire format instead.
package interaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/llm"
	"github.com/agixt-go/orchestrator/internal/memory"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/agixt-go/orchestrator/internal/prompt"
	"github.com/agixt-go/orchestrator/internal/tools"
	"github.com/google/uuid"
)

// maxInvalidJSONRetries bounds the ComposingPrompt→Inferring retry loop
// when the provider's response fails to parse as the declared tool-call
// JSON shape.
const maxInvalidJSONRetries = 3

// maxToolParallelism bounds concurrent tool dispatch within one
// ToolDispatch step, mirroring dispatchTools semaphore.
const maxToolParallelism = 4

// State names the Interaction Loop's state machine positions.
type State string

const (
	StateReceived       State = "Received"
	StateComposingPrompt State = "ComposingPrompt"
	StateInferring      State = "Inferring"
	StateToolDispatch   State = "ToolDispatch"
	StateValidating     State = "Validating"
	StatePersisting     State = "Persisting"
	StateDone           State = "Done"
	StateCancelled      State = "Cancelled"
)

// toolCallEnvelope is the canonical wire shape a tool-declaring template
// asks the model to emit.
type toolCallEnvelope struct {
	Thoughts string          `json:"thoughts,omitempty"`
	Plan     string          `json:"plan,omitempty"`
	Summary  string          `json:"summary,omitempty"`
	Response string          `json:"response,omitempty"`
	Commands orderedCommands `json:"commands,omitempty"`
}

// orderedCommand is one entry from the commands object, with Name holding
// the JSON key it was declared under.
type orderedCommand struct {
	Name string
	Args map[string]any
}

// orderedCommands decodes a commands JSON object into a slice that keeps
// the keys in declaration order, since a plain map randomizes iteration
// order and multi-command dispatch must run and concatenate results in
// the order the model declared them.
type orderedCommands []orderedCommand

func (oc *orderedCommands) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); string(trimmed) == "null" {
		*oc = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("commands: expected a JSON object")
	}

	var out orderedCommands
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var args map[string]any
		if err := dec.Decode(&args); err != nil {
			return err
		}
		out = append(out, orderedCommand{Name: name, Args: args})
	}
	*oc = out
	return nil
}

// Request is one user turn.
type Request struct {
	Agent          *domain.Agent
	ConversationID string
	UserID         string
	UserInput      string
	Template       string // body of the named prompt to render
	ValidateTemplate string // body of the "validate" template, rendered with {previous_response}
	History        string // pre-rendered conversation_history text
	ContextResults int
}

// Result is the outcome of one completed turn.
type Result struct {
	State          State
	FinalResponse  string
	RetrievedK     int
	InvalidJSONRetries int
}

// Loop wires the Prompt Composer, Inference Driver, Tool Registry, and
// Memory Store into the per-turn state machine.
type Loop struct {
	Composer *prompt.Composer
	Driver   *llm.Driver
	Tools    *tools.Registry
	Memory   *memory.Store
	Convos   ports.ConversationStore
	Now      func() time.Time
}

func New(composer *prompt.Composer, driver *llm.Driver, registry *tools.Registry, mem *memory.Store, convos ports.ConversationStore) *Loop {
	return &Loop{Composer: composer, Driver: driver, Tools: registry, Memory: mem, Convos: convos, Now: time.Now}
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Run executes one full turn of the state machine.
func (l *Loop) Run(ctx context.Context, req Request) (Result, error) {
	log := observability.LoggerWithTrace(ctx)
	state := StateReceived

	declaresCommands := strings.Contains(req.Template, "{COMMANDS}") || strings.Contains(req.Template, "{command_list}")
	k := req.ContextResults

	var response string
	var usedJSON bool
	retries := 0

	for {
		if cancelled(ctx) {
			return Result{State: StateCancelled}, corerr.Wrap(corerr.Cancelled, "turn cancelled", ctx.Err())
		}

		state = StateComposingPrompt
		pctx := prompt.Context{
			AgentName:           req.Agent.Name,
			Objective:           req.UserInput,
			UserInput:           req.UserInput,
			ConversationHistory: req.History,
		}
		if strings.Contains(req.Template, "{context}") && l.Memory != nil && k > 0 {
			retrieved, err := l.Memory.QueryWithKeywordRanking(ctx, domain.CollectionZero, req.UserInput, k, 0, 1024)
			if err != nil {
				log.Warn().Err(err).Msg("interaction_context_retrieval_failed")
			}
			pctx.RetrievedContext = retrieved
		}
		if declaresCommands && l.Tools != nil {
			pctx.EnabledTools = l.Tools.EnabledTools(req.Agent.Commands)
		}
		rendered, tokenCount := l.Composer.Render(req.Template, pctx)

		if cancelled(ctx) {
			return Result{State: StateCancelled}, corerr.Wrap(corerr.Cancelled, "turn cancelled", ctx.Err())
		}

		state = StateInferring
		result, err := l.Driver.Infer(ctx, llm.Request{
			Prompt:               rendered,
			EstimatedInputTokens: tokenCount,
			ProviderMaxTokens:    defaultProviderBudget(req.Agent),
			WantJSON:             declaresCommands,
		})
		if err != nil {
			return Result{State: state}, err
		}

		response = result.Text
		usedJSON = len(result.JSON) > 0

		if declaresCommands {
			var env toolCallEnvelope
			parseFailed := !usedJSON
			if usedJSON {
				parseFailed = json.Unmarshal(result.JSON, &env) != nil
			}
			if parseFailed {
				if retries >= maxInvalidJSONRetries {
					log.Warn().Int("retries", retries).Msg("interaction_invalid_json_giving_up")
					break
				}
				retries++
				if k > 0 {
					k--
				}
				log.Info().Int("retry", retries).Int("k", k).Msg("interaction_invalid_json_retry")
				continue
			}

			if cancelled(ctx) {
				return Result{State: StateCancelled}, corerr.Wrap(corerr.Cancelled, "turn cancelled", ctx.Err())
			}

			state = StateToolDispatch
			dispatched := l.dispatchTools(ctx, env, req)
			if env.Response != "" {
				response = env.Response
			}
			if dispatched != "" {
				response += dispatched
			}
		}
		break
	}

	if cancelled(ctx) {
		return Result{State: StateCancelled}, corerr.Wrap(corerr.Cancelled, "turn cancelled", ctx.Err())
	}

	if req.ValidateTemplate != "" && declaresCommands {
		state = StateValidating
		vctx := prompt.Context{
			AgentName: req.Agent.Name,
			Values:    map[string]string{"previous_response": response},
		}
		vDeclaresCommands := strings.Contains(req.ValidateTemplate, "{COMMANDS}") || strings.Contains(req.ValidateTemplate, "{command_list}")
		if vDeclaresCommands && l.Tools != nil {
			vctx.EnabledTools = l.Tools.EnabledTools(req.Agent.Commands)
		}
		rendered, tokenCount := l.Composer.Render(req.ValidateTemplate, vctx)
		vResult, err := l.Driver.Infer(ctx, llm.Request{
			Prompt:               rendered,
			EstimatedInputTokens: tokenCount,
			ProviderMaxTokens:    defaultProviderBudget(req.Agent),
			WantJSON:             vDeclaresCommands,
		})
		if err == nil {
			response = vResult.Text
			if vDeclaresCommands && len(vResult.JSON) > 0 {
				var env toolCallEnvelope
				if json.Unmarshal(vResult.JSON, &env) == nil {
					dispatched := l.dispatchTools(ctx, env, req)
					if env.Response != "" {
						response = env.Response
					}
					response += dispatched
				}
			}
		}
	}

	if cancelled(ctx) {
		return Result{State: StateCancelled}, corerr.Wrap(corerr.Cancelled, "turn cancelled", ctx.Err())
	}

	state = StatePersisting
	if err := l.persist(ctx, req, response); err != nil {
		return Result{State: state}, err
	}

	return Result{State: StateDone, FinalResponse: response, RetrievedK: k, InvalidJSONRetries: retries}, nil
}

// dispatchTools starts every command entry in declared order, running up
// to maxToolParallelism of them concurrently, and appends "\n\n<result>"
// for each in declared order. A null/missing command name is a soft error
// that does not fail the turn.
func (l *Loop) dispatchTools(ctx context.Context, env toolCallEnvelope, req Request) string {
	if len(env.Commands) == 0 || l.Tools == nil {
		return ""
	}

	results := make([]string, len(env.Commands))
	sem := make(chan struct{}, maxToolParallelism)
	var wg sync.WaitGroup

	for i, cmd := range env.Commands {
		if strings.TrimSpace(cmd.Name) == "" {
			results[i] = "\n\nTool dispatch error: missing command name."
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, name string, args map[string]any) {
			defer wg.Done()
			defer func() { <-sem }()
			out, err := l.Tools.Execute(ctx, name, args, ports.ToolCallContext{
				AgentName:      req.Agent.Name,
				ConversationID: req.ConversationID,
				UserID:         req.UserID,
			})
			if err != nil {
				results[i] = fmt.Sprintf("\n\nTool %s failed: %s", name, err.Error())
				return
			}
			results[i] = "\n\n" + out
		}(i, cmd.Name, cmd.Args)
	}
	wg.Wait()

	var b strings.Builder
	for _, r := range results {
		b.WriteString(r)
	}
	return b.String()
}

// persist appends the user turn and final response to the conversation and
// writes both into memory (collection 0 and the conversation-scoped
// collection), per step 5.
func (l *Loop) persist(ctx context.Context, req Request, response string) error {
	now := l.Now()
	userMsg := domain.Message{ID: uuid.New(), Role: domain.RoleUser, Content: req.UserInput, Timestamp: now}
	assistantMsg := domain.Message{ID: uuid.New(), Role: domain.RoleAssistant, Content: response, Timestamp: now}

	if l.Convos != nil {
		if err := l.Convos.AppendMessage(ctx, req.UserID, req.ConversationID, userMsg); err != nil {
			return corerr.Wrap(corerr.UpstreamFailure, "persist user message", err)
		}
		if err := l.Convos.AppendMessage(ctx, req.UserID, req.ConversationID, assistantMsg); err != nil {
			return corerr.Wrap(corerr.UpstreamFailure, "persist assistant message", err)
		}
	}

	if l.Memory == nil {
		return nil
	}
	turnText := fmt.Sprintf("User: %s\nAssistant: %s", req.UserInput, response)
	if err := l.Memory.WriteText(ctx, domain.CollectionZero, turnText, req.ConversationID, "turn"); err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "write turn to durable memory", err)
	}
	if err := l.Memory.WriteText(ctx, req.ConversationID, turnText, req.ConversationID, "turn"); err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "write turn to conversation memory", err)
	}
	return nil
}

func defaultProviderBudget(agent *domain.Agent) int {
	if agent != nil && agent.Settings.MaxTokens > 0 {
		return agent.Settings.MaxTokens
	}
	return 4096
}
