// Package chain implements the Chain Engine (C6): ordered execution of a
// Chain's typed steps with inter-step {STEPn} substitution and a
// move_step interval shift, using explicit Result-shaped returns and a
// typed error taxonomy rather than exceptions for control flow.
package chain

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/domain"
	"github.com/agixt-go/orchestrator/internal/interaction"
	"github.com/agixt-go/orchestrator/internal/ports"
)

var stepRefRe = regexp.MustCompile(`\{STEP(\d+)\}`)

// PromptLookup resolves a named prompt template's body, used when a step's
// PromptType is Prompt.
type PromptLookup func(ctx context.Context, name string) (string, error)

// ChainLookup resolves a named sub-chain, used when a step's PromptType is
// Chain.
type ChainLookup func(ctx context.Context, name string) (*domain.Chain, error)

// Interactor runs one Interaction Loop turn for a Prompt step.
type Interactor interface {
	Run(ctx context.Context, req interaction.Request) (interaction.Result, error)
}

// Executor dispatches one Command step directly through the Tool
// Executor, bypassing the Interaction Loop.
type Executor interface {
	Execute(ctx context.Context, toolName string, args map[string]any, callCtx ports.ToolCallContext) (string, error)
}

// Engine executes Chains step by step.
type Engine struct {
	Interactor   Interactor
	Tools        Executor
	Prompts      PromptLookup
	Chains       ChainLookup
	Now          func() time.Time
}

func New(interactor Interactor, tools Executor, prompts PromptLookup, chains ChainLookup) *Engine {
	return &Engine{Interactor: interactor, Tools: tools, Prompts: prompts, Chains: chains, Now: time.Now}
}

// RunResult is the outcome of executing a Chain.
type RunResult struct {
	// FailedAtStep is 0 on success, or the 1-based step number the chain
	// stopped on.
	FailedAtStep int
	AllResponses map[int]string
	LastResponse string
}

// Error returns a "failed on step <n>; resume with from_step=<n>" message,
// or "" on success.
func (r RunResult) Error() string {
	if r.FailedAtStep == 0 {
		return ""
	}
	return fmt.Sprintf("failed on step %d; resume with from_step=%d", r.FailedAtStep, r.FailedAtStep)
}

// Run executes c's steps in order starting at fromStep (1-based) with
// userInput/agentName available as {user_input}/{agent_name} substitutions.
func (e *Engine) Run(ctx context.Context, c *domain.Chain, fromStep int, userInput, agentName string) (RunResult, error) {
	if fromStep < 1 {
		fromStep = 1
	}
	all := make(map[int]string, len(c.Steps))
	// Seed with already-recorded responses from steps before fromStep so
	// {STEPn} back-references resolve even on a resumed run.
	for _, s := range c.Steps {
		if s.StepNumber < fromStep {
			if r, ok := s.LatestResponse(); ok {
				all[s.StepNumber] = r.Content
			}
		}
	}

	var last string
	for n := fromStep; n <= len(c.Steps); n++ {
		step, ok := c.StepByNumber(n)
		if !ok {
			return RunResult{FailedAtStep: n, AllResponses: all, LastResponse: last}, nil
		}

		select {
		case <-ctx.Done():
			return RunResult{FailedAtStep: n, AllResponses: all, LastResponse: last}, corerr.Wrap(corerr.Cancelled, "chain run cancelled", ctx.Err())
		default:
		}

		expanded, err := e.expandPayload(step.Payload, all, n, userInput, agentName)
		if err != nil {
			return RunResult{FailedAtStep: n, AllResponses: all, LastResponse: last}, err
		}

		resp, err := e.runStep(ctx, step, expanded, userInput)
		if err != nil || resp == "" {
			return RunResult{FailedAtStep: n, AllResponses: all, LastResponse: last}, err
		}

		step.Responses = append(step.Responses, domain.ChainStepResponse{Content: resp, Timestamp: e.Now()})
		all[n] = resp
		last = resp
	}

	return RunResult{AllResponses: all, LastResponse: last}, nil
}

// expandPayload substitutes {user_input}, {agent_name}, and {STEPn} in
// every payload value. A forward or unresolved {STEPn} reference is fatal.
func (e *Engine) expandPayload(payload map[string]string, all map[int]string, currentStep int, userInput, agentName string) (map[string]string, error) {
	out := make(map[string]string, len(payload))
	for key, val := range payload {
		expanded, err := e.expandValue(val, all, currentStep, userInput, agentName)
		if err != nil {
			return nil, err
		}
		out[key] = expanded
	}
	return out, nil
}

func (e *Engine) expandValue(val string, all map[int]string, currentStep int, userInput, agentName string) (string, error) {
	replaced := val
	var firstErr error
	replaced = stepRefRe.ReplaceAllStringFunc(replaced, func(match string) string {
		if firstErr != nil {
			return match
		}
		n, _ := strconv.Atoi(stepRefRe.FindStringSubmatch(match)[1])
		if n >= currentStep {
			firstErr = corerr.New(corerr.MissingDependency, fmt.Sprintf("step %d references step %d, a forward reference", currentStep, n))
			return match
		}
		resp, ok := all[n]
		if !ok {
			firstErr = corerr.New(corerr.MissingDependency, fmt.Sprintf("step %d references step %d, which has no recorded response", currentStep, n))
			return match
		}
		return resp
	})
	if firstErr != nil {
		return "", firstErr
	}
	replaced = replaceLiteral(replaced, "{user_input}", userInput)
	replaced = replaceLiteral(replaced, "{agent_name}", agentName)
	return replaced, nil
}

func replaceLiteral(s, placeholder, value string) string {
	for {
		idx := indexOf(s, placeholder)
		if idx < 0 {
			return s
		}
		s = s[:idx] + value + s[idx+len(placeholder):]
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func (e *Engine) runStep(ctx context.Context, step *domain.ChainStep, expanded map[string]string, userInput string) (string, error) {
	switch step.PromptType {
	case domain.StepCommand:
		return e.runCommand(ctx, step, expanded)
	case domain.StepChain:
		return e.runSubChain(ctx, step, expanded, userInput)
	default:
		return e.runPrompt(ctx, step, expanded, userInput)
	}
}

func (e *Engine) runPrompt(ctx context.Context, step *domain.ChainStep, expanded map[string]string, userInput string) (string, error) {
	if e.Prompts == nil || e.Interactor == nil {
		return "", corerr.New(corerr.MissingDependency, "prompt step requires a PromptLookup and Interactor")
	}
	templateName := expanded["prompt_name"]
	body, err := e.Prompts(ctx, templateName)
	if err != nil {
		return "", corerr.Wrap(corerr.UpstreamFailure, "resolve prompt template", err)
	}

	res, err := e.Interactor.Run(ctx, interaction.Request{
		Agent:     &domain.Agent{Name: step.AgentName},
		UserInput: userInput,
		Template:  body,
	})
	if err != nil {
		return "", err
	}
	return res.FinalResponse, nil
}

func (e *Engine) runCommand(ctx context.Context, step *domain.ChainStep, expanded map[string]string) (string, error) {
	if e.Tools == nil {
		return "", corerr.New(corerr.MissingDependency, "command step requires an Executor")
	}
	toolName := expanded["command_name"]
	args := make(map[string]any, len(expanded))
	for k, v := range expanded {
		if k == "command_name" {
			continue
		}
		args[k] = v
	}
	return e.Tools.Execute(ctx, toolName, args, ports.ToolCallContext{AgentName: step.AgentName})
}

func (e *Engine) runSubChain(ctx context.Context, step *domain.ChainStep, expanded map[string]string, userInput string) (string, error) {
	if e.Chains == nil {
		return "", corerr.New(corerr.MissingDependency, "chain step requires a ChainLookup")
	}
	sub, err := e.Chains(ctx, expanded["chain_name"])
	if err != nil {
		return "", corerr.Wrap(corerr.UpstreamFailure, "resolve sub-chain", err)
	}
	result, err := e.Run(ctx, sub, 1, userInput, step.AgentName)
	if err != nil {
		return "", err
	}
	if result.FailedAtStep != 0 {
		return "", corerr.New(corerr.UpstreamFailure, result.Error())
	}
	return result.LastResponse, nil
}

// MoveStep shifts the interval [min(old,new), max(old,new)] by ±1 to
// preserve density, per move_step invariant (resolved as an
// inclusive shift, see DESIGN.md Open Question #1).
func MoveStep(c *domain.Chain, oldNum, newNum int) error {
	if oldNum == newNum {
		return nil
	}
	moving, ok := c.StepByNumber(oldNum)
	if !ok {
		return corerr.New(corerr.NotFound, fmt.Sprintf("no step numbered %d", oldNum))
	}

	lo, hi := oldNum, newNum
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, s := range c.Steps {
		if s == moving {
			continue
		}
		if s.StepNumber < lo || s.StepNumber > hi {
			continue
		}
		if newNum > oldNum {
			s.StepNumber--
		} else {
			s.StepNumber++
		}
	}
	moving.StepNumber = newNum
	return nil
}
