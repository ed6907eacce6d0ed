// Package tools implements the Tool Registry & Executor (C3): enumerate
// tools enabled on an agent and invoke them with argument validation and
// a typed error taxonomy.
package tools

import (
	"context"
	"strings"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
)

// ArgSpec declares one argument of a Tool's schema.
type ArgSpec struct {
	Name        string
	Required    bool
	Description string
}

// Schema is a Tool's static, declarative argument contract.
type Schema struct {
	Name         string
	FriendlyName string
	Description  string
	Args         []ArgSpec
}

// Tool is a callable capability addressable from an LLM response or a
// chain step.
type Tool struct {
	Schema  Schema
	Handler ports.ToolHandler
}

// Registry enumerates and dispatches Tools built from a static manifest
// at process start (design note 9: no filesystem scanning).
type Registry struct {
	byName     map[string]*Tool
	byFriendly map[string]*Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: map[string]*Tool{}, byFriendly: map[string]*Tool{}}
	for i := range tools {
		r.Register(tools[i])
	}
	return r
}

func (r *Registry) Register(t Tool) {
	cp := t
	r.byName[t.Schema.Name] = &cp
	if t.Schema.FriendlyName != "" {
		r.byFriendly[t.Schema.FriendlyName] = &cp
	}
}

// EnabledTools filters the registry's tools by the given enabled-name set
// (an agent's Commands map filtered to true).
func (r *Registry) EnabledTools(enabled map[string]bool) []Schema {
	out := make([]Schema, 0, len(enabled))
	for name, on := range enabled {
		if !on {
			continue
		}
		if t, ok := r.byName[name]; ok {
			out = append(out, t.Schema)
		}
	}
	return out
}

// resolve finds a Tool by exact Name match, then FriendlyName; Name is
// preferred when both would match.
func (r *Registry) resolve(name string) (*Tool, bool) {
	if t, ok := r.byName[name]; ok {
		return t, true
	}
	if t, ok := r.byFriendly[name]; ok {
		return t, true
	}
	return nil, false
}

// Execute validates args against the tool's schema and invokes its
// handler. It never panics; all failures are returned as *corerr.Error
// with Kind == ToolError.
func (r *Registry) Execute(ctx context.Context, toolName string, args map[string]any, callCtx ports.ToolCallContext) (string, error) {
	t, ok := r.resolve(toolName)
	if !ok {
		return "", corerr.NewTool(corerr.ToolNotFound, "tool not found: "+toolName)
	}

	validated, err := validateArgs(t.Schema, args)
	if err != nil {
		return "", err
	}
	for k := range args {
		if _, ok := validated[k]; !ok {
			observability.LoggerWithTrace(ctx).Warn().Str("tool", t.Schema.Name).Str("arg", k).Msg("tool_unknown_arg_dropped")
		}
	}

	select {
	case <-ctx.Done():
		return "", corerr.WrapTool(corerr.ToolTimeout, "context done before dispatch", ctx.Err())
	default:
	}

	result, err := t.Handler.Invoke(ctx, validated, callCtx)
	if err != nil {
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "handler failed for "+toolName, err)
	}
	return result, nil
}

// validateArgs ensures required keys are present, drops unknown keys, and
// returns the subset of args the schema declares.
func validateArgs(schema Schema, args map[string]any) (map[string]any, error) {
	declared := make(map[string]ArgSpec, len(schema.Args))
	for _, a := range schema.Args {
		declared[a.Name] = a
	}

	out := make(map[string]any, len(declared))
	for k, v := range args {
		if _, ok := declared[k]; ok {
			out[k] = v
		}
		// unknown keys are dropped here; Execute logs a warning for each
	}

	var missing []string
	for name, arg := range declared {
		if !arg.Required {
			continue
		}
		if _, ok := out[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, corerr.NewTool(corerr.ToolInvalidArgs, "missing required args: "+strings.Join(missing, ", "))
	}
	return out, nil
}
