// Package prompt implements the Prompt Composer (C2): rendering a named
// prompt template against a set of context values, generalized from one
// hardcoded fmt.Sprintf template to a full named-placeholder substitution
// model.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agixt-go/orchestrator/internal/llm"
	"github.com/agixt-go/orchestrator/internal/tools"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Context carries the values the composer resolves into a template,
// including the reserved placeholders always computes when
// present in the template.
type Context struct {
	AgentName           string
	Objective           string
	UserInput           string
	ConversationHistory string
	RetrievedContext    string
	EnabledTools        []tools.Schema
	Values              map[string]string
}

// Tokenizer optionally provides accurate token counts; nil falls back to
// llm.EstimateTokens.
type Tokenizer interface {
	CountTokens(text string) (int, error)
}

// Composer renders named templates with Context substitution.
type Composer struct {
	Tokenizer Tokenizer
}

func New() *Composer {
	return &Composer{}
}

// renderToolBlock formats enabled tools one per line as
// "<friendly_name> - <name>(<arg_schema>)", or "No commands." when empty.
func renderToolBlock(schemas []tools.Schema) string {
	if len(schemas) == 0 {
		return "No commands."
	}
	sorted := append([]tools.Schema(nil), schemas...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for i, s := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		args := make([]string, 0, len(s.Args))
		for _, a := range s.Args {
			if a.Required {
				args = append(args, a.Name)
			} else {
				args = append(args, a.Name+"?")
			}
		}
		fmt.Fprintf(&b, "%s - %s(%s)", s.FriendlyName, s.Name, strings.Join(args, ", "))
	}
	return b.String()
}

func (c *Composer) resolve(name string, ctx Context) (string, bool) {
	switch name {
	case "context":
		return ctx.RetrievedContext, true
	case "COMMANDS", "command_list":
		return renderToolBlock(ctx.EnabledTools), true
	case "agent_name":
		return ctx.AgentName, true
	case "objective":
		return ctx.Objective, true
	case "conversation_history":
		return ctx.ConversationHistory, true
	case "user_input":
		return ctx.UserInput, true
	}
	v, ok := ctx.Values[name]
	return v, ok
}

// Render substitutes every `{name}` placeholder in template. Unknown
// placeholders are left literally; `{{...}}` is not an escape sequence
// and is matched like any other placeholder text.
func (c *Composer) Render(template string, ctx Context) (string, int) {
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := c.resolve(name, ctx); ok {
			return v
		}
		return match
	})

	tokens := 0
	if c.Tokenizer != nil {
		if n, err := c.Tokenizer.CountTokens(rendered); err == nil {
			tokens = n
		}
	}
	if tokens == 0 {
		tokens = llm.EstimateTokens(rendered)
	}
	return rendered, tokens
}
