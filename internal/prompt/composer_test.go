package prompt

import (
	"testing"

	"github.com/agixt-go/orchestrator/internal/tools"
	"github.com/stretchr/testify/assert"
)

func TestComposer_ReservedPlaceholders(t *testing.T) {
	c := New()
	ctx := Context{
		AgentName:        "researcher",
		Objective:        "summarize the report",
		UserInput:        "what changed?",
		RetrievedContext: "prior finding: revenue up 4%",
	}
	rendered, tokens := c.Render("Agent {agent_name} must {objective} given: {context}\nQ: {user_input}", ctx)
	assert.Equal(t, "Agent researcher must summarize the report given: prior finding: revenue up 4%\nQ: what changed?", rendered)
	assert.Greater(t, tokens, 0)
}

func TestComposer_UnknownPlaceholderLeftLiteral(t *testing.T) {
	c := New()
	rendered, _ := c.Render("Hello {nonexistent}", Context{})
	assert.Equal(t, "Hello {nonexistent}", rendered)
}

func TestComposer_CustomValues(t *testing.T) {
	c := New()
	rendered, _ := c.Render("Step: {STEP1}", Context{Values: map[string]string{"STEP1": "fetched data"}})
	assert.Equal(t, "Step: fetched data", rendered)
}

func TestComposer_NoCommandsWhenEmpty(t *testing.T) {
	c := New()
	rendered, _ := c.Render("{COMMANDS}", Context{})
	assert.Equal(t, "No commands.", rendered)
}

func TestComposer_ToolBlockFormatting(t *testing.T) {
	c := New()
	schemas := []tools.Schema{
		{Name: "web_search", FriendlyName: "Web Search", Args: []tools.ArgSpec{{Name: "query", Required: true}}},
		{Name: "fetch_url", FriendlyName: "Fetch URL", Args: []tools.ArgSpec{{Name: "url", Required: true}, {Name: "timeout", Required: false}}},
	}
	rendered, _ := c.Render("{command_list}", Context{EnabledTools: schemas})
	assert.Equal(t, "Fetch URL - fetch_url(url, timeout?)\nWeb Search - web_search(query)", rendered)
}
