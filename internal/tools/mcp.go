package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	mcppkg "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/ports"
)

// MCPServerConfig names one external MCP server to connect to, either a
// local stdio subprocess (Command/Args/Env) or a remote Streamable HTTP
// endpoint (URL/Headers).
type MCPServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	URL     string
	Headers map[string]string
}

// MCPManager holds active MCP client sessions and the tool names each one
// contributed to a Registry, so a server's tools can be cleanly
// unregistered when the server is removed.
type MCPManager struct {
	sessions  map[string]*mcppkg.ClientSession
	toolNames map[string][]string
}

func NewMCPManager() *MCPManager {
	return &MCPManager{sessions: map[string]*mcppkg.ClientSession{}, toolNames: map[string][]string{}}
}

// Close closes every active MCP session.
func (m *MCPManager) Close() {
	for _, s := range m.sessions {
		_ = s.Close()
	}
}

// RegisterAll connects to every configured MCP server and registers its
// tools into reg. A server that fails to connect is skipped rather than
// aborting startup, since one misconfigured MCP endpoint shouldn't keep
// every other tool out of the registry.
func (m *MCPManager) RegisterAll(ctx context.Context, reg *Registry, servers []MCPServerConfig) {
	for _, srv := range servers {
		if err := m.RegisterOne(ctx, reg, srv); err != nil {
			continue
		}
	}
}

// RegisterOne connects to a single MCP server, lists its tools, and
// registers a wrapper for each as "<server>_<tool>" in reg.
func (m *MCPManager) RegisterOne(ctx context.Context, reg *Registry, srv MCPServerConfig) error {
	if strings.TrimSpace(srv.Name) == "" {
		return fmt.Errorf("mcp server name required")
	}
	m.RemoveOne(reg, srv.Name)

	client := mcppkg.NewClient(&mcppkg.Implementation{Name: "orchestrator", Version: "1"}, nil)

	var session *mcppkg.ClientSession
	var err error
	switch {
	case strings.TrimSpace(srv.Command) != "":
		cmd := exec.Command(srv.Command, srv.Args...)
		if len(srv.Env) > 0 {
			env := os.Environ()
			for k, v := range srv.Env {
				env = append(env, k+"="+v)
			}
			cmd.Env = env
		}
		session, err = client.Connect(ctx, &mcppkg.CommandTransport{Command: cmd}, nil)
	case strings.TrimSpace(srv.URL) != "":
		session, err = client.Connect(ctx, &mcppkg.StreamableClientTransport{Endpoint: srv.URL}, nil)
	default:
		return fmt.Errorf("mcp server %q: neither command nor url configured", srv.Name)
	}
	if err != nil {
		return corerr.Wrap(corerr.UpstreamFailure, "connect mcp server "+srv.Name, err)
	}
	m.sessions[srv.Name] = session

	var names []string
	for tool, terr := range session.Tools(ctx, nil) {
		if terr != nil {
			break
		}
		name := sanitizeMCPName(srv.Name + "_" + tool.Name)
		reg.Register(Tool{
			Schema: Schema{
				Name:         name,
				FriendlyName: tool.Name,
				Description:  tool.Description,
			},
			Handler: &mcpToolHandler{session: session, toolName: tool.Name},
		})
		names = append(names, name)
	}
	m.toolNames[srv.Name] = names
	return nil
}

// RemoveOne closes the named server's session, if any, and unregisters
// the tools it previously contributed to reg.
func (m *MCPManager) RemoveOne(reg *Registry, name string) {
	if s, ok := m.sessions[name]; ok {
		_ = s.Close()
		delete(m.sessions, name)
	}
	for _, t := range m.toolNames[name] {
		delete(reg.byName, t)
	}
	delete(m.toolNames, name)
}

// mcpToolHandler adapts one MCP tool call to ports.ToolHandler, collapsing
// the MCP result's text content blocks into the single string this
// registry's Execute contract returns.
type mcpToolHandler struct {
	session  *mcppkg.ClientSession
	toolName string
}

func (h *mcpToolHandler) Invoke(ctx context.Context, args map[string]any, _ ports.ToolCallContext) (string, error) {
	res, err := h.session.CallTool(ctx, &mcppkg.CallToolParams{Name: h.toolName, Arguments: args})
	if err != nil {
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "mcp call "+h.toolName, err)
	}

	var texts []string
	for _, c := range res.Content {
		if t, ok := c.(*mcppkg.TextContent); ok {
			texts = append(texts, t.Text)
		}
	}
	out := strings.Join(texts, "\n")
	if res.IsError {
		return out, corerr.NewTool(corerr.ToolHandlerFailed, "mcp tool reported an error: "+out)
	}
	return out, nil
}

func sanitizeMCPName(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
