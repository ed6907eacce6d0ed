package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/orchestrator")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers["openai"].Model)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
}

func TestLoad_MissingProviderCredentialsFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/orchestrator")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MissingJWTSecretFails(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://localhost/orchestrator")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_DefaultProviderWithoutCredentialsFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DEFAULT_PROVIDER", "anthropic")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_MCPConfigPathLoadsServerList(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "mcp.yaml")
	contents := "servers:\n" +
		"  - name: search\n" +
		"    command: mcp-search\n" +
		"    args: [\"--stdio\"]\n" +
		"  - name: remote\n" +
		"    url: https://mcp.example.com/mcp\n" +
		"    headers:\n" +
		"      Authorization: Bearer token\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	t.Setenv("MCP_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.MCPServers, 2)
	assert.Equal(t, "search", cfg.MCPServers[0].Name)
	assert.Equal(t, "mcp-search", cfg.MCPServers[0].Command)
	assert.Equal(t, "remote", cfg.MCPServers[1].Name)
	assert.Equal(t, "https://mcp.example.com/mcp", cfg.MCPServers[1].URL)
}

func TestLoad_MCPConfigPathMissingFileFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MCP_CONFIG_PATH", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	_, err := Load()
	require.Error(t, err)
}
