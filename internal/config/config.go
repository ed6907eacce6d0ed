// Package config loads the orchestrator's runtime configuration from
// environment variables (optionally via a .env file), grounded on the
// internal/config.Load idiom: TrimSpace every os.Getenv read,
// apply defaults after parsing, and fail loudly on a missing required
// value rather than silently defaulting it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig binds one named LLMProvider adapter to its credentials.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// DatabaseConfig holds the DSNs for the configured store adapters.
type DatabaseConfig struct {
	PostgresDSN string
	RedisAddr   string
	RedisDB     int
}

// VectorConfig configures the Qdrant-backed Memory Store adapter.
type VectorConfig struct {
	Host   string
	Port   int
	Metric string // "cosine" (default), "l2"/"euclidean", "ip"/"dot"
}

// AuthConfig configures the Task Monitor's impersonation JWTs.
type AuthConfig struct {
	JWTSecret        string
	TokenExpiryHours int
}

// SandboxConfig configures the code-eval tool's Docker sandbox.
type SandboxConfig struct {
	Enabled   bool
	DataPath  string
	Image     string
	TimeoutS  int
}

// ObservabilityConfig configures the OTLP exporters wired at process
// start by internal/telemetry.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// MCPServerConfig names one external MCP server the Tool Registry should
// connect to at startup: either a local stdio subprocess (Command/Args/Env)
// or a remote Streamable HTTP endpoint (URL/Headers).
type MCPServerConfig struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// mcpServersFile is the on-disk shape of the file MCP_CONFIG_PATH points
// at, loaded as YAML rather than an environment variable since a server
// list is inherently structured and variable-length.
type mcpServersFile struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// Config is the orchestrator process's complete runtime configuration.
type Config struct {
	Host string
	Port int

	LogPath  string
	LogLevel string

	DefaultProvider string
	Providers       map[string]ProviderConfig
	EmbedderName    string

	Database DatabaseConfig
	Vector   VectorConfig
	// VectorBackend selects the Memory Store's VectorStore adapter:
	// "qdrant" (default) or "pgvector".
	VectorBackend string
	Auth          AuthConfig
	Sandbox       SandboxConfig
	Observability ObservabilityConfig

	MaxToolParallelism int
	ContextResults     int

	// MCPServers lists external MCP servers to connect to and register
	// into the Tool Registry at startup, loaded from MCP_CONFIG_PATH.
	MCPServers []MCPServerConfig
}

// Load reads Config from the process environment, overlaying a .env file
// if present. Use Overload (not Load) so a repository-local .env
// deterministically controls development behavior.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Providers:          map[string]ProviderConfig{},
		MaxToolParallelism: 4,
		ContextResults:     5,
	}

	cfg.Host = firstNonEmpty(envTrim("HOST"), "0.0.0.0")
	cfg.Port = envInt("PORT", 8080)
	cfg.LogPath = envTrim("LOG_PATH")
	cfg.LogLevel = firstNonEmpty(envTrim("LOG_LEVEL"), "info")

	if v := envTrim("OPENAI_API_KEY"); v != "" {
		cfg.Providers["openai"] = ProviderConfig{
			APIKey:  v,
			Model:   firstNonEmpty(envTrim("OPENAI_MODEL"), "gpt-4o-mini"),
			BaseURL: envTrim("OPENAI_BASE_URL"),
		}
	}
	if v := envTrim("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers["anthropic"] = ProviderConfig{
			APIKey:  v,
			Model:   firstNonEmpty(envTrim("ANTHROPIC_MODEL"), "claude-3-5-sonnet-latest"),
			BaseURL: envTrim("ANTHROPIC_BASE_URL"),
		}
	}
	if v := envTrim("GOOGLE_API_KEY"); v != "" {
		cfg.Providers["google"] = ProviderConfig{
			APIKey:  v,
			Model:   firstNonEmpty(envTrim("GOOGLE_MODEL"), "gemini-1.5-pro"),
			BaseURL: envTrim("GOOGLE_BASE_URL"),
		}
	}
	cfg.DefaultProvider = firstNonEmpty(envTrim("DEFAULT_PROVIDER"), "openai")
	cfg.EmbedderName = firstNonEmpty(envTrim("EMBEDDER_NAME"), cfg.DefaultProvider)

	cfg.Database.PostgresDSN = envTrim("DATABASE_URL")
	cfg.Database.RedisAddr = firstNonEmpty(envTrim("REDIS_ADDR"), "localhost:6379")
	cfg.Database.RedisDB = envInt("REDIS_DB", 0)

	cfg.Vector.Host = firstNonEmpty(envTrim("QDRANT_HOST"), "localhost")
	cfg.Vector.Port = envInt("QDRANT_PORT", 6334)
	cfg.Vector.Metric = strings.ToLower(firstNonEmpty(envTrim("QDRANT_METRIC"), "cosine"))
	cfg.VectorBackend = strings.ToLower(firstNonEmpty(envTrim("VECTOR_BACKEND"), "qdrant"))

	cfg.Auth.JWTSecret = envTrim("JWT_SECRET")
	cfg.Auth.TokenExpiryHours = envInt("TOKEN_EXPIRY_HOURS", 24)

	cfg.Sandbox.Enabled = envTrim("SANDBOX_ENABLED") == "true"
	cfg.Sandbox.DataPath = firstNonEmpty(envTrim("SANDBOX_DATA_PATH"), "/tmp/orchestrator-sandbox")
	cfg.Sandbox.Image = firstNonEmpty(envTrim("SANDBOX_IMAGE"), "code-sandbox")
	cfg.Sandbox.TimeoutS = envInt("SANDBOX_TIMEOUT_SECONDS", 60)

	cfg.Observability.OTLPEndpoint = envTrim("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.Observability.ServiceName = firstNonEmpty(envTrim("OTEL_SERVICE_NAME"), "orchestrator")
	cfg.Observability.ServiceVersion = firstNonEmpty(envTrim("OTEL_SERVICE_VERSION"), "dev")
	cfg.Observability.Environment = firstNonEmpty(envTrim("ENVIRONMENT"), "development")

	if n := envInt("MAX_TOOL_PARALLELISM", 0); n > 0 {
		cfg.MaxToolParallelism = n
	}
	if n := envInt("CONTEXT_RESULTS", 0); n > 0 {
		cfg.ContextResults = n
	}

	if path := envTrim("MCP_CONFIG_PATH"); path != "" {
		servers, err := loadMCPServers(path)
		if err != nil {
			return Config{}, fmt.Errorf("load MCP_CONFIG_PATH: %w", err)
		}
		cfg.MCPServers = servers
	}

	if len(cfg.Providers) == 0 {
		return Config{}, errors.New("at least one of OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY is required")
	}
	if _, ok := cfg.Providers[cfg.DefaultProvider]; !ok {
		return Config{}, fmt.Errorf("DEFAULT_PROVIDER %q has no matching credentials configured", cfg.DefaultProvider)
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required for task impersonation")
	}
	if cfg.Database.PostgresDSN == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func envTrim(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func envInt(name string, def int) int {
	v := envTrim(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func loadMCPServers(path string) ([]MCPServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f mcpServersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Servers, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
