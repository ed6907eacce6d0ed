// Command orchestrator wires the core engine packages to their concrete
// Postgres/Redis/Qdrant/provider adapters and runs the Task Monitor's
// background sweep until interrupted, using the usual run()-returns-error
// plus log.Fatal top-level shape with a signal.NotifyContext(SIGINT,
// SIGTERM) cooperative shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"

	"github.com/agixt-go/orchestrator/internal/config"
	"github.com/agixt-go/orchestrator/internal/memory"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/orchestrator"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/agixt-go/orchestrator/internal/providers/anthropic"
	"github.com/agixt-go/orchestrator/internal/providers/google"
	"github.com/agixt-go/orchestrator/internal/providers/openai"
	"github.com/agixt-go/orchestrator/internal/store/postgres"
	"github.com/agixt-go/orchestrator/internal/store/rediscache"
	"github.com/agixt-go/orchestrator/internal/taskmonitor"
	"github.com/agixt-go/orchestrator/internal/telemetry"
	"github.com/agixt-go/orchestrator/internal/tools"
)

// otelShutdownTimeout bounds how long process exit waits for the OTLP
// exporters to flush their last batch.
const otelShutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("orchestrator")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	baseCtx := context.Background()

	shutdownOTel, err := telemetry.InitOTel(baseCtx, cfg.Observability)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		shutdownOTel = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	pool, err := postgres.Open(baseCtx, cfg.Database.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer pool.Close()
	if err := postgres.InitSchema(baseCtx, pool); err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}

	agents := postgres.NewAgentStore(pool)
	prompts := postgres.NewPromptStore(pool)
	chains := postgres.NewChainStore(pool)
	tasks := postgres.NewTaskStore(pool)
	users := postgres.NewUserStore(pool)
	var convos ports.ConversationStore = postgres.NewConversationStore(pool)
	convos = rediscache.New(convos, cfg.Database.RedisAddr, cfg.Database.RedisDB)

	var vector ports.VectorStore
	switch cfg.VectorBackend {
	case "pgvector":
		vector = memory.NewPgVectorStore(pool, cfg.Vector.Metric)
	default:
		client, err := qdrant.NewClient(&qdrant.Config{Host: cfg.Vector.Host, Port: cfg.Vector.Port})
		if err != nil {
			return fmt.Errorf("create qdrant client: %w", err)
		}
		vector = memory.NewQdrantVectorStore(client, cfg.Vector.Metric)
	}

	tracedHTTPClient := observability.NewHTTPClient(&http.Client{Timeout: 30 * time.Second})

	registry := tools.NewRegistry(
		tools.WebFetchTool(tracedHTTPClient),
		tools.CodeEvalTool(tools.CodeEvalConfig{
			DataPath: cfg.Sandbox.DataPath,
			Image:    cfg.Sandbox.Image,
		}),
	)

	mcpManager := tools.NewMCPManager()
	defer mcpManager.Close()
	if len(cfg.MCPServers) > 0 {
		mcpServers := make([]tools.MCPServerConfig, len(cfg.MCPServers))
		for i, s := range cfg.MCPServers {
			mcpServers[i] = tools.MCPServerConfig{
				Name: s.Name, Command: s.Command, Args: s.Args, Env: s.Env, URL: s.URL, Headers: s.Headers,
			}
		}
		mcpManager.RegisterAll(baseCtx, registry, mcpServers)
	}

	o := orchestrator.New(agents, prompts, chains, convos, vector, tasks, registry)
	registerProviders(o, cfg)

	runner := orchestrator.TaskRunnerAdapter{Orchestrator: o}
	monitor := taskmonitor.New(tasks, users, runner, []byte(cfg.Auth.JWTSecret))

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	monitor.Start(ctx)
	log.Info().Int("port", cfg.Port).Msg("orchestrator started")

	<-ctx.Done()
	monitor.Stop()
	log.Info().Msg("orchestrator stopped")
	return nil
}

// registerProviders wires every credentialed provider in cfg.Providers
// into the Orchestrator's provider/embedder registries, keyed by name so
// an Agent's Settings.ProviderName selects the right adapter at call
// time.
func registerProviders(o *orchestrator.Orchestrator, cfg config.Config) {
	httpClient := observability.NewHTTPClient(&http.Client{Timeout: 120 * time.Second})

	if pc, ok := cfg.Providers["openai"]; ok {
		o.RegisterProvider("openai", openai.New(pc.APIKey, pc.Model, pc.BaseURL, httpClient))
		o.RegisterEmbedder("openai", openai.NewEmbedder(pc.APIKey, "", pc.BaseURL, 0, 0, httpClient))
	}
	if pc, ok := cfg.Providers["anthropic"]; ok {
		o.RegisterProvider("anthropic", anthropic.New(pc.APIKey, pc.Model, pc.BaseURL, httpClient))
	}
	if pc, ok := cfg.Providers["google"]; ok {
		if p, err := google.New(context.Background(), pc.APIKey, pc.Model, pc.BaseURL, httpClient); err != nil {
			log.Warn().Err(err).Msg("google provider init failed, skipping registration")
		} else {
			o.RegisterProvider("google", p)
		}
	}
}
