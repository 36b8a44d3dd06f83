package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/avezard/epigraph/internal/agent"
	"github.com/avezard/epigraph/internal/config"
	"github.com/avezard/epigraph/internal/history"
	"github.com/avezard/epigraph/internal/memory"
	"github.com/avezard/epigraph/internal/models"
	"github.com/avezard/epigraph/internal/taskgraph"
	"github.com/avezard/epigraph/internal/tools"
)

// setupLogging switches the default logger to debug level when requested.
// Logs go to stderr so stdout stays clean for command output.
func setupLogging(cmd *cli.Command) {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads the configuration from the --config flag, falling back to
// defaults when the file is missing.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// openTaskStore opens the task board under the Epigraph data directory.
func openTaskStore(cfg *config.Config) (*taskgraph.Store, error) {
	return taskgraph.New(taskgraph.Config{
		DataDir:    config.EpigraphPath(),
		CodePrefix: cfg.Tasks.CodePrefix,
	})
}

// openVectorStore opens the document memory, or returns nil when no
// embedding driver is configured.
func openVectorStore(ctx context.Context, cfg *config.Config) (*memory.VectorStore, error) {
	if cfg.Embedding.Driver == "" {
		slog.Debug("no embedding driver configured, document memory disabled")
		return nil, nil
	}
	embedder, err := memory.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return memory.NewVectorStore(ctx, filepath.Join(config.EpigraphPath(), "documents"), embedder)
}

// buildRegistry assembles the tool registry over the given stores.
func buildRegistry(store *taskgraph.Store, docs *memory.VectorStore) (*tools.Registry, error) {
	r := tools.NewRegistry()
	if err := tools.RegisterTaskTools(r, store); err != nil {
		return nil, fmt.Errorf("register task tools: %w", err)
	}
	if err := tools.RegisterDocumentTools(r, docs); err != nil {
		return nil, fmt.Errorf("register document tools: %w", err)
	}
	return r, nil
}

// buildLoop wires model, tools and history into the conversation loop.
func buildLoop(ctx context.Context, cfg *config.Config, registry *tools.Registry, turns *history.Store) (*agent.Loop, error) {
	provider, err := models.DefaultProvider(cfg)
	if err != nil {
		return nil, err
	}
	chatModel, err := models.CreateModel(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}

	return agent.New(ctx, agent.Config{
		Model:        chatModel,
		Registry:     registry,
		History:      history.NewLoader(turns),
		SystemPrompt: cfg.Agent.SystemPrompt,
		MaxSteps:     cfg.Agent.MaxSteps,
		HistoryTurns: cfg.Agent.HistoryTurns,
	})
}
