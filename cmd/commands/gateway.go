package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/avezard/epigraph/internal/config"
	"github.com/avezard/epigraph/internal/gateway"
	"github.com/avezard/epigraph/internal/history"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Start the Epigraph gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runGateway,
	}
}

func runGateway(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = int(cmd.Int("port"))
	}

	store, err := openTaskStore(cfg)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	turns, err := history.New(config.EpigraphPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer turns.Close()

	docs, err := openVectorStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open document memory: %w", err)
	}

	registry, err := buildRegistry(store, docs)
	if err != nil {
		return err
	}
	slog.Info("tools loaded", "count", len(registry.ToolNames()))

	// The gateway still serves the board API when no model is configured;
	// only /api/chat degrades.
	loop, err := buildLoop(ctx, cfg, registry, turns)
	var assistant gateway.Assistant
	if err != nil {
		slog.Warn("assistant unavailable", "error", err)
	} else {
		assistant = loop
	}

	server := gateway.NewServer(store, turns, assistant, cfg.Gateway.Host, cfg.Gateway.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
