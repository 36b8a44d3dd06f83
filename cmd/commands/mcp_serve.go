package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	epimcp "github.com/avezard/epigraph/internal/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose Epigraph tools as an MCP server (stdio)",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "tools",
				Usage: "Tool names to expose (empty = all)",
			},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP stdio transport, keep logs on stderr and quiet.
	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openTaskStore(cfg)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	docs, err := openVectorStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open document memory: %w", err)
	}

	registry, err := buildRegistry(store, docs)
	if err != nil {
		return err
	}

	filter := cmd.StringSlice("tools")
	slog.Debug("starting MCP server", "filter", filter, "tools", len(registry.ToolNames()))

	server := epimcp.NewServer(registry, filter)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
