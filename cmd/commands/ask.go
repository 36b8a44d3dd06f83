package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/avezard/epigraph/internal/config"
	"github.com/avezard/epigraph/internal/history"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a message to the assistant and print the response",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not load or record conversation history",
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	message := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if message == "" {
		return fmt.Errorf("usage: epigraph ask <message>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openTaskStore(cfg)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	var turns *history.Store
	if !cmd.Bool("no-history") {
		turns, err = history.New(config.EpigraphPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer turns.Close()
	}

	docs, err := openVectorStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open document memory: %w", err)
	}

	registry, err := buildRegistry(store, docs)
	if err != nil {
		return err
	}

	loop, err := buildLoop(ctx, cfg, registry, turns)
	if err != nil {
		return err
	}

	reply, err := loop.HandleUserMessage(ctx, message)
	if err != nil {
		return err
	}
	fmt.Println(reply)

	if turns != nil {
		if err := turns.Append(ctx, message, reply); err != nil {
			slog.Warn("failed to persist conversation turn", "error", err)
		}
	}
	return nil
}
