package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/avezard/epigraph/internal/config"
	"github.com/avezard/epigraph/internal/history"
)

// NewHistoryCommand returns the history subcommand.
func NewHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect the conversation history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print recent conversation turns",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of turns to show",
						Value: 20,
					},
				},
				Action: runHistoryList,
			},
			{
				Name:   "clear",
				Usage:  "Delete all recorded turns",
				Action: runHistoryClear,
			},
		},
		DefaultCommand: "list",
	}
}

func withHistory(cmd *cli.Command, fn func(*history.Store) error) error {
	setupLogging(cmd)
	turns, err := history.New(config.EpigraphPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer turns.Close()
	return fn(turns)
}

func runHistoryList(ctx context.Context, cmd *cli.Command) error {
	return withHistory(cmd, func(turns *history.Store) error {
		list, err := turns.Recent(ctx, int(cmd.Int("limit")))
		if err != nil {
			return fmt.Errorf("load turns: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No conversation history.")
			return nil
		}
		for _, t := range list {
			fmt.Printf("[%s]\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("you:      %s\n", t.UserText)
			fmt.Printf("epigraph: %s\n\n", t.Assistant)
		}
		return nil
	})
}

func runHistoryClear(ctx context.Context, cmd *cli.Command) error {
	return withHistory(cmd, func(turns *history.Store) error {
		if err := turns.Clear(ctx); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Println("History cleared.")
		return nil
	})
}
