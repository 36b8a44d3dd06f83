// Package commands holds the Epigraph CLI command tree.
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/avezard/epigraph/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "epigraph",
		Usage: "A task-board assistant driven by tool-calling LLMs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewGatewayCommand(),
			NewAskCommand(),
			NewTasksCommand(),
			NewHistoryCommand(),
			NewMemoryCommand(),
			NewMCPServeCommand(),
		},
	}
}
