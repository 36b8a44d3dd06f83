package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/avezard/epigraph/internal/memory"
)

// NewMemoryCommand returns the memory subcommand.
func NewMemoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Manage the document memory",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Store a document",
				ArgsUsage: "<content>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "topic",
						Usage: "Optional topic label",
					},
				},
				Action: runMemoryAdd,
			},
			{
				Name:      "search",
				Usage:     "Search documents",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 5,
					},
				},
				Action: runMemorySearch,
			},
			{
				Name:      "show",
				Usage:     "Show a document",
				ArgsUsage: "<id>",
				Action:    runMemoryShow,
			},
			{
				Name:      "forget",
				Usage:     "Delete a document",
				ArgsUsage: "<id>",
				Action:    runMemoryForget,
			},
		},
	}
}

func withVectorStore(ctx context.Context, cmd *cli.Command, fn func(*memory.VectorStore) error) error {
	setupLogging(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	docs, err := openVectorStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open document memory: %w", err)
	}
	if !docs.Enabled() {
		return fmt.Errorf("document memory is disabled: configure an embedding driver first")
	}
	return fn(docs)
}

func runMemoryAdd(ctx context.Context, cmd *cli.Command) error {
	content := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if content == "" {
		return fmt.Errorf("usage: epigraph memory add <content>")
	}
	return withVectorStore(ctx, cmd, func(docs *memory.VectorStore) error {
		var meta map[string]string
		if topic := cmd.String("topic"); topic != "" {
			meta = map[string]string{"topic": topic}
		}
		id, err := docs.Add(ctx, content, meta)
		if err != nil {
			return fmt.Errorf("add document: %w", err)
		}
		fmt.Printf("Stored document %s.\n", id)
		return nil
	})
}

func runMemorySearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("usage: epigraph memory search <query>")
	}
	return withVectorStore(ctx, cmd, func(docs *memory.VectorStore) error {
		results, err := docs.Search(ctx, query, int(cmd.Int("limit")))
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No matching documents found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tID\tCONTENT")
		for _, r := range results {
			content := r.Content
			if len(content) > 80 {
				content = content[:77] + "..."
			}
			fmt.Fprintf(w, "%.2f\t%s\t%s\n", r.Similarity, r.ID, content)
		}
		return w.Flush()
	})
}

func runMemoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: epigraph memory show <id>")
	}
	return withVectorStore(ctx, cmd, func(docs *memory.VectorStore) error {
		doc, err := docs.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		fmt.Printf("ID: %s\n", doc.ID)
		for k, v := range doc.Metadata {
			fmt.Printf("%s: %s\n", k, v)
		}
		fmt.Printf("\n%s\n", doc.Content)
		return nil
	})
}

func runMemoryForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: epigraph memory forget <id>")
	}
	return withVectorStore(ctx, cmd, func(docs *memory.VectorStore) error {
		if err := docs.Delete(ctx, id); err != nil {
			return fmt.Errorf("forget: %w", err)
		}
		fmt.Printf("Document %s deleted.\n", id)
		return nil
	})
}
