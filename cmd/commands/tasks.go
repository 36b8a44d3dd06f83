package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/avezard/epigraph/internal/taskgraph"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage the task board",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (" + strings.Join(taskgraph.StatusNames(), ", ") + ")",
					},
				},
				Action: runTasksList,
			},
			{
				Name:      "show",
				Usage:     "Show task details",
				ArgsUsage: "<id|code>",
				Action:    runTasksShow,
			},
			{
				Name:      "create",
				Usage:     "Create a task",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Task type (epic, task, subtask)",
						Value: string(taskgraph.TypeTask),
					},
					&cli.StringFlag{
						Name:     "description",
						Aliases:  []string{"d"},
						Usage:    "Task description",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Initial status",
					},
				},
				Action: runTasksCreate,
			},
			{
				Name:      "update",
				Usage:     "Update task fields",
				ArgsUsage: "<id|code>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "New title"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
					&cli.StringFlag{Name: "status", Usage: "New status"},
					&cli.StringFlag{Name: "type", Usage: "New type"},
				},
				Action: runTasksUpdate,
			},
			{
				Name:      "relate",
				Usage:     "Replace the relations of a task",
				ArgsUsage: "<id|code>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "parents", Usage: "Comma-separated parent ids (empty string clears)"},
					&cli.StringFlag{Name: "children", Usage: "Comma-separated child ids (empty string clears)"},
				},
				Action: runTasksRelate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a task and its relations",
				ArgsUsage: "<id|code>",
				Action:    runTasksDelete,
			},
			{
				Name:   "export",
				Usage:  "Export the whole board as YAML",
				Action: runTasksExport,
			},
		},
		DefaultCommand: "list",
	}
}

// resolveTask looks a task up by numeric id or by its code.
func resolveTask(ctx context.Context, store *taskgraph.Store, arg string) (*taskgraph.Task, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return store.Get(ctx, id)
	}
	return store.GetByCode(ctx, arg)
}

func withTaskStore(cmd *cli.Command, fn func(*taskgraph.Store) error) error {
	setupLogging(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openTaskStore(cfg)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	return withTaskStore(cmd, func(store *taskgraph.Store) error {
		status := taskgraph.Status(cmd.String("status"))
		if status != "" && !taskgraph.ValidStatus(status) {
			return fmt.Errorf("unknown status %q (valid: %s)", status, strings.Join(taskgraph.StatusNames(), ", "))
		}

		list, err := store.List(ctx, status)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tTYPE\tSTATUS\tPARENTS\tCHILDREN\tTITLE")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				t.Code, t.Type, t.Status, len(t.Parents), len(t.Children), t.Title)
		}
		return w.Flush()
	})
}

func runTasksShow(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("usage: epigraph tasks show <id|code>")
	}
	return withTaskStore(cmd, func(store *taskgraph.Store) error {
		t, err := resolveTask(ctx, store, arg)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		fmt.Printf("Code:        %s\n", t.Code)
		fmt.Printf("ID:          %d\n", t.ID)
		fmt.Printf("Type:        %s\n", t.Type)
		fmt.Printf("Status:      %s\n", t.Status)
		fmt.Printf("Created:     %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Title:       %s\n", t.Title)
		if t.Description != "" {
			fmt.Printf("\nDescription:\n%s\n", t.Description)
		}
		if len(t.Parents) > 0 {
			fmt.Println("\nParents:")
			for _, p := range t.Parents {
				fmt.Printf("  %s  %s\n", p.Code, p.Title)
			}
		}
		if len(t.Children) > 0 {
			fmt.Println("\nChildren:")
			for _, c := range t.Children {
				fmt.Printf("  %s  %s\n", c.Code, c.Title)
			}
		}
		return nil
	})
}

func runTasksCreate(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if title == "" {
		return fmt.Errorf("usage: epigraph tasks create <title> -d <description>")
	}
	return withTaskStore(cmd, func(store *taskgraph.Store) error {
		t, err := store.Create(ctx, taskgraph.CreateParams{
			Type:        taskgraph.TaskType(cmd.String("type")),
			Title:       title,
			Description: cmd.String("description"),
			Status:      taskgraph.Status(cmd.String("status")),
		})
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		fmt.Println("Created " + t.Summary())
		return nil
	})
}

func runTasksUpdate(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("usage: epigraph tasks update <id|code> [flags]")
	}
	return withTaskStore(cmd, func(store *taskgraph.Store) error {
		t, err := resolveTask(ctx, store, arg)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		params := taskgraph.UpdateParams{}
		if cmd.IsSet("title") {
			v := cmd.String("title")
			params.Title = &v
		}
		if cmd.IsSet("description") {
			v := cmd.String("description")
			params.Description = &v
		}
		if cmd.IsSet("status") {
			v := taskgraph.Status(cmd.String("status"))
			params.Status = &v
		}
		if cmd.IsSet("type") {
			v := taskgraph.TaskType(cmd.String("type"))
			params.Type = &v
		}

		updated, err := store.Update(ctx, t.ID, params)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		fmt.Println("Updated " + updated.Summary())
		return nil
	})
}

// parseIDList parses a comma-separated id list. An empty string yields an
// empty (non-nil) slice, which clears the relation side.
func parseIDList(s string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runTasksRelate(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("usage: epigraph tasks relate <id|code> [--parents ids] [--children ids]")
	}
	if !cmd.IsSet("parents") && !cmd.IsSet("children") {
		return fmt.Errorf("nothing to change: pass --parents and/or --children")
	}
	return withTaskStore(cmd, func(store *taskgraph.Store) error {
		t, err := resolveTask(ctx, store, arg)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		var parents, children []int64
		if cmd.IsSet("parents") {
			if parents, err = parseIDList(cmd.String("parents")); err != nil {
				return err
			}
		}
		if cmd.IsSet("children") {
			if children, err = parseIDList(cmd.String("children")); err != nil {
				return err
			}
		}

		if err := store.SetRelations(ctx, t.ID, parents, children); err != nil {
			return fmt.Errorf("set relations: %w", err)
		}
		updated, err := store.Get(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		fmt.Printf("%s now has %d parent(s) and %d child(ren).\n",
			updated.Code, len(updated.Parents), len(updated.Children))
		return nil
	})
}

func runTasksDelete(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("usage: epigraph tasks delete <id|code>")
	}
	return withTaskStore(cmd, func(store *taskgraph.Store) error {
		t, err := resolveTask(ctx, store, arg)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		if err := store.Delete(ctx, t.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		fmt.Println("Deleted " + t.Summary())
		return nil
	})
}

// exportTask is the YAML shape of a task in board exports. Relations are
// exported as codes so the file stays meaningful across re-imports.
type exportTask struct {
	Code        string   `yaml:"code"`
	Type        string   `yaml:"type"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	CreatedAt   string   `yaml:"created_at"`
	Parents     []string `yaml:"parents,omitempty"`
	Children    []string `yaml:"children,omitempty"`
}

func runTasksExport(ctx context.Context, cmd *cli.Command) error {
	return withTaskStore(cmd, func(store *taskgraph.Store) error {
		list, err := store.List(ctx, "")
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		out := make([]exportTask, 0, len(list))
		for _, t := range list {
			e := exportTask{
				Code:        t.Code,
				Type:        string(t.Type),
				Title:       t.Title,
				Description: t.Description,
				Status:      string(t.Status),
				CreatedAt:   t.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			for _, p := range t.Parents {
				e.Parents = append(e.Parents, p.Code)
			}
			for _, c := range t.Children {
				e.Children = append(e.Children, c.Code)
			}
			out = append(out, e)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(map[string][]exportTask{"tasks": out})
	})
}
