package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avezard/epigraph/internal/taskgraph"
)

func newTaskRegistry(t *testing.T) (*Registry, *taskgraph.Store) {
	t.Helper()
	store, err := taskgraph.New(taskgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("taskgraph.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	r := NewRegistry()
	if err := RegisterTaskTools(r, store); err != nil {
		t.Fatalf("RegisterTaskTools: %v", err)
	}
	return r, store
}

func TestCreateAndListTasks(t *testing.T) {
	r, _ := newTaskRegistry(t)
	ctx := context.Background()

	out, err := r.Execute(ctx, "create_task",
		`{"type":"task","title":"Ship the release","description":"Cut and publish v1"}`)
	if err != nil {
		t.Fatalf("create_task: %v", err)
	}
	if !strings.Contains(out, "TASK-0001") {
		t.Fatalf("create_task output = %q, want code TASK-0001", out)
	}

	out, err = r.Execute(ctx, "list_tasks", `{}`)
	if err != nil {
		t.Fatalf("list_tasks: %v", err)
	}
	if !strings.Contains(out, "Ship the release") {
		t.Fatalf("list_tasks output = %q", out)
	}
}

func TestCreateTaskWithRelations(t *testing.T) {
	r, store := newTaskRegistry(t)
	ctx := context.Background()

	if _, err := r.Execute(ctx, "create_task",
		`{"type":"epic","title":"Epic","description":"The epic"}`); err != nil {
		t.Fatalf("create epic: %v", err)
	}
	if _, err := r.Execute(ctx, "create_task",
		`{"type":"task","title":"Child","description":"Nested work","parent_ids":[1]}`); err != nil {
		t.Fatalf("create child: %v", err)
	}

	epic, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(epic.Children) != 1 || epic.Children[0].Title != "Child" {
		t.Fatalf("epic children = %+v", epic.Children)
	}
}

func TestCreateTaskBadRelationPersistsNothing(t *testing.T) {
	r, store := newTaskRegistry(t)
	ctx := context.Background()

	_, err := r.Execute(ctx, "create_task",
		`{"type":"task","title":"orphan","description":"d","parent_ids":[999]}`)
	if !errors.Is(err, taskgraph.ErrValidation) {
		t.Fatalf("create_task = %v, want ErrValidation", err)
	}

	// the insert rolled back with the failed link
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("board after failed create = %+v, want empty", all)
	}

	out, err := r.Execute(ctx, "create_task",
		`{"type":"task","title":"valid","description":"d"}`)
	if err != nil {
		t.Fatalf("create_task: %v", err)
	}
	if !strings.Contains(out, "TASK-0001") {
		t.Fatalf("create_task output = %q, want code TASK-0001", out)
	}
}

func TestUpdateTaskStatusAndRelations(t *testing.T) {
	r, store := newTaskRegistry(t)
	ctx := context.Background()

	for _, args := range []string{
		`{"type":"task","title":"a","description":"d"}`,
		`{"type":"task","title":"b","description":"d"}`,
	} {
		if _, err := r.Execute(ctx, "create_task", args); err != nil {
			t.Fatalf("create_task: %v", err)
		}
	}

	out, err := r.Execute(ctx, "update_task", `{"id":1,"status":"in_progress","child_ids":[2]}`)
	if err != nil {
		t.Fatalf("update_task: %v", err)
	}
	if !strings.Contains(out, "in_progress") {
		t.Fatalf("update_task output = %q", out)
	}

	task, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != taskgraph.StatusInProgress || len(task.Children) != 1 {
		t.Fatalf("task after update = %+v", task)
	}

	if _, err := r.Execute(ctx, "update_task", `{"id":1}`); !errors.Is(err, ErrToolInput) {
		t.Fatalf("empty update = %v, want ErrToolInput", err)
	}
}

func TestDeleteTask(t *testing.T) {
	r, store := newTaskRegistry(t)
	ctx := context.Background()

	if _, err := r.Execute(ctx, "create_task",
		`{"type":"task","title":"gone soon","description":"d"}`); err != nil {
		t.Fatalf("create_task: %v", err)
	}

	out, err := r.Execute(ctx, "delete_task", `{"id":1}`)
	if err != nil {
		t.Fatalf("delete_task: %v", err)
	}
	if !strings.Contains(out, "Deleted") {
		t.Fatalf("delete_task output = %q", out)
	}

	if _, err := store.Get(ctx, 1); !errors.Is(err, taskgraph.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}

	if _, err := r.Execute(ctx, "delete_task", `{"id":1}`); !errors.Is(err, taskgraph.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestExecuteValidation(t *testing.T) {
	r, _ := newTaskRegistry(t)
	ctx := context.Background()

	if _, err := r.Execute(ctx, "no_such_tool", `{}`); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("unknown tool = %v, want ErrUnknownTool", err)
	}
	// schema validation runs before the handler
	if _, err := r.Execute(ctx, "create_task", `{"type":"story","title":"x","description":"d"}`); !errors.Is(err, ErrToolInput) {
		t.Fatalf("bad enum = %v, want ErrToolInput", err)
	}
	if _, err := r.Execute(ctx, "create_task", `{"type":"task"}`); !errors.Is(err, ErrToolInput) {
		t.Fatalf("missing required = %v, want ErrToolInput", err)
	}
}

func TestRegistryNamesAndDescriptions(t *testing.T) {
	r, _ := newTaskRegistry(t)

	names := r.ToolNames()
	want := []string{"create_task", "delete_task", "list_tasks", "update_task"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}

	descs := r.AllToolDescriptions()
	if descs["create_task"] == "" {
		t.Fatal("create_task should have a description")
	}

	if len(r.Tools()) != 4 {
		t.Fatalf("Tools() len = %d, want 4", len(r.Tools()))
	}
}
