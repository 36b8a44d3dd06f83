package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/avezard/epigraph/internal/taskgraph"
)

// =============================================================================
// list_tasks
// =============================================================================

// ListTasksTool lists the task board, optionally filtered by status.
type ListTasksTool struct {
	store *taskgraph.Store
}

// NewListTasksTool creates a new list_tasks tool.
func NewListTasksTool(store *taskgraph.Store) *ListTasksTool {
	return &ListTasksTool{store: store}
}

// ListTasksManifest returns the manifest for the list_tasks tool.
func ListTasksManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "list_tasks",
		Description: "List work items on the task board",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "list_tasks",
				Description: "List all tasks on the board, newest first, with their codes, statuses and relations. Optionally filter by status.",
				Parameters: map[string]ParamSpec{
					"status": {
						Type:        "string",
						Description: "Only return tasks in this status",
						Enum:        taskgraph.StatusNames(),
					},
				},
			},
		},
	}
}

type listTasksInput struct {
	Status string `json:"status"`
}

// Info returns the tool info for Eino registration.
func (t *ListTasksTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&ListTasksManifest().Tools[0]), nil
}

// InvokableRun lists tasks and renders them as one line per task.
func (t *ListTasksTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input listTasksInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("list_tasks: parse input: %w", err)
	}

	items, err := t.store.List(ctx, taskgraph.Status(input.Status))
	if err != nil {
		return "", fmt.Errorf("list_tasks: %w", err)
	}
	if len(items) == 0 {
		if input.Status != "" {
			return fmt.Sprintf("No tasks with status %q.", input.Status), nil
		}
		return "No tasks on the board.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d task(s):\n", len(items))
	for _, item := range items {
		b.WriteString(item.Summary())
		if len(item.Parents) > 0 {
			fmt.Fprintf(&b, " parents=%s", refCodes(item.Parents))
		}
		if len(item.Children) > 0 {
			fmt.Fprintf(&b, " children=%s", refCodes(item.Children))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func refCodes(refs []taskgraph.TaskRef) string {
	codes := make([]string, len(refs))
	for i, r := range refs {
		codes[i] = r.Code
	}
	return "[" + strings.Join(codes, ",") + "]"
}

var _ tool.InvokableTool = (*ListTasksTool)(nil)

// =============================================================================
// create_task
// =============================================================================

// CreateTaskTool creates a new task, optionally linked to existing tasks.
type CreateTaskTool struct {
	store *taskgraph.Store
}

// NewCreateTaskTool creates a new create_task tool.
func NewCreateTaskTool(store *taskgraph.Store) *CreateTaskTool {
	return &CreateTaskTool{store: store}
}

// CreateTaskManifest returns the manifest for the create_task tool.
func CreateTaskManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "create_task",
		Description: "Create a new work item on the task board",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "create_task",
				Description: "Create a new task. A unique code is assigned automatically. Optionally link it to existing parent or child tasks by their numeric ids.",
				Parameters: map[string]ParamSpec{
					"type": {
						Type:        "string",
						Description: "Granularity of the work item",
						Required:    true,
						Enum:        []string{"epic", "task", "subtask"},
					},
					"title": {
						Type:        "string",
						Description: "Short title",
						Required:    true,
					},
					"description": {
						Type:        "string",
						Description: "Detailed description of the work",
						Required:    true,
					},
					"status": {
						Type:        "string",
						Description: "Initial status (defaults to open)",
						Enum:        taskgraph.StatusNames(),
					},
					"parent_ids": {
						Type:        "array",
						Description: "Numeric ids of tasks this one belongs under",
						Items:       &ParamSpec{Type: "integer"},
					},
					"child_ids": {
						Type:        "array",
						Description: "Numeric ids of tasks nested under this one",
						Items:       &ParamSpec{Type: "integer"},
					},
				},
			},
		},
	}
}

type createTaskInput struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	ParentIDs   []int64 `json:"parent_ids"`
	ChildIDs    []int64 `json:"child_ids"`
}

// Info returns the tool info for Eino registration.
func (t *CreateTaskTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&CreateTaskManifest().Tools[0]), nil
}

// InvokableRun creates the task and links the supplied relations.
func (t *CreateTaskTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input createTaskInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("create_task: parse input: %w", err)
	}

	// insert and relation links share one transaction: a bad reference
	// leaves no task behind
	task, err := t.store.Create(ctx, taskgraph.CreateParams{
		Type:        taskgraph.TaskType(input.Type),
		Title:       input.Title,
		Description: input.Description,
		Status:      taskgraph.Status(input.Status),
		ParentIDs:   input.ParentIDs,
		ChildIDs:    input.ChildIDs,
	})
	if err != nil {
		return "", fmt.Errorf("create_task: %w", err)
	}
	return "Created " + task.Summary(), nil
}

var _ tool.InvokableTool = (*CreateTaskTool)(nil)

// =============================================================================
// update_task
// =============================================================================

// UpdateTaskTool applies a partial update and/or replaces relations.
type UpdateTaskTool struct {
	store *taskgraph.Store
}

// NewUpdateTaskTool creates a new update_task tool.
func NewUpdateTaskTool(store *taskgraph.Store) *UpdateTaskTool {
	return &UpdateTaskTool{store: store}
}

// UpdateTaskManifest returns the manifest for the update_task tool.
func UpdateTaskManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "update_task",
		Description: "Update an existing work item",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "update_task",
				Description: "Update fields of an existing task by its numeric id. Only supplied fields change; the code never changes. Supplying parent_ids or child_ids replaces that side of the relations entirely.",
				Parameters: map[string]ParamSpec{
					"id": {
						Type:        "integer",
						Description: "Numeric id of the task to update",
						Required:    true,
					},
					"type": {
						Type:        "string",
						Description: "New granularity",
						Enum:        []string{"epic", "task", "subtask"},
					},
					"title": {
						Type:        "string",
						Description: "New title",
					},
					"description": {
						Type:        "string",
						Description: "New description",
					},
					"status": {
						Type:        "string",
						Description: "New status",
						Enum:        taskgraph.StatusNames(),
					},
					"parent_ids": {
						Type:        "array",
						Description: "Full replacement set of parent ids (empty array clears)",
						Items:       &ParamSpec{Type: "integer"},
					},
					"child_ids": {
						Type:        "array",
						Description: "Full replacement set of child ids (empty array clears)",
						Items:       &ParamSpec{Type: "integer"},
					},
				},
			},
		},
	}
}

type updateTaskInput struct {
	ID          int64   `json:"id"`
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	ParentIDs   []int64 `json:"parent_ids"`
	ChildIDs    []int64 `json:"child_ids"`
}

// Info returns the tool info for Eino registration.
func (t *UpdateTaskTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&UpdateTaskManifest().Tools[0]), nil
}

// InvokableRun updates fields and relations as supplied.
func (t *UpdateTaskTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input updateTaskInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("update_task: parse input: %w", err)
	}

	params := taskgraph.UpdateParams{}
	if input.Type != nil {
		v := taskgraph.TaskType(*input.Type)
		params.Type = &v
	}
	if input.Title != nil {
		params.Title = input.Title
	}
	if input.Description != nil {
		params.Description = input.Description
	}
	if input.Status != nil {
		v := taskgraph.Status(*input.Status)
		params.Status = &v
	}

	hasFields := params.Type != nil || params.Title != nil || params.Description != nil || params.Status != nil
	hasRelations := input.ParentIDs != nil || input.ChildIDs != nil
	if !hasFields && !hasRelations {
		return "", fmt.Errorf("update_task: %w: nothing to update", ErrToolInput)
	}

	if hasFields {
		if _, err := t.store.Update(ctx, input.ID, params); err != nil {
			return "", fmt.Errorf("update_task: %w", err)
		}
	}
	if hasRelations {
		if err := t.store.SetRelations(ctx, input.ID, input.ParentIDs, input.ChildIDs); err != nil {
			return "", fmt.Errorf("update_task: %w", err)
		}
	}

	task, err := t.store.Get(ctx, input.ID)
	if err != nil {
		return "", fmt.Errorf("update_task: %w", err)
	}
	return "Updated " + task.Summary(), nil
}

var _ tool.InvokableTool = (*UpdateTaskTool)(nil)

// =============================================================================
// delete_task
// =============================================================================

// DeleteTaskTool removes a task and all its relations.
type DeleteTaskTool struct {
	store *taskgraph.Store
}

// NewDeleteTaskTool creates a new delete_task tool.
func NewDeleteTaskTool(store *taskgraph.Store) *DeleteTaskTool {
	return &DeleteTaskTool{store: store}
}

// DeleteTaskManifest returns the manifest for the delete_task tool.
func DeleteTaskManifest() *ToolManifest {
	return &ToolManifest{
		Name:        "delete_task",
		Description: "Delete a work item from the task board",
		Provider:    "native",
		Tools: []ToolSpec{
			{
				Name:        "delete_task",
				Description: "Permanently delete a task by its numeric id. All links to and from the task are removed as well.",
				Parameters: map[string]ParamSpec{
					"id": {
						Type:        "integer",
						Description: "Numeric id of the task to delete",
						Required:    true,
					},
				},
			},
		},
	}
}

type deleteTaskInput struct {
	ID int64 `json:"id"`
}

// Info returns the tool info for Eino registration.
func (t *DeleteTaskTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(&DeleteTaskManifest().Tools[0]), nil
}

// InvokableRun deletes the task.
func (t *DeleteTaskTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input deleteTaskInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("delete_task: parse input: %w", err)
	}

	task, err := t.store.Get(ctx, input.ID)
	if err != nil {
		return "", fmt.Errorf("delete_task: %w", err)
	}
	if err := t.store.Delete(ctx, input.ID); err != nil {
		return "", fmt.Errorf("delete_task: %w", err)
	}
	return "Deleted " + task.Summary(), nil
}

var _ tool.InvokableTool = (*DeleteTaskTool)(nil)
