// Package taskgraph provides the persistent work-item graph: epics, tasks and
// subtasks linked by directed parent/child edges.
package taskgraph

import (
	"fmt"
	"time"
)

// TaskType is the granularity of a work item.
type TaskType string

const (
	TypeEpic    TaskType = "epic"
	TypeTask    TaskType = "task"
	TypeSubtask TaskType = "subtask"
)

// TaskTypes lists all valid task types.
var TaskTypes = []TaskType{TypeEpic, TypeTask, TypeSubtask}

// ValidType reports whether t is a known task type.
func ValidType(t TaskType) bool {
	for _, v := range TaskTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Status is the workflow state of a task. Membership in the fixed set is
// enforced on every write; the labels themselves are a store concern.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInProgress    Status = "in_progress"
	StatusClarification Status = "requires_clarification"
	StatusReady         Status = "ready"
	StatusDone          Status = "done"
)

// Statuses lists all workflow states in order. The first entry is the
// initial state assigned when a task is created without an explicit status.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusClarification, StatusReady, StatusDone}

// InitialStatus returns the state assigned to new tasks by default.
func InitialStatus() Status { return Statuses[0] }

// ValidStatus reports whether s is a known workflow state.
func ValidStatus(s Status) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// StatusNames returns the workflow states as plain strings, for schemas and
// usage messages.
func StatusNames() []string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return names
}

// TaskRef is a lightweight reference to a related task. Relations resolve to
// refs rather than full task bodies to keep graph reads bounded.
type TaskRef struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Task is a single work item with its resolved relations.
type Task struct {
	ID          int64     `json:"id"`
	Type        TaskType  `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"`
	Parents     []TaskRef `json:"parents"`
	Children    []TaskRef `json:"children"`
}

// Summary renders a one-line human-readable description of the task,
// used in tool results and CLI output.
func (t *Task) Summary() string {
	return fmt.Sprintf("%s [%s] %q (%s, id=%d)", t.Code, t.Status, t.Title, t.Type, t.ID)
}

// CreateParams holds the input for creating a task. Relation ids, when
// supplied, are validated and linked in the same transaction as the insert,
// so a bad reference leaves no task behind.
type CreateParams struct {
	Type        TaskType
	Title       string
	Description string
	Status      Status  // empty = InitialStatus
	ParentIDs   []int64 // optional initial parents
	ChildIDs    []int64 // optional initial children
}

// UpdateParams holds a partial update. Nil fields are left untouched.
// Code and CreatedAt are immutable and intentionally absent.
type UpdateParams struct {
	Type        *TaskType
	Title       *string
	Description *string
	Status      *Status
}

func (p UpdateParams) empty() bool {
	return p.Type == nil && p.Title == nil && p.Description == nil && p.Status == nil
}
