package taskgraph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPrefix is the code prefix used when none is configured.
const DefaultPrefix = "TASK"

// Config holds task graph store configuration.
type Config struct {
	DataDir    string
	CodePrefix string // defaults to DefaultPrefix
}

// Store is the SQLite-backed task graph.
type Store struct {
	db     *sql.DB
	prefix string
}

// New opens (creating if needed) the task database under cfg.DataDir,
// applies pragmas and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("taskgraph: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(cfg.DataDir, "tasks.db"))
	if err != nil {
		return nil, fmt.Errorf("taskgraph: open database: %w", err)
	}
	return NewWithDB(db, cfg.CodePrefix)
}

// NewWithDB wraps an already-open database. Used by tests and by callers
// that manage the connection themselves.
func NewWithDB(db *sql.DB, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("taskgraph: pragma %q: %w", p, err)
		}
	}
	s := &Store{db: db, prefix: prefix}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("taskgraph: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			type        TEXT    NOT NULL,
			title       TEXT    NOT NULL,
			description TEXT    NOT NULL,
			status      TEXT    NOT NULL,
			code        TEXT    NOT NULL UNIQUE,
			created_at  TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS task_relations (
			parent_id INTEGER NOT NULL,
			child_id  INTEGER NOT NULL,
			PRIMARY KEY (parent_id, child_id),
			FOREIGN KEY (parent_id) REFERENCES tasks(id) ON DELETE CASCADE,
			FOREIGN KEY (child_id)  REFERENCES tasks(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS task_codes (
			prefix      TEXT    PRIMARY KEY,
			last_suffix INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_status   ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_tasks_created  ON tasks(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_relations_child ON task_relations(child_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Create inserts a new task and assigns it the next code for the store's
// prefix. The counter row is updated in the same transaction as the insert,
// so codes are unique and strictly increasing even across deletes and
// concurrent creates.
func (s *Store) Create(ctx context.Context, params CreateParams) (*Task, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if params.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !ValidType(params.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrValidation, params.Type)
	}
	if params.Status == "" {
		params.Status = InitialStatus()
	}
	if !ValidStatus(params.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, params.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: begin: %w", err)
	}
	defer tx.Rollback()

	var suffix int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO task_codes (prefix, last_suffix) VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET last_suffix = last_suffix + 1
		RETURNING last_suffix`, s.prefix).Scan(&suffix)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: next code: %w", err)
	}
	code := fmt.Sprintf("%s-%04d", s.prefix, suffix)

	createdAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (type, title, description, status, code, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(params.Type), params.Title, params.Description,
		string(params.Status), code, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("taskgraph: insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("taskgraph: insert task: %w", err)
	}
	if err := applyRelations(ctx, tx, id, params.ParentIDs, params.ChildIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("taskgraph: commit: %w", err)
	}

	if params.ParentIDs != nil || params.ChildIDs != nil {
		return s.Get(ctx, id)
	}
	return &Task{
		ID:          id,
		Type:        params.Type,
		Title:       params.Title,
		Description: params.Description,
		Status:      params.Status,
		Code:        code,
		CreatedAt:   createdAt,
	}, nil
}

// Update applies a partial update to the task. At least one field must be
// set; code and creation time never change.
func (s *Store) Update(ctx context.Context, id int64, params UpdateParams) (*Task, error) {
	if params.empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if params.Type != nil {
		if !ValidType(*params.Type) {
			return nil, fmt.Errorf("%w: unknown type %q", ErrValidation, *params.Type)
		}
		sets = append(sets, "type = ?")
		args = append(args, string(*params.Type))
	}
	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrValidation)
		}
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if params.Description != nil {
		desc := strings.TrimSpace(*params.Description)
		if desc == "" {
			return nil, fmt.Errorf("%w: description is required", ErrValidation)
		}
		sets = append(sets, "description = ?")
		args = append(args, desc)
	}
	if params.Status != nil {
		if !ValidStatus(*params.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *params.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*params.Status))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: update task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("taskgraph: update task %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.Get(ctx, id)
}

// SetRelations replaces the task's parent and/or child sets. A nil slice
// leaves that side untouched; an empty non-nil slice clears it.
// Self-references are dropped silently. References to unknown ids fail the
// whole call, nothing is written.
func (s *Store) SetRelations(ctx context.Context, id int64, parents, children []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("taskgraph: begin: %w", err)
	}
	defer tx.Rollback()

	if err := taskExists(ctx, tx, id); err != nil {
		return err
	}
	if err := applyRelations(ctx, tx, id, parents, children); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("taskgraph: commit: %w", err)
	}
	return nil
}

// applyRelations writes the replacement edge sets inside the caller's
// transaction. The subject task must already exist within tx.
func applyRelations(ctx context.Context, tx *sql.Tx, id int64, parents, children []int64) error {
	if parents != nil {
		parents = dropSelf(parents, id)
		if err := allExist(ctx, tx, parents); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_relations WHERE child_id = ?", id); err != nil {
			return fmt.Errorf("taskgraph: clear parents of %d: %w", id, err)
		}
		for _, p := range parents {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO task_relations (parent_id, child_id)
				VALUES (?, ?)`, p, id); err != nil {
				return fmt.Errorf("taskgraph: link %d -> %d: %w", p, id, err)
			}
		}
	}

	if children != nil {
		children = dropSelf(children, id)
		if err := allExist(ctx, tx, children); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_relations WHERE parent_id = ?", id); err != nil {
			return fmt.Errorf("taskgraph: clear children of %d: %w", id, err)
		}
		for _, c := range children {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO task_relations (parent_id, child_id)
				VALUES (?, ?)`, id, c); err != nil {
				return fmt.Errorf("taskgraph: link %d -> %d: %w", id, c, err)
			}
		}
	}
	return nil
}

// Get returns the task with its parent and child references resolved.
func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	t, err := s.scanTask(s.db.QueryRowContext(ctx, `
		SELECT id, type, title, description, status, code, created_at
		FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("taskgraph: get task %d: %w", id, err)
	}

	t.Parents, err = s.refs(ctx, `
		SELECT t.id, t.code, t.title FROM task_relations r
		JOIN tasks t ON t.id = r.parent_id
		WHERE r.child_id = ? ORDER BY t.id`, id)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: parents of %d: %w", id, err)
	}
	t.Children, err = s.refs(ctx, `
		SELECT t.id, t.code, t.title FROM task_relations r
		JOIN tasks t ON t.id = r.child_id
		WHERE r.parent_id = ? ORDER BY t.id`, id)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: children of %d: %w", id, err)
	}
	return t, nil
}

// GetByCode returns the task whose code matches exactly.
func (s *Store) GetByCode(ctx context.Context, code string) (*Task, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM tasks WHERE code = ?", code).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: code %q", ErrNotFound, code)
		}
		return nil, fmt.Errorf("taskgraph: get task %q: %w", code, err)
	}
	return s.Get(ctx, id)
}

// List returns tasks newest-first, optionally filtered by status.
// Relations are resolved for every returned task.
func (s *Store) List(ctx context.Context, status Status) ([]*Task, error) {
	query := `
		SELECT id, type, title, description, status, code, created_at
		FROM tasks`
	args := []any{}
	if status != "" {
		if !ValidStatus(status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	byID := map[int64]*Task{}
	for rows.Next() {
		t, err := s.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("taskgraph: list tasks: %w", err)
		}
		t.Parents = []TaskRef{}
		t.Children = []TaskRef{}
		tasks = append(tasks, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskgraph: list tasks: %w", err)
	}

	rels, err := s.db.QueryContext(ctx, `
		SELECT r.parent_id, r.child_id, p.code, p.title, c.code, c.title
		FROM task_relations r
		JOIN tasks p ON p.id = r.parent_id
		JOIN tasks c ON c.id = r.child_id
		ORDER BY r.parent_id, r.child_id`)
	if err != nil {
		return nil, fmt.Errorf("taskgraph: list relations: %w", err)
	}
	defer rels.Close()
	for rels.Next() {
		var pid, cid int64
		var pCode, pTitle, cCode, cTitle string
		if err := rels.Scan(&pid, &cid, &pCode, &pTitle, &cCode, &cTitle); err != nil {
			return nil, fmt.Errorf("taskgraph: list relations: %w", err)
		}
		if t, ok := byID[pid]; ok {
			t.Children = append(t.Children, TaskRef{ID: cid, Code: cCode, Title: cTitle})
		}
		if t, ok := byID[cid]; ok {
			t.Parents = append(t.Parents, TaskRef{ID: pid, Code: pCode, Title: pTitle})
		}
	}
	if err := rels.Err(); err != nil {
		return nil, fmt.Errorf("taskgraph: list relations: %w", err)
	}
	return tasks, nil
}

// Delete removes the task and every edge it participates in, atomically.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("taskgraph: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_relations WHERE parent_id = ? OR child_id = ?", id, id); err != nil {
		return fmt.Errorf("taskgraph: delete relations of %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("taskgraph: delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("taskgraph: delete task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("taskgraph: commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTask(row scanner) (*Task, error) {
	var t Task
	var typ, status, createdAt string
	if err := row.Scan(&t.ID, &typ, &t.Title, &t.Description, &status, &t.Code, &createdAt); err != nil {
		return nil, err
	}
	t.Type = TaskType(typ)
	t.Status = Status(status)
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	t.CreatedAt = ts
	return &t, nil
}

func (s *Store) refs(ctx context.Context, query string, id int64) ([]TaskRef, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := []TaskRef{}
	for rows.Next() {
		var r TaskRef
		if err := rows.Scan(&r.ID, &r.Code, &r.Title); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func taskExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("taskgraph: lookup task %d: %w", id, err)
	}
	return nil
}

func allExist(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: related task %d does not exist", ErrValidation, id)
		}
		if err != nil {
			return fmt.Errorf("taskgraph: lookup task %d: %w", id, err)
		}
	}
	return nil
}

func dropSelf(ids []int64, self int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
