// Package history persists conversation turns and replays them as chat
// messages for the agent loop.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Turn is one user/assistant exchange.
type Turn struct {
	ID        int64     `json:"id"`
	UserText  string    `json:"user_text"`
	Assistant string    `json:"assistant_text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the SQLite-backed turn log.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the history database under dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an already-open database.
func NewWithDB(db *sql.DB) (*Store, error) {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}
	schema := `
		CREATE TABLE IF NOT EXISTS turns (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			user_text      TEXT NOT NULL,
			assistant_text TEXT NOT NULL,
			created_at     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one completed exchange.
func (s *Store) Append(ctx context.Context, userText, assistantText string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (user_text, assistant_text, created_at)
		VALUES (?, ?, ?)`,
		userText, assistantText, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("history: append turn: %w", err)
	}
	return nil
}

// Recent returns the latest n turns in chronological order.
func (s *Store) Recent(ctx context.Context, n int) ([]Turn, error) {
	if n <= 0 {
		return []Turn{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_text, assistant_text, created_at
		FROM turns ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserText, &t.Assistant, &createdAt); err != nil {
			return nil, fmt.Errorf("history: recent turns: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent turns: %w", err)
	}
	// query returned newest first, callers want oldest first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Clear deletes all recorded turns.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM turns"); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}
