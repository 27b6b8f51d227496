// Package sqlite implements a Storage backend on a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
	"taskman/backend"
	"taskman/internal/utils"
)

// DefaultFileName is the database used when no path is configured.
const DefaultFileName = "tasks.db"

// CorruptSuffix is appended to a database file that could not be read
// before a fresh one is written in its place.
const CorruptSuffix = ".corrupt"

func init() {
	backend.Register("sqlite", func(path string) (backend.Storage, error) {
		return New(path)
	})
}

// Backend implements backend.Storage using SQLite
type Backend struct {
	path    string
	db      *sql.DB
	corrupt bool // set by Load; the next Save starts a fresh database
}

// New creates a new SQLite backend. The database is opened on first use so
// that loading from a missing file never creates one.
func New(path string) (*Backend, error) {
	if path == "" {
		path = DefaultFileName
	}
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, path)
	}
	return &Backend{path: path}, nil
}

// Location returns the database path
func (b *Backend) Location() string {
	return b.path
}

// Close closes the database if it was opened
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// ensureOpen opens the database if not already open
func (b *Backend) ensureOpen() error {
	if b.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return err
	}
	b.db = db
	return nil
}

// initSchema creates the tasks table if it doesn't exist
func (b *Backend) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			position INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			due_date TEXT,
			completed INTEGER NOT NULL DEFAULT 0
		);
	`
	_, err := b.db.ExecContext(ctx, schema)
	return err
}

// Load returns all tasks ordered by position. A missing database file
// returns an error matching os.ErrNotExist; a file that is not a task
// database returns backend.ErrCorrupt.
func (b *Backend) Load(ctx context.Context) ([]backend.Task, error) {
	tasks, err := b.load(ctx)
	b.corrupt = errors.Is(err, backend.ErrCorrupt)
	return tasks, err
}

func (b *Backend) load(ctx context.Context) ([]backend.Task, error) {
	if _, err := os.Stat(b.path); err != nil {
		return nil, fmt.Errorf("open %s: %w", b.path, err)
	}
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx, "SELECT name, due_date, completed FROM tasks ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", backend.ErrCorrupt, b.path, err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []backend.Task{}
	for rows.Next() {
		var t backend.Task
		var due sql.NullString
		var completed int
		if err := rows.Scan(&t.Name, &due, &completed); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", backend.ErrCorrupt, b.path, err)
		}
		if due.Valid {
			if err := utils.ValidateDueDate(due.String); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", backend.ErrCorrupt, b.path, err)
			}
			d := due.String
			t.DueDate = &d
		}
		t.Completed = completed != 0
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", backend.ErrCorrupt, b.path, err)
	}
	return tasks, nil
}

// Save replaces the table contents with tasks in one transaction.
// If the last Load found the file corrupt, it is moved aside first.
func (b *Backend) Save(ctx context.Context, tasks []backend.Task) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if b.corrupt {
		if err := b.discardCorrupt(); err != nil {
			return err
		}
	}
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if err := b.initSchema(ctx); err != nil {
		return err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO tasks (position, name, due_date, completed) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, t := range tasks {
		var due sql.NullString
		if t.DueDate != nil {
			due = sql.NullString{String: *t.DueDate, Valid: true}
		}
		completed := 0
		if t.Completed {
			completed = 1
		}
		if _, err := stmt.ExecContext(ctx, i+1, t.Name, due, completed); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// discardCorrupt closes the database and renames the file to CorruptSuffix.
func (b *Backend) discardCorrupt() error {
	if err := b.Close(); err != nil {
		return err
	}
	backup := b.path + CorruptSuffix
	if err := os.Rename(b.path, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("move corrupt database aside: %w", err)
	}
	_ = os.Remove(b.path + "-journal")
	b.corrupt = false
	utils.Infof("moved unreadable database to %s", backup)
	return nil
}

// Verify interface compliance at compile time
var _ backend.Storage = (*Backend)(nil)
