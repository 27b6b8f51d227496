package backend

import (
	"context"
	"errors"
)

// Task represents a todo item
type Task struct {
	Name      string  `json:"name"`
	DueDate   *string `json:"due_date"` // YYYY-MM-DD, nil when unset
	Completed bool    `json:"completed"`
}

// Due returns the due date or an empty string when unset.
func (t Task) Due() string {
	if t.DueDate == nil {
		return ""
	}
	return *t.DueDate
}

// Clone returns a copy of t that shares no memory with it.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

// Entry pairs a task with its 1-based position in the store.
type Entry struct {
	Position int
	Task     Task
}

// ErrCorrupt is returned by Load when the stored data exists but cannot be parsed.
var ErrCorrupt = errors.New("stored tasks are corrupt")

// Storage defines the interface for task persistence backends.
// A backend stores the full ordered task sequence and hands it back unchanged.
type Storage interface {
	// Load returns the persisted tasks in order. A missing store yields an
	// error matching os.ErrNotExist; unparseable content yields ErrCorrupt.
	Load(ctx context.Context) ([]Task, error)

	// Save replaces the persisted tasks with the given sequence.
	Save(ctx context.Context, tasks []Task) error

	// Location describes where tasks are stored (used in log messages).
	Location() string

	// Connection management
	Close() error
}

// CloneTasks returns a deep copy of tasks, including due date pointers.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
