// Package store holds the ordered task collection and keeps it in sync with
// a backend.Storage. Positions are 1-based at every exported method and
// translated to slice indexes internally.
package store

import (
	"context"
	"errors"
	"os"
	"strings"

	"taskman/backend"
	"taskman/internal/utils"
)

// Options tune store behaviour.
type Options struct {
	// PartialEdit keeps an accepted name change when the new due date in the
	// same Edit is invalid. When false an Edit is validated as a whole.
	PartialEdit bool
}

// Store is the in-memory ordered task sequence. Every mutation is followed
// by a full Save; a failed Save restores the previous sequence.
type Store struct {
	storage backend.Storage
	opts    Options
	tasks   []backend.Task
}

// New creates an empty store backed by storage. Call Load to read persisted tasks.
func New(storage backend.Storage, opts Options) *Store {
	return &Store{
		storage: storage,
		opts:    opts,
		tasks:   []backend.Task{},
	}
}

// Load replaces the in-memory tasks with the persisted ones. A missing,
// corrupt or unreadable store yields an empty sequence; only a cancelled
// ctx is returned.
func (s *Store) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tasks, err := s.storage.Load(ctx)
	switch {
	case err == nil:
		s.tasks = tasks
		utils.Debugf("loaded %d tasks from %s", len(tasks), s.storage.Location())
		return nil
	case errors.Is(err, os.ErrNotExist):
		s.tasks = []backend.Task{}
		utils.Debugf("no task file at %s, starting empty", s.storage.Location())
		return nil
	case errors.Is(err, backend.ErrCorrupt):
		s.tasks = []backend.Task{}
		utils.Warnf("ignoring unreadable task file: %v", err)
		return nil
	default:
		s.tasks = []backend.Task{}
		utils.Warnf("cannot read %s, starting empty: %v", s.storage.Location(), err)
		return nil
	}
}

// Save writes the full sequence to storage.
func (s *Store) Save(ctx context.Context) error {
	if err := s.storage.Save(ctx, s.tasks); err != nil {
		return utils.ErrPersistenceFailure("save", s.storage.Location(), err)
	}
	utils.Debugf("saved %d tasks to %s", len(s.tasks), s.storage.Location())
	return nil
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// List returns every task with its 1-based position.
func (s *Store) List() []backend.Entry {
	entries := make([]backend.Entry, len(s.tasks))
	for i, t := range s.tasks {
		entries[i] = backend.Entry{Position: i + 1, Task: t.Clone()}
	}
	return entries
}

// Add appends a new, incomplete task. An empty dueDate means no due date.
func (s *Store) Add(ctx context.Context, name, dueDate string) (backend.Task, error) {
	if err := utils.ValidateName(name); err != nil {
		return backend.Task{}, err
	}

	task := backend.Task{Name: name}
	if dueDate != "" {
		if err := utils.ValidateDueDate(dueDate); err != nil {
			return backend.Task{}, err
		}
		task.DueDate = &dueDate
	}

	before := s.snapshot()
	s.tasks = append(s.tasks, task)
	if err := s.commit(ctx, before); err != nil {
		return backend.Task{}, err
	}
	return task.Clone(), nil
}

// Remove deletes the task at position; later tasks move up by one.
func (s *Store) Remove(ctx context.Context, position int) (backend.Task, error) {
	if err := utils.CheckPosition(position, len(s.tasks)); err != nil {
		return backend.Task{}, err
	}

	idx := position - 1
	removed := s.tasks[idx].Clone()

	before := s.snapshot()
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	if err := s.commit(ctx, before); err != nil {
		return backend.Task{}, err
	}
	return removed, nil
}

// Edit changes the name and/or due date of the task at position. Blank
// arguments leave the field as is.
//
// An invalid dueDate rejects the whole edit unless Options.PartialEdit is
// set. Then the rest of the edit is still applied and saved, and the
// validation error is returned together with the updated task.
func (s *Store) Edit(ctx context.Context, position int, name, dueDate string) (backend.Task, error) {
	if err := utils.CheckPosition(position, len(s.tasks)); err != nil {
		return backend.Task{}, err
	}

	idx := position - 1
	changeName := strings.TrimSpace(name) != ""
	changeDue := dueDate != ""

	var dueErr error
	if changeDue {
		dueErr = utils.ValidateDueDate(dueDate)
	}
	if dueErr != nil && !s.opts.PartialEdit {
		return backend.Task{}, dueErr
	}
	if !changeName && !changeDue {
		return s.tasks[idx].Clone(), nil
	}

	before := s.snapshot()
	if changeName {
		s.tasks[idx].Name = name
	}
	if changeDue && dueErr == nil {
		s.tasks[idx].DueDate = &dueDate
	}
	if err := s.commit(ctx, before); err != nil {
		return backend.Task{}, err
	}
	return s.tasks[idx].Clone(), dueErr
}

// Complete marks the task at position as done.
func (s *Store) Complete(ctx context.Context, position int) (backend.Task, error) {
	if err := utils.CheckPosition(position, len(s.tasks)); err != nil {
		return backend.Task{}, err
	}

	idx := position - 1
	before := s.snapshot()
	s.tasks[idx].Completed = true
	if err := s.commit(ctx, before); err != nil {
		return backend.Task{}, err
	}
	return s.tasks[idx].Clone(), nil
}

func (s *Store) snapshot() []backend.Task {
	return backend.CloneTasks(s.tasks)
}

// commit persists the current sequence, restoring before on failure.
func (s *Store) commit(ctx context.Context, before []backend.Task) error {
	if err := s.Save(ctx); err != nil {
		s.tasks = before
		return err
	}
	return nil
}
