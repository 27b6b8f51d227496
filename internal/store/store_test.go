package store_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskman/backend"
	"taskman/backend/file"
	"taskman/internal/store"
	"taskman/internal/utils"
)

// fakeStorage records saves and can be told to fail.
type fakeStorage struct {
	tasks   []backend.Task
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStorage) Load(ctx context.Context) ([]backend.Task, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return backend.CloneTasks(f.tasks), nil
}

func (f *fakeStorage) Save(ctx context.Context, tasks []backend.Task) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.tasks = backend.CloneTasks(tasks)
	return nil
}

func (f *fakeStorage) Location() string { return "memory" }
func (f *fakeStorage) Close() error     { return nil }

func strPtr(s string) *string { return &s }

// newStore returns a loaded store over a fake holding the named tasks.
func newStore(t *testing.T, opts store.Options, names ...string) (*store.Store, *fakeStorage) {
	t.Helper()

	fake := &fakeStorage{}
	for _, n := range names {
		fake.tasks = append(fake.tasks, backend.Task{Name: n})
	}
	s := store.New(fake, opts)
	require.NoError(t, s.Load(context.Background()))
	return s, fake
}

func names(entries []backend.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Task.Name
	}
	return out
}

// =============================================================================
// Load / Save
// =============================================================================

func TestLoadMissingStartsEmpty(t *testing.T) {
	fake := &fakeStorage{loadErr: fmt.Errorf("read tasks.json: %w", os.ErrNotExist)}
	s := store.New(fake, store.Options{})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List())
}

func TestLoadCorruptStartsEmpty(t *testing.T) {
	fake := &fakeStorage{
		tasks:   []backend.Task{{Name: "stale"}},
		loadErr: fmt.Errorf("%w: bad json", backend.ErrCorrupt),
	}
	s := store.New(fake, store.Options{})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 0, s.Len())
}

func TestLoadUnreadableStartsEmpty(t *testing.T) {
	var logs bytes.Buffer
	utils.GetLogger().SetOutput(&logs)
	t.Cleanup(func() { utils.GetLogger().SetOutput(nil) })

	fake := &fakeStorage{loadErr: errors.New("permission denied")}
	s := store.New(fake, store.Options{})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 0, s.Len())
	assert.Contains(t, logs.String(), "[WARN]")
	assert.Contains(t, logs.String(), "permission denied")
}

func TestLoadCancelledContext(t *testing.T) {
	s, _ := newStore(t, store.Options{}, "A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Load(ctx), context.Canceled)
}

func TestLoadReplacesState(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A")
	ctx := context.Background()

	_, err := s.Add(ctx, "B", "")
	require.NoError(t, err)

	fake.tasks = []backend.Task{{Name: "Z"}}
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []string{"Z"}, names(s.List()))
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	s, fake := newStore(t, store.Options{})
	fake.saveErr = errors.New("disk full")

	err := s.Save(context.Background())
	require.ErrorIs(t, err, utils.ErrPersistence)
	assert.ErrorIs(t, err, fake.saveErr)
}

func TestSaveLoadRoundTripThroughFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")

	be, err := file.New(file.Config{FilePath: path})
	require.NoError(t, err)
	s := store.New(be, store.Options{})
	require.NoError(t, s.Load(ctx))

	_, err = s.Add(ctx, "A", "2024-01-10")
	require.NoError(t, err)
	_, err = s.Add(ctx, "B", "")
	require.NoError(t, err)
	_, err = s.Add(ctx, "C", "2025-12-31")
	require.NoError(t, err)
	_, err = s.Complete(ctx, 2)
	require.NoError(t, err)

	reloaded := store.New(be, store.Options{})
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.List(), reloaded.List())
}

func TestLoadTruncatedFileThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "A", "due`), 0644))

	be, err := file.New(file.Config{FilePath: path})
	require.NoError(t, err)
	s := store.New(be, store.Options{})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 0, s.Len())
}

// =============================================================================
// Add
// =============================================================================

func TestAddScenario(t *testing.T) {
	s, fake := newStore(t, store.Options{})

	task, err := s.Add(context.Background(), "Buy milk", "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Name)

	entries := s.List()
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Position)
	assert.False(t, entries[0].Task.Completed)
	assert.Equal(t, "2024-01-10", entries[0].Task.Due())
	assert.Equal(t, 1, fake.saves)
}

func TestAddWithoutDueDate(t *testing.T) {
	s, fake := newStore(t, store.Options{})

	task, err := s.Add(context.Background(), "Call mom", "")
	require.NoError(t, err)
	assert.Nil(t, task.DueDate)
	require.Len(t, fake.tasks, 1)
	assert.Nil(t, fake.tasks[0].DueDate)
}

func TestAddKeepsValidDateVerbatim(t *testing.T) {
	start := time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)
	s, _ := newStore(t, store.Options{})
	ctx := context.Background()

	// Walk across month ends and a leap day
	for i := 0; i < 800; i += 7 {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		task, err := s.Add(ctx, "t"+d, d)
		require.NoError(t, err, d)
		assert.Equal(t, d, task.Due())
	}
	_, err := s.Add(ctx, "leap", "2024-02-29")
	require.NoError(t, err)
}

func TestAddInvalidDateLeavesStoreUnchanged(t *testing.T) {
	invalid := []string{"tomorrow", "2024-1-10", "2024-13-01", "2023-02-29", "10/01/2024", "2024-01-10x"}

	for _, d := range invalid {
		t.Run(d, func(t *testing.T) {
			s, fake := newStore(t, store.Options{}, "A")

			_, err := s.Add(context.Background(), "B", d)
			require.ErrorIs(t, err, utils.ErrValidation)
			assert.Equal(t, []string{"A"}, names(s.List()))
			assert.Equal(t, 0, fake.saves)
		})
	}
}

func TestAddBlankNameRejected(t *testing.T) {
	s, fake := newStore(t, store.Options{})

	_, err := s.Add(context.Background(), "  ", "")
	require.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, fake.saves)
}

func TestAddAppendsInOrder(t *testing.T) {
	s, _ := newStore(t, store.Options{}, "A")
	ctx := context.Background()

	for _, n := range []string{"B", "C"} {
		_, err := s.Add(ctx, n, "")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names(s.List()))
}

func TestAddSaveFailureRollsBack(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A")
	fake.saveErr = errors.New("read-only file system")

	_, err := s.Add(context.Background(), "B", "")
	require.ErrorIs(t, err, utils.ErrPersistence)
	assert.Equal(t, []string{"A"}, names(s.List()))
}

// =============================================================================
// List
// =============================================================================

func TestListPositionsAreOneBased(t *testing.T) {
	s, _ := newStore(t, store.Options{}, "A", "B", "C")

	for i, e := range s.List() {
		assert.Equal(t, i+1, e.Position)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s, _ := newStore(t, store.Options{})
	_, err := s.Add(context.Background(), "A", "2024-01-10")
	require.NoError(t, err)

	entries := s.List()
	entries[0].Task.Name = "mutated"
	*entries[0].Task.DueDate = "1999-01-01"

	again := s.List()
	assert.Equal(t, "A", again[0].Task.Name)
	assert.Equal(t, "2024-01-10", again[0].Task.Due())
}

// =============================================================================
// Remove
// =============================================================================

func TestRemoveScenario(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A", "B", "C")

	removed, err := s.Remove(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "B", removed.Name)

	entries := s.List()
	assert.Equal(t, []string{"A", "C"}, names(entries))
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[1].Position)
	assert.Equal(t, 1, fake.saves)
}

func TestRemoveShiftsEveryPosition(t *testing.T) {
	all := []string{"A", "B", "C", "D", "E"}

	for k := 1; k <= len(all); k++ {
		t.Run(fmt.Sprintf("remove %d", k), func(t *testing.T) {
			s, _ := newStore(t, store.Options{}, all...)

			_, err := s.Remove(context.Background(), k)
			require.NoError(t, err)

			want := append(append([]string{}, all[:k-1]...), all[k:]...)
			assert.Equal(t, want, names(s.List()))
		})
	}
}

func TestRemoveSaveFailureRollsBack(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A", "B", "C")
	fake.saveErr = errors.New("disk full")

	_, err := s.Remove(context.Background(), 1)
	require.ErrorIs(t, err, utils.ErrPersistence)
	assert.Equal(t, []string{"A", "B", "C"}, names(s.List()))
}

// =============================================================================
// Invalid positions
// =============================================================================

func TestInvalidPositionsDoNotMutateOrPersist(t *testing.T) {
	ops := map[string]func(s *store.Store, pos int) error{
		"remove": func(s *store.Store, pos int) error {
			_, err := s.Remove(context.Background(), pos)
			return err
		},
		"edit": func(s *store.Store, pos int) error {
			_, err := s.Edit(context.Background(), pos, "renamed", "2024-01-10")
			return err
		},
		"complete": func(s *store.Store, pos int) error {
			_, err := s.Complete(context.Background(), pos)
			return err
		},
	}

	for name, op := range ops {
		for _, pos := range []int{0, 4, -1} {
			t.Run(fmt.Sprintf("%s %d", name, pos), func(t *testing.T) {
				s, fake := newStore(t, store.Options{}, "A", "B", "C")
				before := s.List()

				err := op(s, pos)
				require.ErrorIs(t, err, utils.ErrRange)
				assert.Equal(t, before, s.List())
				assert.Equal(t, 0, fake.saves)
			})
		}
	}
}

func TestInvalidPositionOnEmptyStore(t *testing.T) {
	s, fake := newStore(t, store.Options{})

	_, err := s.Complete(context.Background(), 1)
	require.ErrorIs(t, err, utils.ErrRange)
	assert.Equal(t, 0, fake.saves)
}

// =============================================================================
// Edit
// =============================================================================

func TestEditNameAndDate(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A", "B")

	task, err := s.Edit(context.Background(), 2, "B2", "2024-05-05")
	require.NoError(t, err)
	assert.Equal(t, "B2", task.Name)
	assert.Equal(t, "2024-05-05", task.Due())
	assert.Equal(t, []string{"A", "B2"}, names(s.List()))
	assert.Equal(t, 1, fake.saves)
}

func TestEditBlankFieldsKeepValues(t *testing.T) {
	fake := &fakeStorage{tasks: []backend.Task{{Name: "A", DueDate: strPtr("2024-01-10")}}}
	s := store.New(fake, store.Options{})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	task, err := s.Edit(ctx, 1, "", "2024-02-02")
	require.NoError(t, err)
	assert.Equal(t, "A", task.Name)
	assert.Equal(t, "2024-02-02", task.Due())

	task, err = s.Edit(ctx, 1, "Renamed", "")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", task.Name)
	assert.Equal(t, "2024-02-02", task.Due())
	assert.Equal(t, 2, fake.saves)
}

func TestEditNothingSuppliedDoesNotPersist(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A")

	task, err := s.Edit(context.Background(), 1, "   ", "")
	require.NoError(t, err)
	assert.Equal(t, "A", task.Name)
	assert.Equal(t, 0, fake.saves)
}

func TestEditInvalidDateIsAtomicByDefault(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A")

	_, err := s.Edit(context.Background(), 1, "Renamed", "not-a-date")
	require.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, []string{"A"}, names(s.List()))
	assert.Equal(t, 0, fake.saves)
}

func TestEditInvalidDatePartialCommit(t *testing.T) {
	fake := &fakeStorage{tasks: []backend.Task{{Name: "A", DueDate: strPtr("2024-01-10")}}}
	s := store.New(fake, store.Options{PartialEdit: true})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	task, err := s.Edit(ctx, 1, "Renamed", "2024-02-31")
	require.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, "Renamed", task.Name)
	assert.Equal(t, "2024-01-10", task.Due())

	// The name change was persisted
	assert.Equal(t, 1, fake.saves)
	assert.Equal(t, "Renamed", fake.tasks[0].Name)
	assert.Equal(t, "2024-01-10", fake.tasks[0].Due())
}

func TestEditInvalidDateOnlyPartialCommitKeepsTask(t *testing.T) {
	fake := &fakeStorage{tasks: []backend.Task{{Name: "A", DueDate: strPtr("2024-01-10")}}}
	s := store.New(fake, store.Options{PartialEdit: true})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	task, err := s.Edit(ctx, 1, "", "nope")
	require.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, "A", task.Name)
	assert.Equal(t, "2024-01-10", task.Due())

	// Saved unchanged, like any other accepted edit
	assert.Equal(t, 1, fake.saves)
	assert.Equal(t, "2024-01-10", fake.tasks[0].Due())
}

func TestEditInvalidDateOnlyAtomicDoesNotPersist(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A")

	_, err := s.Edit(context.Background(), 1, "", "nope")
	require.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, 0, fake.saves)
}

func TestEditSaveFailureRollsBack(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "A")
	fake.saveErr = errors.New("disk full")

	_, err := s.Edit(context.Background(), 1, "Renamed", "2024-01-10")
	require.ErrorIs(t, err, utils.ErrPersistence)

	entries := s.List()
	assert.Equal(t, "A", entries[0].Task.Name)
	assert.Nil(t, entries[0].Task.DueDate)
}

// =============================================================================
// Complete
// =============================================================================

func TestCompleteScenario(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "X")

	task, err := s.Complete(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.True(t, s.List()[0].Task.Completed)
	assert.Nil(t, s.List()[0].Task.DueDate)
	assert.Equal(t, 1, fake.saves)
	assert.True(t, fake.tasks[0].Completed)
}

func TestCompleteSaveFailureRollsBack(t *testing.T) {
	s, fake := newStore(t, store.Options{}, "X")
	fake.saveErr = errors.New("disk full")

	_, err := s.Complete(context.Background(), 1)
	require.ErrorIs(t, err, utils.ErrPersistence)
	assert.False(t, s.List()[0].Task.Completed)
}
