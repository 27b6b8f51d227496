package backend_test

import (
	"context"
	"strings"
	"testing"

	"taskman/backend"
)

type memStorage struct {
	path  string
	tasks []backend.Task
}

func (m *memStorage) Load(ctx context.Context) ([]backend.Task, error) { return m.tasks, nil }
func (m *memStorage) Save(ctx context.Context, tasks []backend.Task) error {
	m.tasks = tasks
	return nil
}
func (m *memStorage) Location() string { return m.path }
func (m *memStorage) Close() error     { return nil }

func TestRegisterAndOpen(t *testing.T) {
	backend.Register("memory-test", func(path string) (backend.Storage, error) {
		return &memStorage{path: path}, nil
	})

	s, err := backend.Open("memory-test", "somewhere")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if s.Location() != "somewhere" {
		t.Errorf("Location = %s, want somewhere", s.Location())
	}

	found := false
	for _, name := range backend.Registered() {
		if name == "memory-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("Registered() = %v, want it to include memory-test", backend.Registered())
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := backend.Open("carrier-pigeon", "")
	if err == nil {
		t.Fatal("Open with unknown backend should fail")
	}
	if !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Errorf("error should name the backend, got: %v", err)
	}
}

func TestCloneTasksIsDeep(t *testing.T) {
	due := "2024-01-10"
	original := []backend.Task{{Name: "A", DueDate: &due}}

	clone := backend.CloneTasks(original)
	*clone[0].DueDate = "2030-01-01"
	clone[0].Name = "B"

	if original[0].Name != "A" || *original[0].DueDate != "2024-01-10" {
		t.Errorf("CloneTasks shares state with original: %+v", original[0])
	}
}

func TestTaskDue(t *testing.T) {
	due := "2024-01-10"
	if (backend.Task{DueDate: &due}).Due() != due {
		t.Error("Due() should return the set date")
	}
	if (backend.Task{}).Due() != "" {
		t.Error("Due() should be empty when unset")
	}
}
