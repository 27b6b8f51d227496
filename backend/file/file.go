// Package file implements a Storage backend that keeps tasks in a JSON file.
package file

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"taskman/backend"
	"taskman/internal/utils"
)

// DefaultFileName is the task file used when no path is configured.
const DefaultFileName = "tasks.json"

//go:embed tasks.schema.json
var taskSchema string

const schemaURL = "tasks.schema.json"

var (
	compiledSchema *jsonschema.Schema
	schemaErr      error
	schemaOnce     sync.Once
)

func init() {
	backend.Register("file", func(path string) (backend.Storage, error) {
		return New(Config{FilePath: path})
	})
}

// Config holds file backend configuration
type Config struct {
	FilePath string // Path to task file
}

// Backend implements backend.Storage for JSON file storage
type Backend struct {
	config   Config
	filePath string // Resolved absolute path
}

// New creates a new file backend
func New(cfg Config) (*Backend, error) {
	filePath := cfg.FilePath
	if filePath == "" {
		filePath = DefaultFileName
	}

	// Resolve relative paths
	if !filepath.IsAbs(filePath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		filePath = filepath.Join(wd, filePath)
	}

	return &Backend{
		config:   cfg,
		filePath: filePath,
	}, nil
}

// Location returns the resolved task file path
func (b *Backend) Location() string {
	return b.filePath
}

// Close closes the backend
func (b *Backend) Close() error {
	return nil
}

// Load reads the task file. A missing file returns an error matching
// os.ErrNotExist; invalid JSON or content failing the schema returns
// backend.ErrCorrupt.
func (b *Backend) Load(ctx context.Context) ([]backend.Task, error) {
	data, err := os.ReadFile(b.filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.filePath, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", backend.ErrCorrupt, b.filePath, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", backend.ErrCorrupt, b.filePath, describeSchemaError(err))
	}

	var tasks []backend.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", backend.ErrCorrupt, b.filePath, err)
	}
	for i, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		if err := utils.ValidateDueDate(*t.DueDate); err != nil {
			return nil, fmt.Errorf("%w: %s: task %d: %v", backend.ErrCorrupt, b.filePath, i+1, err)
		}
	}
	if tasks == nil {
		tasks = []backend.Task{}
	}
	return tasks, nil
}

// Save overwrites the task file with tasks, indented four spaces.
func (b *Backend) Save(ctx context.Context, tasks []backend.Task) error {
	if tasks == nil {
		tasks = []backend.Task{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	// Ensure parent directory exists
	dir := filepath.Dir(b.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return writeAtomic(b.filePath, buf.Bytes())
}

// writeAtomic writes data to a temp file in the same directory, syncs it,
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tasks-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// loadSchema compiles the embedded task file schema once.
func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true

		if err := compiler.AddResource(schemaURL, strings.NewReader(taskSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// describeSchemaError returns the first leaf cause of a schema validation error.
func describeSchemaError(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	location := ve.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("%s: %s", location, ve.Message)
}

// Verify interface compliance at compile time
var _ backend.Storage = (*Backend)(nil)
