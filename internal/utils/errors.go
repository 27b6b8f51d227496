package utils

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the store wraps exactly one of these,
// so callers can classify with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrRange       = errors.New("invalid position")
	ErrInput       = errors.New("invalid input")
	ErrPersistence = errors.New("persistence error")
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrInvalidDate returns an error for an invalid date string.
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: invalid date: %q", ErrValidation, dateStr),
		Suggestion: "Use date format YYYY-MM-DD (e.g., 2026-01-15)",
	}
}

// ErrEmptyName returns an error for a blank task name.
func ErrEmptyName() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: task name cannot be empty", ErrValidation),
		Suggestion: "Enter a short description of the task",
	}
}

// ErrInvalidPosition returns an error for a position outside [1, count].
func ErrInvalidPosition(position, count int) error {
	suggestion := "There are no tasks yet; add one first"
	if count > 0 {
		suggestion = fmt.Sprintf("Choose a task number between 1 and %d", count)
	}
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: %d", ErrRange, position),
		Suggestion: suggestion,
	}
}

// ErrInvalidNumber returns an error for a position that is not an integer.
func ErrInvalidNumber(input string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: not a number: %q", ErrInput, input),
		Suggestion: "Enter the task number shown in the task list",
	}
}

// ErrPersistenceFailure wraps a storage failure.
func ErrPersistenceFailure(op, location string, err error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: %s %s: %w", ErrPersistence, op, location, err),
		Suggestion: "Check that the task file location exists and is writable",
	}
}
