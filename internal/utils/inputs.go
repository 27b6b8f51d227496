package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned when the input stream is exhausted.
var ErrNoInput = errors.New("no input")

// LineReader reads prompted lines from one shared scanner, so buffered
// input is not lost between prompts.
type LineReader struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

// NewLineReader creates a LineReader. A nil writer discards prompts.
func NewLineReader(reader io.Reader, writer io.Writer) *LineReader {
	if writer == nil {
		writer = io.Discard
	}
	return &LineReader{
		scanner: bufio.NewScanner(reader),
		writer:  writer,
	}
}

// Prompt writes prompt and returns the next line with surrounding whitespace trimmed.
// Returns ErrNoInput at end of input.
func (r *LineReader) Prompt(prompt string) (string, error) {
	_, _ = fmt.Fprint(r.writer, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrNoInput
	}
	return strings.TrimSpace(r.scanner.Text()), nil
}

// PromptPosition prompts for a task number.
// Non-numeric input is reported as an ErrInput error.
func (r *LineReader) PromptPosition(prompt string) (int, error) {
	line, err := r.Prompt(prompt)
	if err != nil {
		return 0, err
	}
	return ParsePosition(line)
}
