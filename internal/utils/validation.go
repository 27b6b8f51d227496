package utils

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted due date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ValidateDueDate checks that dateStr is a real calendar date in YYYY-MM-DD form.
// The string itself is what gets stored, so no normalisation happens here.
func ValidateDueDate(dateStr string) error {
	if _, err := time.Parse(DateLayout, dateStr); err != nil {
		return ErrInvalidDate(dateStr)
	}
	return nil
}

// ValidateName rejects blank task names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName()
	}
	return nil
}

// ParsePosition converts user input into a task position.
// Range checking is left to the store, which knows the current count.
func ParsePosition(input string) (int, error) {
	input = strings.TrimSpace(input)
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, ErrInvalidNumber(input)
	}
	return n, nil
}

// CheckPosition returns ErrInvalidPosition unless 1 <= position <= count.
func CheckPosition(position, count int) error {
	if position < 1 || position > count {
		return ErrInvalidPosition(position, count)
	}
	return nil
}
