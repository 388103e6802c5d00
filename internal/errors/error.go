package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryPolicy  Category = "policy"
	CategoryRuntime Category = "runtime"
	CategoryScript  Category = "script"
	CategoryCLI     Category = "cli"
)

// Location represents a position in a replay script or config file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// HistoryError is a structured error with a code, category and optional
// source location.
type HistoryError struct {
	// Code is a unique error identifier (e.g., "H001").
	Code string

	// Category is the error type (config, policy, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, usually filled in per occurrence.
	Detail string

	// Location is the script or file position where the error occurred.
	Location *Location

	// Context contains surrounding source lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped holds the underlying errors, sentinels included.
	Wrapped []error
}

// Error implements the error interface.
func (e *HistoryError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap exposes every wrapped error to errors.Is and errors.As.
func (e *HistoryError) Unwrap() []error {
	return e.Wrapped
}

// WithLocation adds a file position and reads the surrounding lines.
func (e *HistoryError) WithLocation(file string, line, column int) *HistoryError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 3)
	return e
}

// WithDetail sets the per-occurrence explanation.
func (e *HistoryError) WithDetail(d string) *HistoryError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *HistoryError) WithDetailf(format string, args ...any) *HistoryError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *HistoryError) WithSuggestion(s string) *HistoryError {
	e.Suggestion = s
	return e
}

// WithContext replaces the context lines.
func (e *HistoryError) WithContext(lines []string) *HistoryError {
	e.Context = lines
	return e
}

// Wrap appends err to the wrapped chain. Nil errors are ignored.
func (e *HistoryError) Wrap(err error) *HistoryError {
	if err != nil {
		e.Wrapped = append(e.Wrapped, err)
	}
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a HistoryError from a registered error code.
func New(code string) *HistoryError {
	template, ok := registry[code]
	if !ok {
		return &HistoryError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &HistoryError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a HistoryError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *HistoryError {
	return &HistoryError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns the HistoryError in err's chain, or wraps err in a new
// one with the given code.
func FromError(err error, code string) *HistoryError {
	if err == nil {
		return nil
	}
	var he *HistoryError
	if stderrors.As(err, &he) {
		return he
	}
	return New(code).WithDetail(err.Error()).Wrap(err)
}
