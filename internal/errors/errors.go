// Package errors provides structured, coded errors for the CLI and
// configuration layer, with suggestions the terminal formatter can print.
package errors

import (
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	CategoryRuntime    Category = "runtime"
	CategoryCLI        Category = "cli"
)

// Error is a structured error with a stable code and a fix suggestion.
type Error struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		fmt.Fprintf(&b, "[%s] ", e.Code)
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Wrapped }

// New creates a structured error.
func New(code string, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

// Wrap attaches an underlying error.
func (e *Error) Wrap(err error) *Error {
	out := *e
	out.Wrapped = err
	return &out
}

// WithDetail attaches a longer explanation.
func (e *Error) WithDetail(detail string) *Error {
	out := *e
	out.Detail = detail
	return &out
}

// WithSuggestion attaches a fix hint.
func (e *Error) WithSuggestion(s string) *Error {
	out := *e
	out.Suggestion = s
	return &out
}

// Format renders the error for terminal output, one section per line.
func Format(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error %s (%s): %s\n", e.Code, e.Category, e.Message)
	if e.Detail != "" {
		fmt.Fprintf(&b, "  %s\n", e.Detail)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  cause: %v\n", e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  hint: %s\n", e.Suggestion)
	}
	return b.String()
}
