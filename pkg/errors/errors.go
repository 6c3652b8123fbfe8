// Package errors provides structured error handling for rowcap.
//
// This package defines error types with:
//   - Error codes for programmatic handling
//   - Categories for grouping related errors
//   - Context fields for debugging
//   - Wrapping support for error chains
//
// Error codes follow a hierarchical scheme:
//   - 1xxx: Argument/validation errors
//   - 2xxx: Tokenizer errors
//   - 3xxx: Rewrite errors
//   - 4xxx: Fetch/driver errors
//   - 9xxx: Internal errors
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Code is a numeric error code for programmatic handling.
type Code int

// Error codes by category
const (
	// Argument/validation errors (1xxx)
	ErrCodeLimitInvalid  Code = 1001
	ErrCodeEngineUnknown Code = 1002

	// Tokenizer errors (2xxx)
	ErrCodeTokenize       Code = 2001
	ErrCodeStatementEmpty Code = 2002

	// Rewrite errors (3xxx)
	ErrCodeRewriteFailed Code = 3001

	// Fetch/driver errors (4xxx)
	ErrCodeFetchConnect Code = 4001
	ErrCodeFetchQuery   Code = 4002
	ErrCodeFetchScan    Code = 4003

	// Internal errors (9xxx)
	ErrCodeInternal Code = 9001
)

// String returns the error code as a string.
func (c Code) String() string {
	return fmt.Sprintf("E%04d", c)
}

// Category returns the category for this code.
func (c Code) Category() string {
	switch {
	case c >= 1000 && c < 2000:
		return "argument"
	case c >= 2000 && c < 3000:
		return "tokenizer"
	case c >= 3000 && c < 4000:
		return "rewrite"
	case c >= 4000 && c < 5000:
		return "fetch"
	case c >= 9000:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a structured error with code, context, and optional cause.
type Error struct {
	Code    Code
	Message string

	// Context
	Fields map[string]interface{}

	// Error chain
	Cause error

	// Debug information
	Time   time.Time
	OpName string // Operation that failed (e.g., "Engine.ApplyLimit")
}

// Error implements the error interface.
func (e *Error) Error() string {
	var buf strings.Builder

	buf.WriteString(e.Code.String())
	buf.WriteString(": ")
	buf.WriteString(e.Message)

	if e.Cause != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Cause.Error())
	}

	return buf.String()
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithField adds a context field to the error.
func (e *Error) WithField(key string, value interface{}) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithOp sets the operation name.
func (e *Error) WithOp(op string) *Error {
	e.OpName = op
	return e
}

// Builder helps construct errors fluently.
type Builder struct {
	code    Code
	message string
	cause   error
	fields  map[string]interface{}
	op      string
}

// New starts building a new error with the given code.
func New(code Code, message string) *Builder {
	return &Builder{
		code:    code,
		message: message,
	}
}

// Newf starts building a new error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Builder {
	return &Builder{
		code:    code,
		message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code Code, message string) *Builder {
	return &Builder{
		code:    code,
		message: message,
		cause:   cause,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(cause error, code Code, format string, args ...interface{}) *Builder {
	return &Builder{
		code:    code,
		message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

// WithCause adds a cause to the error.
func (b *Builder) WithCause(err error) *Builder {
	b.cause = err
	return b
}

// WithField adds a context field.
func (b *Builder) WithField(key string, value interface{}) *Builder {
	if b.fields == nil {
		b.fields = make(map[string]interface{})
	}
	b.fields[key] = value
	return b
}

// WithOp sets the operation name.
func (b *Builder) WithOp(op string) *Builder {
	b.op = op
	return b
}

// Build creates the Error.
func (b *Builder) Build() *Error {
	return &Error{
		Code:    b.code,
		Message: b.message,
		Cause:   b.cause,
		Fields:  b.fields,
		OpName:  b.op,
		Time:    time.Now(),
	}
}

// Err is a shorthand for Build() that returns the error interface.
func (b *Builder) Err() error {
	return b.Build()
}

// Helper functions for common error types

// InvalidLimit creates an error for a non-positive row limit.
func InvalidLimit(limit int) *Builder {
	return Newf(ErrCodeLimitInvalid, "row limit must be positive, got %d", limit).
		WithField("limit", limit)
}

// UnknownEngine creates an error for an unregistered engine name.
func UnknownEngine(name string) *Builder {
	return Newf(ErrCodeEngineUnknown, "unknown engine: %s", name).
		WithField("engine", name)
}

// Extraction helpers

// GetCode extracts the error code from an error, or returns ErrCodeInternal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetFields extracts context fields from an error.
func GetFields(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, category string) bool {
	return GetCode(err).Category() == category
}

// Standard library compatibility

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
