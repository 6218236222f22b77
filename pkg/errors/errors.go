// Package errors provides the structured error code system for the AI-NK RAG
// service.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service/Module code
//	BB  (00-99): Category code
//	CCC (000-999): Sequence number within the category
//
// Service Codes (AA):
//
//	00: Common/Base errors
//	20: RAG service errors
//
// Category Codes (BB):
//
//	01: Request/Validation errors (400)
//	04: Resource not found (404)
//	07: Internal errors (500)
//	08: Database errors (500)
//	10: Backend unavailable / retryable (503)
//	11: Timeout errors (504)
//	13: Upstream generation errors (502)
//	14: Permanent data errors (422)
//
// Usage:
//
//	return errors.ErrSearchBackend.WithCause(err)
//	return errors.ErrInvalidParam.WithMessage("query is required")
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Service codes.
const (
	ServiceCommon = 0
	ServiceRAG    = 20
)

// Category codes.
const (
	CategoryRequest     = 1
	CategoryNotFound    = 4
	CategoryInternal    = 7
	CategoryDatabase    = 8
	CategoryUnavailable = 10
	CategoryTimeout     = 11
	CategoryGeneration  = 13
	CategoryData        = 14
)

// MakeCode builds a 7 digit error code from service, category and sequence.
func MakeCode(service, category, seq int) int {
	return service*100000 + category*1000 + seq
}

// Errno represents a structured error with a code, an HTTP status and a
// message.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to return.
	HTTP int `json:"-"`

	// Msg is the user-facing error message.
	Msg string `json:"message"`

	// retryable marks transient errors that callers may retry.
	retryable bool

	// cause is the underlying error.
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Msg, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// WithCause returns a copy of the Errno carrying the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	clone := *e
	clone.cause = cause
	return &clone
}

// WithMessage returns a copy of the Errno with a custom message.
func (e *Errno) WithMessage(msg string) *Errno {
	clone := *e
	clone.Msg = msg
	return &clone
}

// WithMessagef returns a copy of the Errno with a formatted message.
func (e *Errno) WithMessagef(format string, args ...any) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// HTTPStatus returns the HTTP status code.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}

// Is matches errors by code so that errors.Is works across WithCause and
// WithMessage copies.
func (e *Errno) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return e.Code == t.Code
	}
	return false
}

// errnoRegistry stores registered error codes for uniqueness validation.
var (
	errnoRegistry = make(map[int]*Errno)
	registryMu    sync.RWMutex
)

// Register registers an Errno and validates code uniqueness. Panics on a
// duplicate code.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.Msg))
	}
	errnoRegistry[e.Code] = e
	return e
}

// FromError converts any error to an Errno. An existing Errno anywhere in the
// chain is returned as is; everything else wraps as ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// IsRetryable reports whether the error belongs to the transient/retryable
// category of the taxonomy.
func IsRetryable(err error) bool {
	var e *Errno
	if errors.As(err, &e) {
		return e.retryable
	}
	return false
}

// IsCode checks whether the error carries the given error code.
func IsCode(err error, code int) bool {
	var e *Errno
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
