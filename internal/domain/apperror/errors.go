// Package apperror holds the error kinds the service reports to callers.
// Transport maps each kind to a status code; everything else is a 500.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("too many requests")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// NotFoundError identifies a user lookup that matched nothing.
// Field is "id" or "email".
type NotFoundError struct {
	Field string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user with %s %s not found", e.Field, e.Value)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func UserNotFoundByID(id int64) *NotFoundError {
	return &NotFoundError{Field: "id", Value: fmt.Sprint(id)}
}

func UserNotFoundByEmail(email string) *NotFoundError {
	return &NotFoundError{Field: "email", Value: email}
}

type AlreadyExistsError struct {
	Email string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("user with email %s already exists", e.Email)
}

func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + e.Detail()
}

// Detail joins the field messages in a stable order.
func (e *ValidationError) Detail() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ImmutableFieldError rejects a write that tries to change a field the
// operation keeps as is.
type ImmutableFieldError struct {
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("%s: %s cannot be changed", ErrValidation, e.Field)
}

func (e *ImmutableFieldError) Is(target error) bool { return target == ErrValidation }

// RateLimitedError reports a rejected request and when the caller may retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfterSeconds rounds up to whole seconds, never below one.
func (e *RateLimitedError) RetryAfterSeconds() int64 {
	secs := int64((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
