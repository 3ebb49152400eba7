// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors. These are recovered locally and never reach the network.
	ErrValidation       = errors.New("validation failed")
	ErrMissingLLMConfig = errors.New("missing LLM configuration")

	// Backend errors.
	ErrNotFound  = errors.New("not found")
	ErrTransport = errors.New("transport failure")

	// Analysis errors.
	ErrUpstreamAnalysis = errors.New("analysis failed upstream")

	// State errors.
	ErrBusy            = errors.New("another request is in flight")
	ErrNoSession       = errors.New("no session loaded")
	ErrNoFailedMessage = errors.New("no failed message to retry")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Op     string
	Detail string
	Status int
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
}

// Is maps 404 responses onto ErrNotFound and 429 responses onto ErrRateLimit.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == 404
	case ErrRateLimit:
		return e.Status == 429
	}
	return false
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == 429 || httpErr.Status >= 500
	}

	return false
}
