package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPError_NotFound(t *testing.T) {
	err := fmt.Errorf("load session: %w", &HTTPError{Op: "get session", Status: 404, Detail: "会话不存在"})
	assert.ErrorIs(t, err, ErrNotFound)

	other := &HTTPError{Op: "get session", Status: 500}
	assert.NotErrorIs(t, other, ErrNotFound)
	assert.NotErrorIs(t, other, ErrRateLimit)
	assert.Equal(t, "get session: HTTP 500", other.Error())
}

func TestHTTPError_RateLimit(t *testing.T) {
	err := fmt.Errorf("list services: %w", &HTTPError{Op: "list services", Status: 429, Detail: "slow down"})
	assert.ErrorIs(t, err, ErrRateLimit)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestValidationError_Is(t *testing.T) {
	err := NewValidationError("content", "must not be empty")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid content: must not be empty", err.Error())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "transport", err: fmt.Errorf("post: %w", ErrTransport), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "server error", err: &HTTPError{Status: 503}, want: true},
		{name: "rate limited", err: &HTTPError{Status: 429}, want: true},
		{name: "not found", err: &HTTPError{Status: 404}, want: false},
		{name: "rate limit sentinel", err: fmt.Errorf("list: %w", ErrRateLimit), want: true},
		{name: "plain error", err: errors.New("x"), want: false},
		{name: "validation", err: NewValidationError("content", "empty"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestUserError(t *testing.T) {
	err := NewUserError("Could not load session", ErrNotFound)
	assert.Equal(t, "Could not load session: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
