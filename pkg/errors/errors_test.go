package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelRetryability(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		retryable bool
	}{
		{name: "network is retryable", err: ErrNetwork, retryable: true},
		{name: "rate limit is retryable", err: ErrRateLimit, retryable: true},
		{name: "validation is terminal", err: ErrValidation, retryable: false},
		{name: "permission is terminal", err: ErrPermission, retryable: false},
		{name: "not found is terminal", err: ErrNotFound, retryable: false},
		{name: "unknown is terminal", err: ErrUnknown, retryable: false},
		{name: "circuit open is terminal", err: ErrCircuitOpen, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, !tt.retryable, tt.err.IsFatal())
		})
	}
}

func TestWithMethodsDoNotMutateSentinels(t *testing.T) {
	derived := ErrNetwork.
		WithMessage("kafka unreachable").
		WithDetail("broker", "localhost:9092").
		AsFatal()

	assert.Equal(t, "kafka unreachable", derived.Message)
	assert.False(t, derived.IsRetryable())

	assert.Equal(t, "network error", ErrNetwork.Message)
	assert.True(t, ErrNetwork.IsRetryable())
	assert.Nil(t, ErrNetwork.Details)
}

func TestErrorString(t *testing.T) {
	err := ErrValidation.WithMessage("missing platform")
	assert.Equal(t, "VALIDATION_ERROR: missing platform", err.Error())

	wrapped := err.WithCause(errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "caused by: boom")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := ErrNetwork.WithCause(cause)

	assert.True(t, errors.Is(err, cause))
}

func TestMessage(t *testing.T) {
	err := ErrValidation.WithMessagef("Unknown action type: %s", "unknown_action")
	assert.Equal(t, "Unknown action type: unknown_action", Message(err))

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.Equal(t, "Unknown action type: unknown_action", Message(wrapped))

	plain := errors.New("plain failure")
	assert.Equal(t, "plain failure", Message(plain))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", Code(ErrNotFound.WithMessage("rule missing")))
	assert.Equal(t, "UNKNOWN_ERROR", Code(errors.New("anything")))
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound.WithMessage("gone")))
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", ErrValidation.WithMessage("bad"))))
	assert.True(t, IsCircuitOpen(ErrCircuitOpen.WithMessage("open")))
	assert.False(t, IsNotFound(ErrValidation))
}

func TestIsRetryableClassifiesUntagged(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("connection refused")))
	assert.False(t, IsRetryable(errors.New("document is malformed")))
	assert.False(t, IsRetryable(nil))
}
