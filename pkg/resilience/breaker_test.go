package resilience

import (
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "autoclip/pkg/errors"
)

func testBreakerConfig(resetTimeout time.Duration) BreakerConfig {
	return BreakerConfig{
		Name:             "test",
		FailureThreshold: 5,
		ResetTimeout:     resetTimeout,
		HalfOpenRequests: 2,
	}
}

func failing() (interface{}, error) {
	return nil, apperrors.ErrNetwork.WithMessage("downstream down")
}

func succeeding() (interface{}, error) {
	return "ok", nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(testBreakerConfig(time.Minute))

	for i := 0; i < 5; i++ {
		_, err := b.Execute(failing)
		require.Error(t, err)
		assert.False(t, apperrors.IsCircuitOpen(err))
	}

	assert.True(t, b.IsOpen())

	// Open breaker fails fast without invoking the function.
	invoked := false
	_, err := b.Execute(func() (interface{}, error) {
		invoked = true
		return nil, nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCircuitOpen(err))
	assert.False(t, invoked)

	var fatal apperrors.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.True(t, fatal.IsFatal())
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := NewBreaker(testBreakerConfig(time.Minute))

	for i := 0; i < 4; i++ {
		_, err := b.Execute(failing)
		require.Error(t, err)
	}
	_, err := b.Execute(succeeding)
	require.NoError(t, err)

	// The success reset the consecutive failure count.
	for i := 0; i < 4; i++ {
		_, err := b.Execute(failing)
		require.Error(t, err)
	}
	assert.True(t, b.IsClosed())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker(testBreakerConfig(20 * time.Millisecond))

	for i := 0; i < 5; i++ {
		b.Execute(failing)
	}
	require.True(t, b.IsOpen())

	time.Sleep(30 * time.Millisecond)

	// First probe moves the breaker to half-open.
	result, err := b.Execute(succeeding)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, gobreaker.StateHalfOpen, b.State())

	// Second consecutive success closes it.
	_, err = b.Execute(succeeding)
	require.NoError(t, err)
	assert.True(t, b.IsClosed())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := NewBreaker(testBreakerConfig(20 * time.Millisecond))

	for i := 0; i < 5; i++ {
		b.Execute(failing)
	}
	require.True(t, b.IsOpen())

	time.Sleep(30 * time.Millisecond)

	_, err := b.Execute(failing)
	require.Error(t, err)
	assert.True(t, b.IsOpen())
}
