package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureRatio:   0.5,
		MinRequests:    3,
		OpenTimeout:    time.Hour,
		HalfOpenProbes: 2,
	}
}

func TestCircuitBreaker_OpensAtFailureRatio(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerSettings())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Call(func() error { return boom }))
	}
	assert.Equal(t, StateOpen, cb.State())

	// Open breaker fails fast without touching the downstream.
	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_StaysClosedUnderMinRequests(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerSettings())

	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	settings := testBreakerSettings()
	settings.OpenTimeout = time.Millisecond
	cb := NewCircuitBreaker(settings)

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errors.New("boom") })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(5 * time.Millisecond)

	// Enough successful probes close the breaker again.
	require.NoError(t, cb.Call(func() error { return nil }))
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	settings := testBreakerSettings()
	settings.OpenTimeout = time.Millisecond
	cb := NewCircuitBreaker(settings)

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errors.New("boom") })
	}
	time.Sleep(5 * time.Millisecond)

	require.Error(t, cb.Call(func() error { return errors.New("still down") }))
	assert.Equal(t, StateOpen, cb.State())
}
