package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/logging"
)

var errBoom = errors.New("boom")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(cfg Config) (*CircuitBreaker, *clock) {
	clk := &clock{t: time.Date(2025, 8, 21, 12, 0, 0, 0, time.UTC)}
	cb := New(cfg, logging.Discard())
	cb.now = clk.now
	cb.lastStateChange = clk.t
	return cb, clk
}

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(Config{Name: "t", ConsecutiveFailures: 3, Cooldown: time.Minute})

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.NoError(t, cb.Execute(succeed), "a success resets the streak")
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, int64(1), cb.Stats().Rejected)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clk := newTestBreaker(Config{Name: "t", ConsecutiveFailures: 1, Cooldown: time.Minute, HalfOpenProbes: 1})

	require.ErrorIs(t, cb.Execute(fail), errBoom)
	require.Equal(t, StateOpen, cb.State())

	clk.t = clk.t.Add(30 * time.Second)
	assert.ErrorIs(t, cb.Execute(succeed), ErrCircuitOpen)

	clk.t = clk.t.Add(31 * time.Second)
	assert.ErrorIs(t, cb.Execute(fail), errBoom, "probe runs and fails")
	assert.Equal(t, StateOpen, cb.State())

	clk.t = clk.t.Add(time.Minute)
	assert.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Stats().ConsecutiveFails)
}

func TestCircuitBreaker_HalfOpenLimitsConcurrentProbes(t *testing.T) {
	cb, clk := newTestBreaker(Config{Name: "t", ConsecutiveFailures: 1, Cooldown: time.Second, HalfOpenProbes: 1})
	require.ErrorIs(t, cb.Execute(fail), errBoom)
	clk.t = clk.t.Add(2 * time.Second)

	err := cb.Execute(func() error {
		assert.ErrorIs(t, cb.Execute(succeed), ErrCircuitOpen, "second probe is rejected while the first is running")
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	errClient := errors.New("bad request")
	cb, _ := newTestBreaker(Config{
		Name:                "t",
		ConsecutiveFailures: 1,
		Cooldown:            time.Minute,
		IsFailure:           func(err error) bool { return !errors.Is(err, errClient) },
	})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errClient }), errClient)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(DefaultConfig("t"))
	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail)
	}
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(succeed))
}
