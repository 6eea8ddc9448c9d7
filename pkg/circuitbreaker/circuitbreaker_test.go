package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker() (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := New(Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 2,
	})
	cb.now = clock.Now
	cb.stats.StateChangeTime = clock.Now()
	return cb, clock
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errBackend)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, succeed))
	cb.Execute(ctx, fail)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Stats().FailureCount)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errBackend)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrOpen)
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)

	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.Execute(ctx, func() error {
				<-release
				return nil
			})
		}()
	}
	require.Eventually(t, func() bool {
		return cb.Stats().HalfOpenRequests == 2
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrOpen)
	close(release)
	wg.Wait()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_CancelledContextIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		assert.Error(t, cb.Execute(ctx, func() error { return ctx.Err() }))
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	var transitions []string
	cb.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	clock.Advance(time.Minute)
	cb.Execute(ctx, succeed)
	cb.Execute(ctx, succeed)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker()
	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), fail)
	}
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(context.Background(), succeed))
}

func TestExecuteWithResult(t *testing.T) {
	cb, _ := newTestBreaker()

	v, err := ExecuteWithResult(context.Background(), cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = ExecuteWithResult(context.Background(), cb, func() (int, error) { return 0, errBackend })
	assert.ErrorIs(t, err, errBackend)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
