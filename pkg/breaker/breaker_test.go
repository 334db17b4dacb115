package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestDisabledBreakerAlwaysAllows(t *testing.T) {
	cb := New(Config{})
	for i := 0; i < 10; i++ {
		cb.OnError()
	}
	assert.NoError(t, cb.Allow())
	assert.False(t, cb.IsOpen())

	var nilBreaker *CircuitBreaker
	assert.NoError(t, nilBreaker.Allow())
	nilBreaker.OnError()
	nilBreaker.OnSuccess()
}

func TestOpensAfterConsecutiveErrors(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cb := New(Config{MaxConsecutiveErrors: 3, Cooldown: 10 * time.Second}).WithClock(clock.Now)

	cb.OnError()
	cb.OnError()
	cb.OnSuccess()
	cb.OnError()
	cb.OnError()
	require.NoError(t, cb.Allow())

	cb.OnError()
	assert.True(t, cb.IsOpen())
	assert.ErrorIs(t, cb.Allow(), ErrOpen)
}

func TestHalfOpenProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cb := New(Config{MaxConsecutiveErrors: 1, Cooldown: 10 * time.Second}).WithClock(clock.Now)

	cb.OnError()
	assert.ErrorIs(t, cb.Allow(), ErrOpen)

	clock.Advance(10 * time.Second)
	require.NoError(t, cb.Allow())
	// 探测进行中，其他调用仍被拒绝
	assert.ErrorIs(t, cb.Allow(), ErrOpen)

	// 探测失败：重新计时
	cb.OnError()
	assert.ErrorIs(t, cb.Allow(), ErrOpen)
	clock.Advance(10 * time.Second)
	require.NoError(t, cb.Allow())

	cb.OnSuccess()
	assert.False(t, cb.IsOpen())
	assert.NoError(t, cb.Allow())
	assert.NoError(t, cb.Allow())
}

func TestReleaseFreesAbandonedProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cb := New(Config{MaxConsecutiveErrors: 1, Cooldown: 10 * time.Second}).WithClock(clock.Now)

	cb.OnError()
	clock.Advance(10 * time.Second)
	require.NoError(t, cb.Allow())
	assert.ErrorIs(t, cb.Allow(), ErrOpen)

	// 探测请求没有发出：不计成败，名额交还
	cb.Release()
	assert.True(t, cb.IsOpen())
	require.NoError(t, cb.Allow())

	cb.OnSuccess()
	assert.False(t, cb.IsOpen())

	var nilBreaker *CircuitBreaker
	nilBreaker.Release()
}
