package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
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
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration, clock *fakeClock) *InMemoryCache[string, int] {
	return NewInMemoryCache[string, int](ttl, func(k string) string { return k },
		WithClock[string, int](clock.Now),
		WithoutCleanup[string, int](),
	)
}

func TestEntryExpiresExactlyAtTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := newTestCache(5*time.Second, clock)

	c.Set("a", 1, 0)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(4999 * time.Millisecond)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry must not be served at or past expiry")
}

func TestGetOrLoadRefetchesOnlyAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := newTestCache(time.Minute, clock)
	ctx := context.Background()

	var calls int32
	loader := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	v, hit, err := c.GetOrLoad(ctx, "k", loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, v)

	clock.Advance(59 * time.Second)
	v, hit, err = c.GetOrLoad(ctx, "k", loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, v)

	clock.Advance(time.Second)
	v, hit, err = c.GetOrLoad(ctx, "k", loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, v)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(time.Minute, clock)
	ctx := context.Background()

	boom := errors.New("boom")
	_, _, err := c.GetOrLoad(ctx, "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Size())

	v, _, err := c.GetOrLoad(ctx, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrLoadCollapsesConcurrentMisses(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(time.Minute, clock)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrLoad(ctx, "k", loader)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestCleanupRemovesExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(time.Second, clock)

	c.Set("a", 1, 0)
	c.Set("b", 2, time.Hour)
	clock.Advance(2 * time.Second)
	c.cleanup()

	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("b")
	assert.True(t, ok)
}

func TestGetOrLoadSurvivesCancelledCaller(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newTestCache(time.Minute, clock)

	var calls int32
	var startOnce sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	loader := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		startOnce.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 42, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrLoad(firstCtx, "k", loader)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, _, err := c.GetOrLoad(context.Background(), "k", loader)
		second <- result{v, err}
	}()

	// 第一个调用方放弃等待，回源继续
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 42, res.v)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	v, hit, err := c.GetOrLoad(context.Background(), "k", loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
}
