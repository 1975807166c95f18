package services

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

// fakeClock drives a CacheService's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCacheService_TTLBoundary(t *testing.T) {
	ttls := []time.Duration{
		10 * time.Minute,
		time.Hour,
		24 * time.Hour,
		7 * 24 * time.Hour,
	}

	for _, ttl := range ttls {
		t.Run(ttl.String(), func(t *testing.T) {
			clock := newFakeClock()
			cache := NewCacheService[string](ttl)
			cache.now = clock.Now

			var fetches int
			fetch := func(ctx context.Context) (string, error) {
				fetches++
				return "value", nil
			}

			_, _, err := cache.Get(context.Background(), "k", fetch)
			require.NoError(t, err)
			require.Equal(t, 1, fetches)

			// One millisecond short of the TTL is still a hit.
			clock.Advance(ttl - time.Millisecond)
			_, degraded, err := cache.Get(context.Background(), "k", fetch)
			require.NoError(t, err)
			assert.False(t, degraded)
			assert.Equal(t, 1, fetches)

			// Age exactly equal to the TTL is stale and refetches.
			clock.Advance(time.Millisecond)
			_, _, err = cache.Get(context.Background(), "k", fetch)
			require.NoError(t, err)
			assert.Equal(t, 2, fetches)
		})
	}
}

func TestCacheService_StaleOnError(t *testing.T) {
	clock := newFakeClock()
	cache := NewCacheService[string](time.Minute)
	cache.now = clock.Now

	_, _, err := cache.Get(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "original", nil
	})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	v, degraded, err := cache.Get(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "", errors.New("upstream down")
	})
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, "original", v)
}

func TestCacheService_ErrorWithNoEntryPropagates(t *testing.T) {
	cache := NewCacheService[string](time.Minute)

	_, degraded, err := cache.Get(context.Background(), "missing", func(ctx context.Context) (string, error) {
		return "", errors.New("upstream down")
	})
	require.Error(t, err)
	assert.False(t, degraded)
}

func TestCacheService_SingleFlight(t *testing.T) {
	cache := NewCacheService[string](time.Minute)

	var fetches int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(50 * time.Millisecond)
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := cache.Get(context.Background(), "hot", fetch)
			assert.NoError(t, err)
			assert.Equal(t, "value", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestCacheService_DistinctKeysAreIndependent(t *testing.T) {
	cache := NewCacheService[int](time.Minute)

	a, _, err := cache.Get(context.Background(), "page_size=10", func(ctx context.Context) (int, error) { return 10, nil })
	require.NoError(t, err)
	b, _, err := cache.Get(context.Background(), "page_size=25", func(ctx context.Context) (int, error) { return 25, nil })
	require.NoError(t, err)

	assert.Equal(t, 10, a)
	assert.Equal(t, 25, b)
	assert.Equal(t, 2, cache.Len())
}
