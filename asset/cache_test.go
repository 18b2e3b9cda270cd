package asset

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

func TestCache_ReadThrough(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	store := StoreFunc(func(ctx context.Context, ref string) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(ref), nil
	})
	c := NewCache(store, 4)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := c.Fetch(context.Background(), "logo.png")
			assert.NoError(t, err)
			results[i] = data
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []byte("logo.png"), r)
	}

	_, err := c.Fetch(context.Background(), "logo.png")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	fail := errors.New("boom")
	store := StoreFunc(func(ctx context.Context, ref string) ([]byte, error) {
		if calls.Add(1) == 1 {
			return nil, fail
		}
		return []byte("ok"), nil
	})
	c := NewCache(store, 0)

	_, err := c.Fetch(context.Background(), "a")
	assert.ErrorIs(t, err, fail)

	data, err := c.Fetch(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_Eviction(t *testing.T) {
	var calls atomic.Int32
	store := StoreFunc(func(ctx context.Context, ref string) ([]byte, error) {
		calls.Add(1)
		return []byte(ref), nil
	})
	c := NewCache(store, 2)
	ctx := context.Background()

	for _, ref := range []string{"a", "b", "c"} {
		_, err := c.Fetch(ctx, ref)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	// "a" was evicted first and must be fetched again.
	_, err := c.Fetch(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())

	_, err = c.Fetch(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestCache_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	store := StoreFunc(func(ctx context.Context, ref string) ([]byte, error) {
		<-release
		return []byte(ref), nil
	})
	c := NewCache(store, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, "slow.png")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
