package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendPhysicalExpiry(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1700000000000)}
	backend := NewMemory(WithMemoryClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", "v1", time.Minute))
	require.NoError(t, backend.Set(ctx, "k2", "v2", 0))

	clock.Advance(2 * time.Minute)

	_, ok, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := backend.Get(ctx, "k2")
	require.NoError(t, err)
	require.True(t, ok, "zero ttl means no physical expiry")
	assert.Equal(t, "v2", v)
}

func TestMemoryBackendKeysSortedByPrefix(t *testing.T) {
	backend := NewMemory()
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "p_b", "1", 0))
	require.NoError(t, backend.Set(ctx, "p_a", "2", 0))
	require.NoError(t, backend.Set(ctx, "other", "3", 0))

	keys, err := backend.Keys(ctx, "p_")
	require.NoError(t, err)
	assert.Equal(t, []string{"p_a", "p_b"}, keys)
}

func TestMemoryBackendGetDelIsExclusive(t *testing.T) {
	backend := NewMemory()
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, "slot", "value", 0))

	const goroutines = 32
	var wg sync.WaitGroup
	winners := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, ok, _ := backend.GetDel(ctx, "slot"); ok {
				winners <- v
			}
		}()
	}
	wg.Wait()
	close(winners)

	var got []string
	for v := range winners {
		got = append(got, v)
	}
	require.Len(t, got, 1, "exactly one taker observes the value")
	assert.Equal(t, "value", got[0])
}
