package lrucache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexreplay/apexreplay-service-go/pkg/utils/cache"
)

type payload struct {
	Name    string
	Sectors []int
}

func TestGetMiss(t *testing.T) {
	c := New[string, payload]()
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestPutGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := New[string, payload]()
	require.NoError(t, c.Put(ctx, "a", &payload{Name: "x", Sectors: []int{1, 2}}))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
	assert.Equal(t, []int{1, 2}, got.Sectors)
}

func TestMutationIsolation(t *testing.T) {
	ctx := context.Background()
	c := New[string, payload]()
	original := &payload{Name: "x", Sectors: []int{1, 2}}
	require.NoError(t, c.Put(ctx, "a", original))

	// mutating the value that was put must not reach the cache
	original.Sectors[0] = 99
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got.Sectors)

	// mutating a retrieved value must not reach later readers
	got.Sectors[1] = 77
	again, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, again.Sectors)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := New[string, payload](WithCapacity[string, payload](2))
	require.NoError(t, c.Put(ctx, "a", &payload{Name: "a"}))
	require.NoError(t, c.Put(ctx, "b", &payload{Name: "b"}))

	// touch "a" so "b" is the eviction candidate
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "c", &payload{Name: "c"}))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestDefaultCapacity(t *testing.T) {
	ctx := context.Background()
	c := New[string, payload]()
	for i := 0; i < DefaultCapacity+5; i++ {
		require.NoError(t, c.Put(ctx, fmt.Sprintf("k%d", i), &payload{Name: "x"}))
	}
	_, err := c.Get(ctx, "k0")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = c.Get(ctx, fmt.Sprintf("k%d", DefaultCapacity+4))
	assert.NoError(t, err)
}

func TestExpiration(t *testing.T) {
	ctx := context.Background()
	c := New[string, payload](WithExpiration[string, payload](10 * time.Millisecond))
	require.NoError(t, c.Put(ctx, "a", &payload{Name: "a"}))
	time.Sleep(20 * time.Millisecond)
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := New[string, payload]()
	require.NoError(t, c.Put(ctx, "a", &payload{Name: "a"}))
	require.NoError(t, c.Put(ctx, "b", &payload{Name: "b"}))

	c.Invalidate(ctx, "a")
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)

	c.InvalidateAll(ctx)
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
