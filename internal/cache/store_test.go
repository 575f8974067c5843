package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementCreatesAndCounts(t *testing.T) {
	store := NewStore(Options{Prefix: "test"})
	ctx := context.Background()

	v, err := store.Increment(ctx, "hits", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = store.Increment(ctx, "hits", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	ttl, ok := store.TTL(ctx, "hits")
	require.True(t, ok)
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestNamespaceIsolation(t *testing.T) {
	root := NewStore(Options{})
	ctx := context.Background()
	a, b := root.Namespace("a"), root.Namespace("b")

	a.Set(ctx, "k", "from-a", 0)
	_, ok := b.Get(ctx, "k")
	assert.False(t, ok)

	v, ok := root.Get(ctx, "a:k")
	require.True(t, ok)
	assert.Equal(t, "from-a", v)
}

func TestJSONRoundTrip(t *testing.T) {
	store := NewStore(Options{})
	ctx := context.Background()

	type payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, store.SetJSON(ctx, "p", payload{Count: 7}, time.Minute))

	var got payload
	ok, err := store.GetJSON(ctx, "p", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, got.Count)

	store.Delete(ctx, "p")
	ok, err = store.GetJSON(ctx, "p", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
