package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_FailSafeOperations(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	mr.Close()
	got, err = c.Get(ctx, "k")
	assert.NoError(t, err, "unavailable redis behaves like a miss")
	assert.Nil(t, got)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
}

func TestClient_NilClientIsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()

	got, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Set(ctx, "k", nil, time.Second))
	assert.Error(t, c.Put(ctx, "k", nil, time.Second))
}

func TestClient_TakeIsSingleUse(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "token", []byte("payload"), time.Minute))

	got, err := c.Take(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	_, err = c.Take(ctx, "token")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestClient_TakeAfterExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "token", []byte("payload"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := c.Take(ctx, "token")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestClient_Swap(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	prev, err := c.Swap(ctx, "idx", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = c.Swap(ctx, "idx", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), prev)
}

func TestClient_PutReportsFailures(t *testing.T) {
	c, mr := setupTestCache(t)
	mr.Close()

	err := c.Put(context.Background(), "k", []byte("v"), time.Minute)
	assert.Error(t, err)
}
