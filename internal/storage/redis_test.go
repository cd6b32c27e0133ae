package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis tests run only when CAIXA_TEST_REDIS_ADDR points at a server.
func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("CAIXA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CAIXA_TEST_REDIS_ADDR not set")
	}
	r, err := NewRedis(context.Background(), RedisOptions{Addr: addr, Namespace: "caixa-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	require.NoError(t, r.Put(ctx, "rt/a", []byte("one")))
	defer func() { _ = r.Delete(ctx, "rt/a") }()

	v, err := r.Get(ctx, "rt/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v)

	_, err = r.Get(ctx, "rt/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisApplyAndList(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	err := r.Apply(ctx, []Op{
		{Key: "al/1", Value: []byte("a")},
		{Key: "al/2", Value: []byte("b")},
	})
	require.NoError(t, err)
	defer func() {
		_ = r.Delete(ctx, "al/1")
		_ = r.Delete(ctx, "al/2")
	}()

	pairs, err := r.List(ctx, "al/")
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}
