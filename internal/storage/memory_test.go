package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Put(ctx, "a", []byte("one")))
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v)

	// Mutating the returned slice must not affect the store.
	v[0] = 'X'
	v2, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v2)
}

func TestMemoryApply(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "doomed", []byte("x")))

	err := m.Apply(ctx, []Op{
		{Key: "batch/1", Value: []byte("b")},
		{Key: "entry/1/0", Value: []byte("e0")},
		{Key: "entry/1/1", Value: []byte("e1")},
		{Key: "doomed", Delete: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	_, err = m.Get(ctx, "doomed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryList(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "entry/2", []byte("b")))
	require.NoError(t, m.Put(ctx, "entry/1", []byte("a")))
	require.NoError(t, m.Put(ctx, "batch/1", []byte("c")))

	pairs, err := m.List(ctx, "entry/")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "entry/1", pairs[0].Key)
	assert.Equal(t, "entry/2", pairs[1].Key)

	all, err := m.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryDeleteMissing(t *testing.T) {
	assert.NoError(t, NewMemory().Delete(context.Background(), "nope"))
}
