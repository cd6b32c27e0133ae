package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "caixa.db.json")

	kv, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "a", []byte("1")))
	require.NoError(t, kv.Apply(ctx, []Op{
		{Key: "b", Value: []byte("2")},
		{Key: "c", Value: []byte("3")},
	}))
	require.NoError(t, kv.Delete(ctx, "a"))

	reopened, err := NewFile(path)
	require.NoError(t, err)

	_, err = reopened.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := reopened.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	pairs, err := reopened.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "b", pairs[0].Key)
	assert.Equal(t, "c", pairs[1].Key)
}

func TestFileGetMissing(t *testing.T) {
	kv, err := NewFile(filepath.Join(t.TempDir(), "caixa.db.json"))
	require.NoError(t, err)
	_, err = kv.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileListPrefix(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFile(filepath.Join(t.TempDir(), "caixa.db.json"))
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "journal/batch/x", []byte("1")))
	require.NoError(t, kv.Put(ctx, "domain/txn/y", []byte("2")))

	pairs, err := kv.List(ctx, "journal/")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "journal/batch/x", pairs[0].Key)
}
