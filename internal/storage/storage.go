// Package storage defines the durable key-value substrate the ledger
// persists into. The engine never assumes a particular technology; any
// backend that can apply a set of writes atomically qualifies.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Op is a single write in an atomic batch: a put, or a delete when
// Delete is set.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Pair is a key/value result from List.
type Pair struct {
	Key   string
	Value []byte
}

// KV is a durable key-value store. Apply is all-or-nothing: either every
// op in the batch becomes visible or none does, so readers never observe
// half a ledger batch. List takes a consistent snapshot of the matching
// keys rather than re-reading mid-iteration.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Apply(ctx context.Context, ops []Op) error
	List(ctx context.Context, prefix string) ([]Pair, error)
}
