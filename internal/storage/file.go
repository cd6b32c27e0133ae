package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// File is a KV persisted as one JSON file. The whole map is held in
// memory and rewritten through a temp-file rename on every mutation, so
// a crash mid-write leaves either the old file or the new one, never a
// torn mix.
type File struct {
	path string

	mu   sync.RWMutex
	data map[string][]byte
}

// NewFile opens or creates the store at path.
func NewFile(path string) (*File, error) {
	f := &File{path: path, data: make(map[string][]byte)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, fmt.Errorf("parsing store %s: %w", path, err)
	}
	return f, nil
}

// Get implements KV.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	value, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put implements KV.
func (f *File) Put(ctx context.Context, key string, value []byte) error {
	return f.Apply(ctx, []Op{{Key: key, Value: value}})
}

// Delete implements KV.
func (f *File) Delete(ctx context.Context, key string) error {
	return f.Apply(ctx, []Op{{Key: key, Delete: true}})
}

// Apply implements KV. The batch mutates the in-memory map only after
// the new file content is durably in place.
func (f *File) Apply(_ context.Context, ops []Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string][]byte, len(f.data)+len(ops))
	for k, v := range f.data {
		next[k] = v
	}
	for _, op := range ops {
		if op.Delete {
			delete(next, op.Key)
			continue
		}
		next[op.Key] = append([]byte(nil), op.Value...)
	}

	if err := f.flush(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// List implements KV.
func (f *File) List(_ context.Context, prefix string) ([]Pair, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []Pair
	for k, v := range f.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Pair{Key: k, Value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *File) flush(data map[string][]byte) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
