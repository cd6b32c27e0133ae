package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryID(t *testing.T) {
	assert.Equal(t, "bat-1-a", EntryID("bat-1", 0))
	assert.Equal(t, "bat-1-b", EntryID("bat-1", 1))
	assert.Equal(t, "bat-1-z", EntryID("bat-1", 25))
	assert.Equal(t, "bat-1-26", EntryID("bat-1", 26))
}

func TestBatchOf(t *testing.T) {
	batch := NewBatchID()
	assert.Equal(t, batch, BatchOf(EntryID(batch, 0)))
	assert.Equal(t, batch, BatchOf(EntryID(batch, 3)))
}

func TestNewIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewBatchID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
