// Package id generates identifiers for batches, entries and operations.
// Batch and operation ids are UUIDs; entry ids derive from their batch id
// with a letter suffix per line ("<batch>-a", "<batch>-b", ...).
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewBatchID returns a fresh batch identifier.
func NewBatchID() string {
	return "bat-" + uuid.NewString()
}

// NewOperationID returns a fresh operation identifier.
func NewOperationID() string {
	return "op-" + uuid.NewString()
}

// NewTransactionID returns a fresh domain-transaction identifier.
func NewTransactionID() string {
	return "txn-" + uuid.NewString()
}

// EntryID returns the id of the line-th entry of a batch.
// Lines beyond 'z' fall back to a numeric suffix.
func EntryID(batchID string, line int) string {
	if line < 26 {
		return batchID + "-" + string(rune('a'+line))
	}
	return fmt.Sprintf("%s-%d", batchID, line)
}

// BatchOf returns the batch id an entry id belongs to.
// "bat-xyz-a" -> "bat-xyz". Returns the input unchanged if it has no
// recognizable suffix.
func BatchOf(entryID string) string {
	i := strings.LastIndex(entryID, "-")
	if i < 0 {
		return entryID
	}
	return entryID[:i]
}
