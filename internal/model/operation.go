package model

import "time"

// OperationType is the kind of work a transaction-engine operation performs.
type OperationType string

const (
	OperationCreate   OperationType = "create"
	OperationUpdate   OperationType = "update"
	OperationDelete   OperationType = "delete"
	OperationTransfer OperationType = "transfer"
)

// OperationStatus tracks an operation through its state machine.
// Transitions are linear: PENDING -> PROCESSING -> {COMPLETED | FAILED |
// ROLLED_BACK}; there is no re-entry into PENDING once processing starts.
type OperationStatus string

const (
	OperationPending    OperationStatus = "pending"
	OperationProcessing OperationStatus = "processing"
	OperationCompleted  OperationStatus = "completed"
	OperationFailed     OperationStatus = "failed"
	OperationRolledBack OperationStatus = "rolled_back"
)

// Terminal reports whether the status is an end state.
func (s OperationStatus) Terminal() bool {
	switch s {
	case OperationCompleted, OperationFailed, OperationRolledBack:
		return true
	}
	return false
}

// Operation is the transaction engine's unit of work: one caller request
// and its outcome.
type Operation struct {
	ID            string
	Type          OperationType
	Status        OperationStatus
	TransactionID string
	BatchIDs      []string // ledger batches produced by this operation
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}
