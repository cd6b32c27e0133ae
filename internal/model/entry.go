package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of a single ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusConfirmed EntryStatus = "confirmed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// LedgerEntry is one row of the journal: a single debit or credit against
// one account. Entries are never mutated in place; corrections are new
// reversing batches, so the audit trail stays intact.
type LedgerEntry struct {
	ID            string
	BatchID       string // groups the entries produced by one business operation
	TransactionID string // reference to the originating domain transaction
	AccountCode   string
	Description   string
	Debit         decimal.Decimal // zero if credit side
	Credit        decimal.Decimal // zero if debit side
	Balance       decimal.Decimal // running balance for the account at post time
	Date          time.Time
	Status        EntryStatus
	CreatedAt     time.Time
	CreatedBy     string
}

// Amount returns the non-zero side of the entry.
func (e LedgerEntry) Amount() decimal.Decimal {
	if !e.Debit.IsZero() {
		return e.Debit
	}
	return e.Credit
}

// Side returns which side of the ledger the entry posts to.
func (e LedgerEntry) Side() Side {
	if !e.Debit.IsZero() {
		return SideDebit
	}
	return SideCredit
}

// BatchStatus is the state machine of a double-entry batch:
// DRAFT -> CONFIRMED -> REVERSED. A confirmed batch is immutable;
// reversal is the only mutation path.
type BatchStatus string

const (
	BatchStatusDraft     BatchStatus = "draft"
	BatchStatusConfirmed BatchStatus = "confirmed"
	BatchStatusReversed  BatchStatus = "reversed"
)

// Batch is the atomic set of ledger entries produced by one business
// operation. ReversalOf links a reversing batch back to its original;
// ReversedBy links a reversed original forward to its reversal.
type Batch struct {
	ID            string
	Seq           int64 // journal-wide insertion order, assigned at append
	Reference     string
	TransactionID string
	Date          time.Time
	Status        BatchStatus
	ReversalOf    string
	ReversedBy    string
	CreatedAt     time.Time
	CreatedBy     string
	Entries       []LedgerEntry
}

// TotalDebit sums the debit side of all entries in the batch.
func (b Batch) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.Entries {
		total = total.Add(e.Debit)
	}
	return total
}

// TotalCredit sums the credit side of all entries in the batch.
func (b Batch) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.Entries {
		total = total.Add(e.Credit)
	}
	return total
}

// IsBalanced reports whether debits equal credits within Tolerance.
func (b Batch) IsBalanced() bool {
	return WithinTolerance(b.TotalDebit(), b.TotalCredit())
}

// AccountBalance is the derived balance of one account, always
// recomputable from the journal. Balance is folded per the account's
// normal side: debit-normal accounts carry debits minus credits,
// credit-normal accounts the opposite.
type AccountBalance struct {
	AccountCode   string
	NormalBalance Side
	DebitTotal    decimal.Decimal
	CreditTotal   decimal.Decimal
	Balance       decimal.Decimal
	AsOf          time.Time
	EntryCount    int
}
