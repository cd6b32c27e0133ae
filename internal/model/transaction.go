package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies domain transactions.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Valid reports whether the transaction type is known.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// Transaction is a user-visible domain transaction. The ledger records its
// economic effect as a batch of entries; BatchID links the two.
type Transaction struct {
	ID          string
	Type        TransactionType
	Description string
	Amount      decimal.Decimal
	AccountCode string // canonical account reference, resolved once at the boundary
	Category    string
	Date        time.Time
	BatchID     string
	CreatedAt   time.Time
	CreatedBy   string
}

// Goal is a savings goal tracked alongside transactions.
type Goal struct {
	ID            string
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      time.Time
	CreatedBy     string
}

// Investment is an investment position tracked alongside transactions.
type Investment struct {
	ID           string
	Name         string
	Amount       decimal.Decimal
	CurrentValue decimal.Decimal
	AccountCode  string
	Date         time.Time
	CreatedBy    string
}

// EntityKind tags the closed set of entity variants the validator accepts.
type EntityKind string

const (
	EntityKindAccount     EntityKind = "account"
	EntityKindTransaction EntityKind = "transaction"
	EntityKindGoal        EntityKind = "goal"
	EntityKindInvestment  EntityKind = "investment"
)

// Entity is the closed union of validatable records. The marker method
// keeps the set sealed so the validator's switch stays exhaustive.
type Entity interface {
	Kind() EntityKind
	entity()
}

// Kind implements Entity.
func (Account) Kind() EntityKind { return EntityKindAccount }

// Kind implements Entity.
func (Transaction) Kind() EntityKind { return EntityKindTransaction }

// Kind implements Entity.
func (Goal) Kind() EntityKind { return EntityKindGoal }

// Kind implements Entity.
func (Investment) Kind() EntityKind { return EntityKindInvestment }

func (Account) entity()     {}
func (Transaction) entity() {}
func (Goal) entity()        {}
func (Investment) entity()  {}
