package model

import "strings"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether the account type is one of the five known types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Side is the debit or credit side of an entry or an account's normal balance.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// NormalBalanceFor returns the side on which an account type naturally
// accumulates value: assets and expenses grow on the debit side;
// liabilities, equity and revenue on the credit side.
func NormalBalanceFor(t AccountType) Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Account is a node in the chart of accounts. The dotted code ("1.1.02")
// is the canonical identifier; the parent is encoded by code prefix.
// Accounts are never hard-deleted (historical entries reference the code),
// only deactivated.
type Account struct {
	Code           string
	Name           string
	Type           AccountType
	NormalBalance  Side
	Level          int
	ParentCode     string // empty for top-level accounts
	IsActive       bool
	AcceptsEntries bool // leaf accounts only; aggregates never receive postings
}

// CodeLevel returns the hierarchy depth encoded in a dotted account code.
// "1" is level 1, "1.1.02" is level 3.
func CodeLevel(code string) int {
	if code == "" {
		return 0
	}
	return strings.Count(code, ".") + 1
}

// ParentCode returns the parent portion of a dotted account code, or ""
// for a top-level code.
func ParentCode(code string) string {
	i := strings.LastIndex(code, ".")
	if i < 0 {
		return ""
	}
	return code[:i]
}
