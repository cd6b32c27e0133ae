package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCodeLevel(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"1", 1},
		{"1.1", 2},
		{"1.1.02", 3},
		{"4.2.10", 3},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeLevel(tt.code), "CodeLevel(%q)", tt.code)
	}
}

func TestParentCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"1.1.02", "1.1"},
		{"1.1", "1"},
		{"1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParentCode(tt.code), "ParentCode(%q)", tt.code)
	}
}

func TestNormalBalanceFor(t *testing.T) {
	assert.Equal(t, SideDebit, NormalBalanceFor(AccountTypeAsset))
	assert.Equal(t, SideDebit, NormalBalanceFor(AccountTypeExpense))
	assert.Equal(t, SideCredit, NormalBalanceFor(AccountTypeLiability))
	assert.Equal(t, SideCredit, NormalBalanceFor(AccountTypeEquity))
	assert.Equal(t, SideCredit, NormalBalanceFor(AccountTypeRevenue))
}

func TestBatchTotalsAndBalance(t *testing.T) {
	b := Batch{
		Entries: []LedgerEntry{
			{AccountCode: "1.1.02", Debit: decimal.RequireFromString("100.00")},
			{AccountCode: "4.1.01", Credit: decimal.RequireFromString("60.00")},
			{AccountCode: "4.1.02", Credit: decimal.RequireFromString("40.00")},
		},
	}
	assert.True(t, b.TotalDebit().Equal(decimal.RequireFromString("100.00")))
	assert.True(t, b.TotalCredit().Equal(decimal.RequireFromString("100.00")))
	assert.True(t, b.IsBalanced())

	b.Entries[2].Credit = decimal.RequireFromString("39.00")
	assert.False(t, b.IsBalanced())
}

func TestWithinTolerance(t *testing.T) {
	a := decimal.RequireFromString("100.00")
	assert.True(t, WithinTolerance(a, decimal.RequireFromString("100.005")))
	assert.True(t, WithinTolerance(a, decimal.RequireFromString("99.995")))
	assert.False(t, WithinTolerance(a, decimal.RequireFromString("100.01")))
	assert.False(t, WithinTolerance(a, decimal.RequireFromString("99.98")))
}

func TestEntrySideAndAmount(t *testing.T) {
	d := LedgerEntry{Debit: decimal.RequireFromString("12.34")}
	assert.Equal(t, SideDebit, d.Side())
	assert.True(t, d.Amount().Equal(decimal.RequireFromString("12.34")))

	c := LedgerEntry{Credit: decimal.RequireFromString("5.00")}
	assert.Equal(t, SideCredit, c.Side())
	assert.True(t, c.Amount().Equal(decimal.RequireFromString("5.00")))
}

func TestOperationStatusTerminal(t *testing.T) {
	assert.False(t, OperationPending.Terminal())
	assert.False(t, OperationProcessing.Terminal())
	assert.True(t, OperationCompleted.Terminal())
	assert.True(t, OperationFailed.Terminal())
	assert.True(t, OperationRolledBack.Terminal())
}
