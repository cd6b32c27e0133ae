package txengine

import (
	"fmt"

	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/model"
)

// Fallback posting accounts for transactions whose category has no
// account of its own.
const (
	fallbackExpenseCode = "5.2.99"
	fallbackIncomeCode  = "4.1.99"
)

// AccountPair names the two posting accounts a transaction resolves to.
type AccountPair struct {
	Debit  string
	Credit string
}

// Mapping resolves a domain transaction to the ledger accounts it posts
// against. The caller's own account is always one leg; the category
// account is the other, falling back to a catch-all when the category is
// not itself an account code.
type Mapping struct {
	accounts *coa.Service
}

// NewMapping creates a Mapping over a chart of accounts.
func NewMapping(accounts *coa.Service) *Mapping {
	return &Mapping{accounts: accounts}
}

// Resolve maps a transaction to its debit and credit accounts. A
// transfer carries both accounts explicitly: the source in AccountCode,
// the destination in Category; no category fallback applies.
func (m *Mapping) Resolve(t model.Transaction) (AccountPair, error) {
	switch t.Type {
	case model.TransactionTypeExpense:
		category := m.categoryAccount(t.Category, fallbackExpenseCode)
		return AccountPair{Debit: category, Credit: t.AccountCode}, nil
	case model.TransactionTypeIncome:
		category := m.categoryAccount(t.Category, fallbackIncomeCode)
		return AccountPair{Debit: t.AccountCode, Credit: category}, nil
	case model.TransactionTypeTransfer:
		if t.Category == "" {
			return AccountPair{}, fmt.Errorf("transfer %s has no destination account", t.ID)
		}
		return AccountPair{Debit: t.Category, Credit: t.AccountCode}, nil
	default:
		return AccountPair{}, fmt.Errorf("transaction type %q has no account mapping", t.Type)
	}
}

// categoryAccount returns the category when it names a postable account,
// otherwise the fallback.
func (m *Mapping) categoryAccount(category, fallback string) string {
	if category != "" && m.accounts.AcceptsEntries(category) {
		return category
	}
	return fallback
}
