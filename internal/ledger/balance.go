package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/model"
)

// AccountBalance replays all entries for an account up to asOf (a zero
// time means no cut-off, so future-dated entries count too) and folds
// them per the account's normal-balance side. For aggregate accounts
// the fold covers every posting descendant.
func (e *Engine) AccountBalance(ctx context.Context, code string, asOf time.Time) (model.AccountBalance, error) {
	acct, ok := e.accounts.Get(code)
	if !ok {
		return model.AccountBalance{}, fmt.Errorf("%w: %s", ErrUnknownAccount, code)
	}
	stamp := asOf
	if stamp.IsZero() {
		stamp = e.now()
	}

	codes := []string{code}
	if !acct.AcceptsEntries {
		codes = nil
		for _, child := range e.accounts.PostingAccounts() {
			if strings.HasPrefix(child.Code, code+".") {
				codes = append(codes, child.Code)
			}
		}
	}

	bal := model.AccountBalance{
		AccountCode:   code,
		NormalBalance: acct.NormalBalance,
		DebitTotal:    decimal.Zero,
		CreditTotal:   decimal.Zero,
		AsOf:          stamp,
	}
	for _, c := range codes {
		entries, err := e.store.EntriesForAccount(ctx, c, asOf)
		if err != nil {
			return model.AccountBalance{}, err
		}
		for _, entry := range entries {
			bal.DebitTotal = bal.DebitTotal.Add(entry.Debit)
			bal.CreditTotal = bal.CreditTotal.Add(entry.Credit)
			bal.EntryCount++
		}
	}

	if acct.NormalBalance == model.SideDebit {
		bal.Balance = bal.DebitTotal.Sub(bal.CreditTotal)
	} else {
		bal.Balance = bal.CreditTotal.Sub(bal.DebitTotal)
	}
	return bal, nil
}

// foldAccount returns the folded balance of a posting account up to asOf.
func (e *Engine) foldAccount(ctx context.Context, acct model.Account, asOf time.Time) (decimal.Decimal, error) {
	entries, err := e.store.EntriesForAccount(ctx, acct.Code, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for _, entry := range entries {
		debit = debit.Add(entry.Debit)
		credit = credit.Add(entry.Credit)
	}
	if acct.NormalBalance == model.SideDebit {
		return debit.Sub(credit), nil
	}
	return credit.Sub(debit), nil
}

// TrialBalance sums every posting-eligible account and checks that the
// debit side equals the credit side within tolerance. An unbalanced
// trial balance is a reportable integrity defect, never silent.
type TrialBalance struct {
	AsOf        time.Time
	Accounts    []model.AccountBalance
	TotalDebit  decimal.Decimal // sum of debit-normal account balances
	TotalCredit decimal.Decimal // sum of credit-normal account balances
	Difference  decimal.Decimal
	IsBalanced  bool
}

// TrialBalance computes the trial balance as of the given time (a zero
// time means no cut-off).
func (e *Engine) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	stamp := asOf
	if stamp.IsZero() {
		stamp = e.now()
	}

	tb := TrialBalance{
		AsOf:        stamp,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, acct := range e.accounts.PostingAccounts() {
		bal, err := e.AccountBalance(ctx, acct.Code, asOf)
		if err != nil {
			return TrialBalance{}, err
		}
		tb.Accounts = append(tb.Accounts, bal)
		if acct.NormalBalance == model.SideDebit {
			tb.TotalDebit = tb.TotalDebit.Add(bal.Balance)
		} else {
			tb.TotalCredit = tb.TotalCredit.Add(bal.Balance)
		}
	}

	tb.Difference = tb.TotalDebit.Sub(tb.TotalCredit).Abs()
	tb.IsBalanced = tb.Difference.LessThan(model.Tolerance)
	if !tb.IsBalanced {
		e.log.Warn("trial balance does not balance",
			zap.String("total_debit", tb.TotalDebit.StringFixed(2)),
			zap.String("total_credit", tb.TotalCredit.StringFixed(2)),
			zap.String("difference", tb.Difference.StringFixed(2)),
		)
	}
	return tb, nil
}
