package validation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/model"
)

// System status, from best to worst.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusWarning   Status = "warning"
	StatusCritical  Status = "critical"
	StatusCorrupted Status = "corrupted"
)

// System-level critical issue codes.
const (
	CodeBalanceInconsistency = "BALANCE_INCONSISTENCY"
	CodeMissingEntries       = "MISSING_ENTRIES"
	CodeOrphanedData         = "ORPHANED_DATA"
	CodeDuplicateTransaction = "DUPLICATE_TRANSACTION"
)

// duplicateWindow bounds how close in creation time two otherwise
// identical transactions must be to count as duplicates.
const duplicateWindow = 24 * time.Hour

// SystemState carries the collections a system check runs over. Callers
// assemble it explicitly; the validator never reaches into globals.
type SystemState struct {
	Transactions    []model.Transaction
	Entries         []model.LedgerEntry
	CachedBalances  map[string]decimal.Decimal
	TrialBalanced   bool
	TrialDifference decimal.Decimal
}

// SystemReport aggregates per-entity findings plus cross-cutting checks.
// Status reflects the highest-priority unresolved critical issue.
type SystemReport struct {
	Status              Status
	Errors              []Error
	Warnings            []Warning
	CriticalIssues      []CriticalIssue
	Score               int
	CheckedTransactions int
}

// ValidateSystem runs per-transaction validation plus duplicate
// detection, orphan detection, cached-balance verification and the trial
// balance check.
func (v *Validator) ValidateSystem(ctx context.Context, state SystemState) (SystemReport, error) {
	report := SystemReport{CheckedTransactions: len(state.Transactions)}

	txnIDs := make(map[string]bool, len(state.Transactions))
	for _, t := range state.Transactions {
		txnIDs[t.ID] = true
		// Balance impact is a mutation-time concern; stored transactions
		// are checked structurally only.
		var res Result
		v.validateTransaction(ctx, t, false, decimal.Zero, &res)
		report.Errors = append(report.Errors, res.Errors...)
		report.Warnings = append(report.Warnings, res.Warnings...)
	}

	report.Warnings = append(report.Warnings, findDuplicates(state.Transactions)...)

	// Orphans: ledger entries pointing at a transaction that no longer
	// exists. Entries without a transaction reference (manual postings)
	// are legitimate.
	orphaned := make(map[string]bool)
	for _, e := range state.Entries {
		if e.TransactionID != "" && !txnIDs[e.TransactionID] && !orphaned[e.TransactionID] {
			orphaned[e.TransactionID] = true
			report.CriticalIssues = append(report.CriticalIssues, CriticalIssue{
				Code:             CodeOrphanedData,
				Message:          fmt.Sprintf("ledger entries reference missing transaction %s", e.TransactionID),
				Priority:         3,
				AutoFixAvailable: true, // a reversal batch repairs it
			})
		}
	}

	// Missing entries: a posted transaction whose batch left no trace.
	entriesByTxn := make(map[string]int)
	for _, e := range state.Entries {
		entriesByTxn[e.TransactionID]++
	}
	for _, t := range state.Transactions {
		if t.BatchID != "" && entriesByTxn[t.ID] == 0 {
			report.CriticalIssues = append(report.CriticalIssues, CriticalIssue{
				Code:     CodeMissingEntries,
				Message:  fmt.Sprintf("transaction %s claims batch %s but the journal has no entries", t.ID, t.BatchID),
				Priority: 2,
			})
		}
	}

	// Cached balances must equal the ledger fold. This is the core
	// system invariant.
	if v.ledger != nil {
		codes := make([]string, 0, len(state.CachedBalances))
		for code := range state.CachedBalances {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			cached := state.CachedBalances[code]
			bal, err := v.ledger.AccountBalance(ctx, code, time.Time{})
			if err != nil {
				return SystemReport{}, fmt.Errorf("recomputing balance of %s: %w", code, err)
			}
			if !model.WithinTolerance(cached, bal.Balance) {
				report.CriticalIssues = append(report.CriticalIssues, CriticalIssue{
					Code: CodeBalanceInconsistency,
					Message: fmt.Sprintf("account %s cached balance %s != ledger balance %s",
						code, cached.StringFixed(2), bal.Balance.StringFixed(2)),
					Priority:         2,
					AutoFixAvailable: true, // recompute from the journal
				})
			}
		}
	}

	if !state.TrialBalanced {
		report.CriticalIssues = append(report.CriticalIssues, CriticalIssue{
			Code: CodeBalanceInconsistency,
			Message: fmt.Sprintf("trial balance off by %s: the books themselves are broken",
				state.TrialDifference.StringFixed(2)),
			Priority: 1,
		})
	}

	report.Score = computeScore(report.Errors, report.Warnings)
	report.Status = statusOf(report)

	v.log.Info("system validation finished",
		zap.String("status", string(report.Status)),
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("critical", len(report.CriticalIssues)),
		zap.Int("score", report.Score),
	)
	return report, nil
}

func statusOf(r SystemReport) Status {
	highest := 0
	for _, c := range r.CriticalIssues {
		if highest == 0 || c.Priority < highest {
			highest = c.Priority
		}
	}
	switch {
	case highest == 1:
		return StatusCorrupted
	case highest > 1:
		return StatusCritical
	case len(r.Errors) > 0 || len(r.Warnings) > 0:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// findDuplicates flags transactions with identical amount, account, date
// and description created within 24 hours of each other.
func findDuplicates(txns []model.Transaction) []Warning {
	type key struct {
		amount  string
		account string
		date    string
		desc    string
	}
	groups := make(map[key][]model.Transaction)
	var order []key
	for _, t := range txns {
		k := key{
			amount:  t.Amount.StringFixed(2),
			account: t.AccountCode,
			date:    t.Date.Format("2006-01-02"),
			desc:    t.Description,
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}

	var warnings []Warning
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].CreatedAt.Before(group[j].CreatedAt) })
		for i := 1; i < len(group); i++ {
			if group[i].CreatedAt.Sub(group[i-1].CreatedAt) <= duplicateWindow {
				warnings = append(warnings, Warning{
					Code:    CodeDuplicateTransaction,
					Field:   "description",
					Message: fmt.Sprintf("transactions %s and %s look identical", group[i-1].ID, group[i].ID),
					Impact:  ImpactMedium,
				})
			}
		}
	}
	return warnings
}
