package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/model"
)

// Integrity issue codes.
const (
	IssueUnbalancedBatch   = "UNBALANCED_BATCH"
	IssueUnknownAccount    = "UNKNOWN_ACCOUNT"
	IssueNonPostingAccount = "NON_POSTING_ACCOUNT"
	IssueOrphanedEntry     = "ORPHANED_ENTRY"
	IssueMissingReversal   = "MISSING_REVERSAL"
)

// IntegrityIssue is one defect found by ValidateIntegrity.
type IntegrityIssue struct {
	Code    string
	BatchID string
	EntryID string
	Detail  string
}

// IntegrityReport is the result of a full-journal integrity check.
type IntegrityReport struct {
	IsValid bool
	Issues  []IntegrityIssue
}

// TransactionChecker reports whether a domain transaction id still
// exists. A nil checker skips the orphan check.
type TransactionChecker interface {
	Exists(ctx context.Context, transactionID string) (bool, error)
}

// ValidateIntegrity cross-checks the whole journal: every batch
// balances, every entry posts to a known leaf account, every entry's
// batch header exists, and no confirmed entry references a vanished
// domain transaction without a reversal.
func (e *Engine) ValidateIntegrity(ctx context.Context, txns TransactionChecker) (IntegrityReport, error) {
	report := IntegrityReport{IsValid: true}
	add := func(issue IntegrityIssue) {
		report.IsValid = false
		report.Issues = append(report.Issues, issue)
	}

	batches, err := e.store.Batches(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}
	batchByID := make(map[string]model.Batch, len(batches))
	for _, b := range batches {
		batchByID[b.ID] = b
	}

	entries, err := e.store.Entries(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}

	byBatch := make(map[string][]model.LedgerEntry)
	for _, entry := range entries {
		byBatch[entry.BatchID] = append(byBatch[entry.BatchID], entry)

		if _, ok := batchByID[entry.BatchID]; !ok {
			add(IntegrityIssue{
				Code:    IssueOrphanedEntry,
				EntryID: entry.ID,
				BatchID: entry.BatchID,
				Detail:  "entry has no batch header",
			})
		}

		acct, ok := e.accounts.Get(entry.AccountCode)
		if !ok {
			add(IntegrityIssue{
				Code:    IssueUnknownAccount,
				EntryID: entry.ID,
				BatchID: entry.BatchID,
				Detail:  fmt.Sprintf("account %s not in chart", entry.AccountCode),
			})
		} else if !acct.AcceptsEntries {
			add(IntegrityIssue{
				Code:    IssueNonPostingAccount,
				EntryID: entry.ID,
				BatchID: entry.BatchID,
				Detail:  fmt.Sprintf("account %s is an aggregate", entry.AccountCode),
			})
		}
	}

	for _, b := range batches {
		check := model.Batch{Entries: byBatch[b.ID]}
		if !check.IsBalanced() {
			add(IntegrityIssue{
				Code:    IssueUnbalancedBatch,
				BatchID: b.ID,
				Detail: fmt.Sprintf("debits %s != credits %s",
					check.TotalDebit().StringFixed(2), check.TotalCredit().StringFixed(2)),
			})
		}
	}

	if txns != nil {
		for _, b := range batches {
			if b.TransactionID == "" || b.Status == model.BatchStatusReversed || b.ReversalOf != "" {
				continue
			}
			exists, err := txns.Exists(ctx, b.TransactionID)
			if err != nil {
				return IntegrityReport{}, fmt.Errorf("checking transaction %s: %w", b.TransactionID, err)
			}
			if !exists {
				add(IntegrityIssue{
					Code:    IssueMissingReversal,
					BatchID: b.ID,
					Detail:  fmt.Sprintf("transaction %s is gone but batch was never reversed", b.TransactionID),
				})
			}
		}
	}

	if !report.IsValid {
		e.log.Warn("journal integrity check failed", zap.Int("issues", len(report.Issues)))
	}
	return report, nil
}
