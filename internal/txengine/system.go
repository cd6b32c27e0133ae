package txengine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/ledger"
	"github.com/caixa-dev/caixa/internal/validation"
)

// SystemCheck is the full health picture: entity-level findings, journal
// integrity and the trial balance.
type SystemCheck struct {
	Report    validation.SystemReport
	Integrity ledger.IntegrityReport
	Trial     ledger.TrialBalance
}

// CheckSystem gathers every transaction, entry and cached balance and
// runs the validator and the journal integrity scan over them.
func (e *Engine) CheckSystem(ctx context.Context) (SystemCheck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out SystemCheck

	trial, err := e.ledger.TrialBalance(ctx, time.Time{})
	if err != nil {
		return out, err
	}
	out.Trial = trial

	integrity, err := e.ledger.ValidateIntegrity(ctx, e.store)
	if err != nil {
		return out, err
	}
	out.Integrity = integrity

	txns, err := e.store.Transactions(ctx)
	if err != nil {
		return out, err
	}
	entries, err := e.journal.Entries(ctx)
	if err != nil {
		return out, err
	}
	cached, err := e.store.CachedBalances(ctx)
	if err != nil {
		return out, err
	}

	report, err := e.validator.ValidateSystem(ctx, validation.SystemState{
		Transactions:    txns,
		Entries:         entries,
		CachedBalances:  cached,
		TrialBalanced:   trial.IsBalanced,
		TrialDifference: trial.Difference,
	})
	if err != nil {
		return out, err
	}
	// Journal-level corruption outranks anything the entity scan found.
	if !integrity.IsValid && report.Status != validation.StatusCorrupted {
		report.Status = validation.StatusCritical
	}
	out.Report = report

	e.log.Info("system check",
		zap.String("status", string(report.Status)),
		zap.Int("score", report.Score),
		zap.Int("transactions", report.CheckedTransactions),
		zap.Bool("trial_balanced", trial.IsBalanced),
		zap.Int("integrity_issues", len(integrity.Issues)),
	)
	return out, nil
}
