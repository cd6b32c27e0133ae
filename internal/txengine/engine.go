// Package txengine orchestrates domain transactions as multi-step
// operations over the ledger and the domain store. Every step that
// mutates state carries a compensation, so a mid-operation failure
// leaves the books as they were.
package txengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/audit"
	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/id"
	"github.com/caixa-dev/caixa/internal/identity"
	"github.com/caixa-dev/caixa/internal/journal"
	"github.com/caixa-dev/caixa/internal/ledger"
	"github.com/caixa-dev/caixa/internal/model"
	"github.com/caixa-dev/caixa/internal/txstore"
	"github.com/caixa-dev/caixa/internal/validation"
)

// Deps are the collaborators a transaction engine works through.
type Deps struct {
	Ledger    *ledger.Engine
	Journal   *journal.Store
	Store     *txstore.Store
	Accounts  *coa.Service
	Validator *validation.Validator
	Audit     *audit.Recorder
	Identity  identity.Provider
}

// Options tune engine policy.
type Options struct {
	// NonNegativeBalances rejects expenses and transfers that would
	// overdraw an asset account.
	NonNegativeBalances bool
	// CreditLimits caps how far each liability account may grow. Limits
	// are enforced whenever configured, independent of the non-negative
	// policy.
	CreditLimits map[string]decimal.Decimal
}

// Engine runs create, update, delete and transfer operations. Operations
// are serialized under one mutex; the ledger below already serializes its
// own writers, but the engine's read-then-write sequences (funds checks,
// cached balance refresh) need the wider critical section.
type Engine struct {
	ledger    *ledger.Engine
	journal   *journal.Store
	store     *txstore.Store
	accounts  *coa.Service
	validator *validation.Validator
	auditor   *audit.Recorder
	ident     identity.Provider
	mapping   *Mapping
	opts      Options
	log       *zap.Logger
	now       func() time.Time

	// hookAfter, when set, runs after each named step. Tests use it to
	// inject failures between steps.
	hookAfter func(step string) error

	mu sync.Mutex
}

// New creates a transaction engine.
func New(deps Deps, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	ident := deps.Identity
	if ident == nil {
		ident = identity.Static("local")
	}
	auditor := deps.Audit
	if auditor == nil {
		auditor = audit.NewRecorder(nil, log)
	}
	return &Engine{
		ledger:    deps.Ledger,
		journal:   deps.Journal,
		store:     deps.Store,
		accounts:  deps.Accounts,
		validator: deps.Validator,
		auditor:   auditor,
		ident:     ident,
		mapping:   NewMapping(deps.Accounts),
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the engine's clock. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// CreateTransaction validates and records one income or expense
// transaction: ledger entries first, then the domain record, then the
// cached balances. Any step failing compensates the completed ones.
func (e *Engine) CreateTransaction(ctx context.Context, t model.Transaction) (model.Transaction, model.Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := e.newOperation(model.OperationCreate)
	if t.ID == "" {
		t.ID = id.NewTransactionID()
	}
	t.CreatedAt = e.now()
	t.CreatedBy = e.ident.CurrentUserID()
	op.TransactionID = t.ID

	if err := e.admit(ctx, t); err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transaction_created", err), err
	}

	pair, err := e.mapping.Resolve(t)
	if err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transaction_created", err), err
	}
	if t.Type == model.TransactionTypeExpense {
		if err := e.availableFunds(ctx, t.AccountCode, t.Amount); err != nil {
			return model.Transaction{}, e.finish(ctx, op, "transaction_created", err), err
		}
	}

	var batch model.Batch
	steps := []step{
		{
			name: "post_entries",
			run: func(ctx context.Context) error {
				var perr error
				batch, perr = e.ledger.PostBatch(ctx, e.postRequest(t, pair))
				return perr
			},
			compensate: func(ctx context.Context) error {
				_, rerr := e.ledger.ReverseBatch(ctx, batch.ID, "desfazer criação", e.ident.CurrentUserID())
				return rerr
			},
		},
		{
			name: "save_transaction",
			run: func(ctx context.Context) error {
				t.BatchID = batch.ID
				return e.store.SaveTransaction(ctx, t)
			},
			compensate: func(ctx context.Context) error {
				return e.store.DeleteTransaction(ctx, t.ID)
			},
		},
		{
			name: "refresh_balances",
			run: func(ctx context.Context) error {
				return e.refreshBalances(ctx, pair.Debit, pair.Credit)
			},
		},
	}

	err = e.runSteps(ctx, &op, steps)
	if err != nil {
		e.repairBalances(ctx, pair.Debit, pair.Credit)
		return model.Transaction{}, e.finish(ctx, op, "transaction_created", err), err
	}
	op.BatchIDs = append(op.BatchIDs, batch.ID)
	return t, e.finishOK(ctx, op, "transaction_created"), nil
}

// Update names the transaction fields an update may change. Nil fields
// keep their current value.
type Update struct {
	Description *string
	Amount      *decimal.Decimal
	Category    *string
	AccountCode *string
	Date        *time.Time
}

// UpdateTransaction replaces a transaction's ledger entries with entries
// for the merged fields. The original batch is reversed, never edited;
// history stays append-only.
func (e *Engine) UpdateTransaction(ctx context.Context, txnID string, upd Update) (model.Transaction, model.Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := e.newOperation(model.OperationUpdate)
	op.TransactionID = txnID

	orig, err := e.store.Transaction(ctx, txnID)
	if err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transaction_updated", err), err
	}
	merged := applyUpdate(orig, upd)
	if err := e.admitUpdate(ctx, merged, orig); err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transaction_updated", err), err
	}
	pair, err := e.mapping.Resolve(merged)
	if err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transaction_updated", err), err
	}
	origPair, err := e.mapping.Resolve(orig)
	if err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transaction_updated", err), err
	}

	var reversal, batch model.Batch
	steps := []step{
		{
			name: "reverse_original",
			run: func(ctx context.Context) error {
				var rerr error
				reversal, rerr = e.ledger.ReverseBatch(ctx, orig.BatchID, "ajuste de transação", e.ident.CurrentUserID())
				return rerr
			},
			compensate: func(ctx context.Context) error {
				_, rerr := e.ledger.ReverseBatch(ctx, reversal.ID, "desfazer ajuste", e.ident.CurrentUserID())
				return rerr
			},
		},
		{
			name: "post_new_entries",
			run: func(ctx context.Context) error {
				var perr error
				batch, perr = e.ledger.PostBatch(ctx, e.postRequest(merged, pair))
				return perr
			},
			compensate: func(ctx context.Context) error {
				_, rerr := e.ledger.ReverseBatch(ctx, batch.ID, "desfazer ajuste", e.ident.CurrentUserID())
				return rerr
			},
		},
		{
			name: "save_transaction",
			run: func(ctx context.Context) error {
				merged.BatchID = batch.ID
				return e.store.SaveTransaction(ctx, merged)
			},
			compensate: func(ctx context.Context) error {
				return e.store.SaveTransaction(ctx, orig)
			},
		},
		{
			name: "refresh_balances",
			run: func(ctx context.Context) error {
				return e.refreshBalances(ctx, pair.Debit, pair.Credit, origPair.Debit, origPair.Credit)
			},
		},
	}

	err = e.runSteps(ctx, &op, steps)
	if err != nil {
		e.repairBalances(ctx, pair.Debit, pair.Credit, origPair.Debit, origPair.Credit)
		return model.Transaction{}, e.finish(ctx, op, "transaction_updated", err), err
	}
	op.BatchIDs = append(op.BatchIDs, reversal.ID, batch.ID)
	return merged, e.finishOK(ctx, op, "transaction_updated"), nil
}

// DeleteTransaction reverses a transaction's entries and removes the
// domain record. The entries themselves stay in the journal under the
// reversal.
func (e *Engine) DeleteTransaction(ctx context.Context, txnID, reason string) (model.Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := e.newOperation(model.OperationDelete)
	op.TransactionID = txnID

	orig, err := e.store.Transaction(ctx, txnID)
	if err != nil {
		return e.finish(ctx, op, "transaction_deleted", err), err
	}
	pair, err := e.mapping.Resolve(orig)
	if err != nil {
		return e.finish(ctx, op, "transaction_deleted", err), err
	}
	if reason == "" {
		reason = "exclusão de transação"
	}

	var reversal model.Batch
	steps := []step{
		{
			name: "reverse_entries",
			run: func(ctx context.Context) error {
				var rerr error
				reversal, rerr = e.ledger.ReverseBatch(ctx, orig.BatchID, reason, e.ident.CurrentUserID())
				return rerr
			},
			compensate: func(ctx context.Context) error {
				_, rerr := e.ledger.ReverseBatch(ctx, reversal.ID, "desfazer exclusão", e.ident.CurrentUserID())
				return rerr
			},
		},
		{
			name: "delete_transaction",
			run: func(ctx context.Context) error {
				return e.store.DeleteTransaction(ctx, txnID)
			},
			compensate: func(ctx context.Context) error {
				return e.store.SaveTransaction(ctx, orig)
			},
		},
		{
			name: "refresh_balances",
			run: func(ctx context.Context) error {
				return e.refreshBalances(ctx, pair.Debit, pair.Credit)
			},
		},
	}

	err = e.runSteps(ctx, &op, steps)
	if err != nil {
		e.repairBalances(ctx, pair.Debit, pair.Credit)
		return e.finish(ctx, op, "transaction_deleted", err), err
	}
	op.BatchIDs = append(op.BatchIDs, reversal.ID)
	return e.finishOK(ctx, op, "transaction_deleted"), nil
}

// TransferRequest moves an amount between two asset or liability
// accounts.
type TransferRequest struct {
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// TransferBetweenAccounts posts a single balanced batch debiting the
// destination and crediting the source, and records one transfer
// transaction. The transaction's Category carries the destination code.
func (e *Engine) TransferBetweenAccounts(ctx context.Context, req TransferRequest) (model.Transaction, model.Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	op := e.newOperation(model.OperationTransfer)

	t := model.Transaction{
		ID:          id.NewTransactionID(),
		Type:        model.TransactionTypeTransfer,
		Description: req.Description,
		Amount:      req.Amount,
		AccountCode: req.FromAccount,
		Category:    req.ToAccount,
		Date:        req.Date,
		CreatedAt:   e.now(),
		CreatedBy:   e.ident.CurrentUserID(),
	}
	op.TransactionID = t.ID

	if err := e.admit(ctx, t); err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transfer_completed", err), err
	}
	if req.FromAccount == req.ToAccount {
		err := fmt.Errorf("transfer between %s and itself", req.FromAccount)
		return model.Transaction{}, e.finish(ctx, op, "transfer_completed", err), err
	}
	if err := e.availableFunds(ctx, req.FromAccount, req.Amount); err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transfer_completed", err), err
	}

	pair, err := e.mapping.Resolve(t)
	if err != nil {
		return model.Transaction{}, e.finish(ctx, op, "transfer_completed", err), err
	}
	var batch model.Batch
	steps := []step{
		{
			name: "post_entries",
			run: func(ctx context.Context) error {
				var perr error
				batch, perr = e.ledger.PostBatch(ctx, e.postRequest(t, pair))
				return perr
			},
			compensate: func(ctx context.Context) error {
				_, rerr := e.ledger.ReverseBatch(ctx, batch.ID, "desfazer transferência", e.ident.CurrentUserID())
				return rerr
			},
		},
		{
			name: "save_transaction",
			run: func(ctx context.Context) error {
				t.BatchID = batch.ID
				return e.store.SaveTransaction(ctx, t)
			},
			compensate: func(ctx context.Context) error {
				return e.store.DeleteTransaction(ctx, t.ID)
			},
		},
		{
			name: "refresh_balances",
			run: func(ctx context.Context) error {
				return e.refreshBalances(ctx, pair.Debit, pair.Credit)
			},
		},
	}

	err = e.runSteps(ctx, &op, steps)
	if err != nil {
		e.repairBalances(ctx, pair.Debit, pair.Credit)
		return model.Transaction{}, e.finish(ctx, op, "transfer_completed", err), err
	}
	op.BatchIDs = append(op.BatchIDs, batch.ID)
	return t, e.finishOK(ctx, op, "transfer_completed"), nil
}

// admit runs entity validation and converts blocking findings into a
// ValidationError.
func (e *Engine) admit(ctx context.Context, t model.Transaction) error {
	res := e.validator.ValidateEntity(ctx, t)
	if res.Blocks(e.validator.Mode()) {
		return &ValidationError{Result: res}
	}
	return nil
}

// admitUpdate validates a replacement transaction. The original's
// effect is netted out of the funds check, since its batch is reversed
// before the replacement posts.
func (e *Engine) admitUpdate(ctx context.Context, merged, orig model.Transaction) error {
	res := e.validator.ValidateUpdate(ctx, merged, orig)
	if res.Blocks(e.validator.Mode()) {
		return &ValidationError{Result: res}
	}
	return nil
}

// availableFunds enforces the non-negative policy for asset accounts and
// configured credit limits for liability accounts.
func (e *Engine) availableFunds(ctx context.Context, code string, amount decimal.Decimal) error {
	acct, ok := e.accounts.Get(code)
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, code)
	}

	switch acct.Type {
	case model.AccountTypeLiability:
		limit, capped := e.opts.CreditLimits[code]
		if !capped {
			return nil
		}
		bal, err := e.ledger.AccountBalance(ctx, code, time.Time{})
		if err != nil {
			return err
		}
		if bal.Balance.Add(amount).GreaterThan(limit) {
			return fmt.Errorf("%w: account %s owes %s of a %s limit, cannot add %s",
				ErrInsufficientFunds, code, bal.Balance, limit, amount)
		}
	case model.AccountTypeAsset:
		if !e.opts.NonNegativeBalances {
			return nil
		}
		bal, err := e.ledger.AccountBalance(ctx, code, time.Time{})
		if err != nil {
			return err
		}
		if bal.Balance.LessThan(amount) {
			return fmt.Errorf("%w: account %s holds %s, needs %s",
				ErrInsufficientFunds, code, bal.Balance, amount)
		}
	}
	return nil
}

// postRequest builds the two-line balanced batch for a resolved
// transaction.
func (e *Engine) postRequest(t model.Transaction, pair AccountPair) ledger.PostRequest {
	return ledger.PostRequest{
		Lines: []ledger.Line{
			{AccountCode: pair.Debit, Debit: t.Amount, Description: t.Description},
			{AccountCode: pair.Credit, Credit: t.Amount, Description: t.Description},
		},
		Date:          t.Date,
		Reference:     t.Description,
		TransactionID: t.ID,
		CreatedBy:     t.CreatedBy,
	}
}

// refreshBalances recomputes the cached balance of each account from the
// ledger.
func (e *Engine) refreshBalances(ctx context.Context, codes ...string) error {
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		bal, err := e.ledger.AccountBalance(ctx, code, time.Time{})
		if err != nil {
			return err
		}
		if err := e.store.SetCachedBalance(ctx, code, bal.Balance); err != nil {
			return err
		}
	}
	return nil
}

// repairBalances is the best-effort refresh after a rollback. The ledger
// is the source of truth, so a failure here only leaves a stale cache
// that the system check flags as auto-fixable.
func (e *Engine) repairBalances(ctx context.Context, codes ...string) {
	if err := e.refreshBalances(ctx, codes...); err != nil {
		e.log.Warn("cached balance refresh failed after rollback", zap.Error(err))
	}
}

func (e *Engine) newOperation(kind model.OperationType) model.Operation {
	return model.Operation{
		ID:        id.NewOperationID(),
		Type:      kind,
		Status:    model.OperationPending,
		StartedAt: e.now(),
	}
}

// finish stamps a failed operation and audits it. runSteps already set a
// terminal status when the failure happened mid-saga; failures before the
// first step mark the operation FAILED here.
func (e *Engine) finish(ctx context.Context, op model.Operation, action string, err error) model.Operation {
	if !op.Status.Terminal() {
		op.Status = model.OperationFailed
		op.Error = err.Error()
	}
	op.FinishedAt = e.now()
	sev := audit.SeverityWarning
	if op.Status == model.OperationFailed && op.Error != "" && isRollbackFailure(err) {
		sev = audit.SeverityCritical
	}
	e.auditor.Record(ctx, audit.Event{
		Action:      action + "_failed",
		UserID:      e.ident.CurrentUserID(),
		OperationID: op.ID,
		Details:     op.Error,
		Severity:    sev,
	})
	return op
}

func (e *Engine) finishOK(ctx context.Context, op model.Operation, action string) model.Operation {
	op.FinishedAt = e.now()
	e.auditor.Record(ctx, audit.Event{
		Action:      action,
		UserID:      e.ident.CurrentUserID(),
		OperationID: op.ID,
		Details:     op.TransactionID,
		Severity:    audit.SeverityInfo,
	})
	return op
}

func isRollbackFailure(err error) bool {
	_, ok := err.(*RollbackError)
	return ok
}

func applyUpdate(t model.Transaction, upd Update) model.Transaction {
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Amount != nil {
		t.Amount = *upd.Amount
	}
	if upd.Category != nil {
		t.Category = *upd.Category
	}
	if upd.AccountCode != nil {
		t.AccountCode = *upd.AccountCode
	}
	if upd.Date != nil {
		t.Date = *upd.Date
	}
	return t
}
