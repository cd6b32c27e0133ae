package txengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/audit"
	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/identity"
	"github.com/caixa-dev/caixa/internal/journal"
	"github.com/caixa-dev/caixa/internal/ledger"
	"github.com/caixa-dev/caixa/internal/model"
	"github.com/caixa-dev/caixa/internal/storage"
	"github.com/caixa-dev/caixa/internal/txstore"
	"github.com/caixa-dev/caixa/internal/validation"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

// flakyKV wraps a KV and fails every call once tripped. Tests trip it
// mid-operation to exercise compensation failures.
type flakyKV struct {
	storage.KV
	failing bool
}

var errKVDown = errors.New("kv unavailable")

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failing {
		return nil, errKVDown
	}
	return f.KV.Get(ctx, key)
}

func (f *flakyKV) Put(ctx context.Context, key string, value []byte) error {
	if f.failing {
		return errKVDown
	}
	return f.KV.Put(ctx, key, value)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.failing {
		return errKVDown
	}
	return f.KV.Delete(ctx, key)
}

func (f *flakyKV) Apply(ctx context.Context, ops []storage.Op) error {
	if f.failing {
		return errKVDown
	}
	return f.KV.Apply(ctx, ops)
}

func (f *flakyKV) List(ctx context.Context, prefix string) ([]storage.Pair, error) {
	if f.failing {
		return nil, errKVDown
	}
	return f.KV.List(ctx, prefix)
}

type rig struct {
	engine  *Engine
	ledger  *ledger.Engine
	journal *journal.Store
	store   *txstore.Store
	sink    *audit.MemorySink
	kv      *flakyKV
}

func newRig(t *testing.T, mode validation.Mode, opts Options) *rig {
	t.Helper()
	kv := &flakyKV{KV: storage.NewMemory()}
	accounts := coa.NewService(coa.DefaultChart())
	jstore := journal.NewStore(kv)
	ldg := ledger.NewEngine(jstore, accounts, zap.NewNop())
	ldg.SetClock(func() time.Time { return testNow })
	validator := validation.New(accounts, ldg, mode, zap.NewNop())
	validator.SetClock(func() time.Time { return testNow })
	dstore := txstore.NewStore(kv)
	sink := &audit.MemorySink{}
	rec := audit.NewRecorder(sink, zap.NewNop())
	rec.SetClock(func() time.Time { return testNow })

	eng := New(Deps{
		Ledger:    ldg,
		Journal:   jstore,
		Store:     dstore,
		Accounts:  accounts,
		Validator: validator,
		Audit:     rec,
		Identity:  identity.Static("tester"),
	}, opts, zap.NewNop())
	eng.SetClock(func() time.Time { return testNow })

	return &rig{engine: eng, ledger: ldg, journal: jstore, store: dstore, sink: sink, kv: kv}
}

func income(amount string) model.Transaction {
	return model.Transaction{
		Type:        model.TransactionTypeIncome,
		Description: "salário de junho",
		Amount:      dec(amount),
		AccountCode: "1.1.02",
		Category:    "4.1.01",
		Date:        testNow,
	}
}

func expense(amount, category string) model.Transaction {
	return model.Transaction{
		Type:        model.TransactionTypeExpense,
		Description: "compra no mercado",
		Amount:      dec(amount),
		AccountCode: "1.1.02",
		Category:    category,
		Date:        testNow,
	}
}

func (r *rig) seedIncome(t *testing.T, amount string) {
	t.Helper()
	_, op, err := r.engine.CreateTransaction(context.Background(), income(amount))
	require.NoError(t, err)
	require.Equal(t, model.OperationCompleted, op.Status)
}

func (r *rig) balance(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	bal, err := r.ledger.AccountBalance(context.Background(), code, time.Time{})
	require.NoError(t, err)
	return bal.Balance
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{NonNegativeBalances: true})
	r.seedIncome(t, "1000.00")

	saved, op, err := r.engine.CreateTransaction(ctx, expense("150.00", "5.1.02"))
	require.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, op.Status)
	assert.NotEmpty(t, saved.ID)
	assert.NotEmpty(t, saved.BatchID)
	assert.Equal(t, "tester", saved.CreatedBy)

	got, err := r.store.Transaction(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.BatchID, got.BatchID)

	assert.True(t, r.balance(t, "1.1.02").Equal(dec("850.00")))
	assert.True(t, r.balance(t, "5.1.02").Equal(dec("150.00")))

	cached, ok, err := r.store.CachedBalance(ctx, "1.1.02")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.Equal(dec("850.00")), "cache follows the ledger")

	events := r.sink.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "transaction_created", last.Action)
	assert.Equal(t, audit.SeverityInfo, last.Severity)
}

func TestCreateTransactionCategoryFallback(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "500.00")

	saved, _, err := r.engine.CreateTransaction(ctx, expense("40.00", "coisas diversas"))
	require.NoError(t, err)

	entries, err := r.journal.EntriesForTransaction(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "5.2.99", entries[0].AccountCode, "unmapped category lands in the catch-all")
}

func TestCreateTransactionInsufficientFundsStrict(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{NonNegativeBalances: true})
	r.seedIncome(t, "100.00")

	before, err := r.journal.EntryCount(ctx)
	require.NoError(t, err)

	_, op, err := r.engine.CreateTransaction(ctx, expense("250.00", "5.1.02"))
	require.Error(t, err)
	assert.Equal(t, model.OperationFailed, op.Status)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Result.Errors)
	assert.Equal(t, validation.CodeInsufficientFunds, verr.Result.Errors[0].Code)

	after, err := r.journal.EntryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a blocked operation writes nothing")

	cached, ok, err := r.store.CachedBalance(ctx, "1.1.02")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.Equal(dec("100.00")))
}

func TestCreateTransactionOverdraftLenient(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeLenient, Options{})
	r.seedIncome(t, "100.00")

	_, op, err := r.engine.CreateTransaction(ctx, expense("250.00", "5.1.02"))
	require.NoError(t, err, "lenient mode downgrades the overdraft to a warning")
	assert.Equal(t, model.OperationCompleted, op.Status)
	assert.True(t, r.balance(t, "1.1.02").Equal(dec("-150.00")))
}

func TestCreateTransactionCreditLimit(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{
		CreditLimits: map[string]decimal.Decimal{"2.1.01": dec("500.00")},
	})

	card := expense("450.00", "5.2.01")
	card.AccountCode = "2.1.01"
	_, op, err := r.engine.CreateTransaction(ctx, card)
	require.NoError(t, err, "liability accounts may carry debt inside the limit")
	assert.Equal(t, model.OperationCompleted, op.Status)

	over := expense("100.00", "5.2.01")
	over.AccountCode = "2.1.01"
	_, op, err = r.engine.CreateTransaction(ctx, over)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, model.OperationFailed, op.Status)
	assert.True(t, r.balance(t, "2.1.01").Equal(dec("450.00")))
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")
	orig, _, err := r.engine.CreateTransaction(ctx, expense("150.00", "5.1.02"))
	require.NoError(t, err)

	newAmount := dec("200.00")
	updated, op, err := r.engine.UpdateTransaction(ctx, orig.ID, Update{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, op.Status)
	assert.True(t, updated.Amount.Equal(newAmount))
	assert.NotEqual(t, orig.BatchID, updated.BatchID, "updates never edit the original batch")
	assert.Len(t, op.BatchIDs, 2, "one reversal plus one new batch")

	assert.True(t, r.balance(t, "1.1.02").Equal(dec("800.00")))
	assert.True(t, r.balance(t, "5.1.02").Equal(dec("200.00")))

	// The original batch survives in the journal, marked reversed.
	batch, err := r.journal.Batch(ctx, orig.BatchID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusReversed, batch.Status)
}

func TestUpdateTransactionSpendsRestoredFunds(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{NonNegativeBalances: true})
	r.seedIncome(t, "1000.00")
	orig, _, err := r.engine.CreateTransaction(ctx, expense("150.00", "5.1.02"))
	require.NoError(t, err)

	// 900.00 exceeds the current 850.00 balance but not the 1000.00
	// restored once the original batch is reversed.
	newAmount := dec("900.00")
	updated, op, err := r.engine.UpdateTransaction(ctx, orig.ID, Update{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, op.Status)
	assert.True(t, updated.Amount.Equal(newAmount))
	assert.True(t, r.balance(t, "1.1.02").Equal(dec("100.00")))
	assert.True(t, r.balance(t, "5.1.02").Equal(dec("900.00")))

	// Beyond the restored balance it still blocks.
	tooMuch := dec("1100.00")
	_, op, err = r.engine.UpdateTransaction(ctx, orig.ID, Update{Amount: &tooMuch})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.OperationFailed, op.Status)
	assert.True(t, r.balance(t, "1.1.02").Equal(dec("100.00")), "blocked update changes nothing")
}

func TestUpdateTransfer(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")
	orig, _, err := r.engine.TransferBetweenAccounts(ctx, TransferRequest{
		FromAccount: "1.1.02",
		ToAccount:   "1.1.03",
		Amount:      dec("300.00"),
		Description: "reserva",
		Date:        testNow,
	})
	require.NoError(t, err)

	newAmount := dec("200.00")
	updated, op, err := r.engine.UpdateTransaction(ctx, orig.ID, Update{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, op.Status)
	assert.Equal(t, model.TransactionTypeTransfer, updated.Type)
	assert.True(t, r.balance(t, "1.1.02").Equal(dec("800.00")))
	assert.True(t, r.balance(t, "1.1.03").Equal(dec("200.00")))
}

func TestDeleteTransfer(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")
	saved, _, err := r.engine.TransferBetweenAccounts(ctx, TransferRequest{
		FromAccount: "1.1.02",
		ToAccount:   "1.1.03",
		Amount:      dec("300.00"),
		Description: "reserva",
		Date:        testNow,
	})
	require.NoError(t, err)

	op, err := r.engine.DeleteTransaction(ctx, saved.ID, "reserva cancelada")
	require.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, op.Status)
	assert.True(t, r.balance(t, "1.1.02").Equal(dec("1000.00")))
	assert.True(t, r.balance(t, "1.1.03").Equal(dec("0")))

	_, err = r.store.Transaction(ctx, saved.ID)
	assert.ErrorIs(t, err, txstore.ErrTransactionNotFound)
}

func TestUpdateTransactionRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")
	orig, _, err := r.engine.CreateTransaction(ctx, expense("150.00", "5.1.02"))
	require.NoError(t, err)

	injected := errors.New("disco cheio")
	r.engine.hookAfter = func(step string) error {
		if step == "save_transaction" {
			return injected
		}
		return nil
	}

	newAmount := dec("999.00")
	_, op, err := r.engine.UpdateTransaction(ctx, orig.ID, Update{Amount: &newAmount})
	require.ErrorIs(t, err, injected)
	assert.Equal(t, model.OperationRolledBack, op.Status)
	r.engine.hookAfter = nil

	// Compensations restored the books to the pre-update state.
	got, err := r.store.Transaction(ctx, orig.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("150.00")))
	assert.Equal(t, orig.BatchID, got.BatchID)
	assert.True(t, r.balance(t, "1.1.02").Equal(dec("850.00")))
	assert.True(t, r.balance(t, "5.1.02").Equal(dec("150.00")))

	trial, err := r.ledger.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	assert.True(t, trial.IsBalanced)
}

func TestUpdateTransactionNotFound(t *testing.T) {
	r := newRig(t, validation.ModeStrict, Options{})
	_, op, err := r.engine.UpdateTransaction(context.Background(), "txn-missing", Update{})
	require.ErrorIs(t, err, txstore.ErrTransactionNotFound)
	assert.Equal(t, model.OperationFailed, op.Status)
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")
	saved, _, err := r.engine.CreateTransaction(ctx, expense("150.00", "5.1.02"))
	require.NoError(t, err)

	op, err := r.engine.DeleteTransaction(ctx, saved.ID, "lançamento duplicado")
	require.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, op.Status)

	_, err = r.store.Transaction(ctx, saved.ID)
	assert.ErrorIs(t, err, txstore.ErrTransactionNotFound)

	// The entries are reversed, never deleted.
	entries, err := r.journal.EntriesForTransaction(ctx, saved.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.True(t, r.balance(t, "1.1.02").Equal(dec("1000.00")))
	assert.True(t, r.balance(t, "5.1.02").Equal(dec("0")))
}

func TestRollbackFailureEscalates(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")

	// Fail after the domain record is saved, then take the store down so
	// the compensation cannot run either.
	r.engine.hookAfter = func(step string) error {
		if step == "save_transaction" {
			r.kv.failing = true
			return errors.New("disco cheio")
		}
		return nil
	}

	_, op, err := r.engine.CreateTransaction(ctx, expense("150.00", "5.1.02"))
	require.ErrorIs(t, err, ErrRollbackFailed)
	assert.Equal(t, model.OperationFailed, op.Status)

	var rb *RollbackError
	require.ErrorAs(t, err, &rb)
	assert.Equal(t, "save_transaction", rb.Step, "names the forward step that started the rollback")
	assert.Equal(t, "post_entries", rb.CompensationStep, "names the undo that failed")
	assert.ErrorIs(t, rb.Compensation, errKVDown)

	found := false
	for _, ev := range r.sink.Events() {
		if ev.Action == "rollback_failed" {
			found = true
			assert.Equal(t, audit.SeverityCritical, ev.Severity)
		}
	}
	assert.True(t, found, "a failed rollback leaves a critical audit trail")
}

func TestTransferBetweenAccounts(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{NonNegativeBalances: true})
	r.seedIncome(t, "1000.00")

	saved, op, err := r.engine.TransferBetweenAccounts(ctx, TransferRequest{
		FromAccount: "1.1.02",
		ToAccount:   "1.1.03",
		Amount:      dec("300.00"),
		Description: "reserva do mês",
		Date:        testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OperationCompleted, op.Status)
	assert.Equal(t, model.TransactionTypeTransfer, saved.Type)

	assert.True(t, r.balance(t, "1.1.02").Equal(dec("700.00")))
	assert.True(t, r.balance(t, "1.1.03").Equal(dec("300.00")))

	trial, err := r.ledger.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	assert.True(t, trial.IsBalanced)
}

func TestTransferInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{NonNegativeBalances: true})
	r.seedIncome(t, "100.00")

	_, op, err := r.engine.TransferBetweenAccounts(ctx, TransferRequest{
		FromAccount: "1.1.02",
		ToAccount:   "1.1.03",
		Amount:      dec("300.00"),
		Description: "reserva",
		Date:        testNow,
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, model.OperationFailed, op.Status)
	assert.True(t, r.balance(t, "1.1.03").Equal(dec("0")))
}

func TestTransferSameAccount(t *testing.T) {
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "100.00")

	_, op, err := r.engine.TransferBetweenAccounts(context.Background(), TransferRequest{
		FromAccount: "1.1.02",
		ToAccount:   "1.1.02",
		Amount:      dec("50.00"),
		Description: "circular",
		Date:        testNow,
	})
	require.Error(t, err)
	assert.Equal(t, model.OperationFailed, op.Status)
}

func TestCheckSystemHealthy(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")
	_, _, err := r.engine.CreateTransaction(ctx, expense("150.00", "5.1.02"))
	require.NoError(t, err)

	check, err := r.engine.CheckSystem(ctx)
	require.NoError(t, err)
	assert.Equal(t, validation.StatusHealthy, check.Report.Status)
	assert.True(t, check.Trial.IsBalanced)
	assert.True(t, check.Integrity.IsValid)
	assert.Equal(t, 100, check.Report.Score)
	assert.Equal(t, 2, check.Report.CheckedTransactions)
}

func TestCheckSystemFlagsStaleCache(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, validation.ModeStrict, Options{})
	r.seedIncome(t, "1000.00")

	require.NoError(t, r.store.SetCachedBalance(ctx, "1.1.02", dec("123.45")))

	check, err := r.engine.CheckSystem(ctx)
	require.NoError(t, err)
	assert.Equal(t, validation.StatusCritical, check.Report.Status)

	found := false
	for _, issue := range check.Report.CriticalIssues {
		if issue.Code == validation.CodeBalanceInconsistency {
			found = true
			assert.True(t, issue.AutoFixAvailable)
		}
	}
	assert.True(t, found)
}
