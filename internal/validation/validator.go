package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/model"
)

// Finding codes.
const (
	CodeRequiredField      = "REQUIRED_FIELD"
	CodeInvalidType        = "INVALID_TYPE"
	CodeAmountNotPositive  = "AMOUNT_NOT_POSITIVE"
	CodeAmountImplausible  = "AMOUNT_IMPLAUSIBLE"
	CodeDateTooFarFuture   = "DATE_TOO_FAR_FUTURE"
	CodeDateTooFarPast     = "DATE_TOO_FAR_PAST"
	CodeUnknownAccount     = "UNKNOWN_ACCOUNT"
	CodeAccountNotPostable = "ACCOUNT_NOT_POSTABLE"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeUnsupportedEntity  = "UNSUPPORTED_ENTITY"
)

// maxPlausibleAmount triggers an implausibly-large-amount warning.
var maxPlausibleAmount = decimal.NewFromInt(1_000_000)

// LedgerReader supplies recomputed account balances for balance-impact
// checks.
type LedgerReader interface {
	AccountBalance(ctx context.Context, code string, asOf time.Time) (model.AccountBalance, error)
}

// Validator checks entities and system state. The mode decides whether
// business-rule violations (like a balance going negative) block or warn.
type Validator struct {
	accounts *coa.Service
	ledger   LedgerReader
	mode     Mode
	log      *zap.Logger
	now      func() time.Time
}

// New creates a Validator.
func New(accounts *coa.Service, ledger LedgerReader, mode Mode, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{
		accounts: accounts,
		ledger:   ledger,
		mode:     mode,
		log:      log,
		now:      time.Now,
	}
}

// SetClock overrides the validator's clock. Intended for tests.
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// Mode returns the configured validation mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// ValidateEntity validates one proposed record. The switch is exhaustive
// over the closed entity set; anything else is rejected, never silently
// passed through.
func (v *Validator) ValidateEntity(ctx context.Context, entity model.Entity) Result {
	var res Result
	switch e := entity.(type) {
	case model.Account:
		v.validateAccount(e, &res)
	case model.Transaction:
		v.validateTransaction(ctx, e, true, decimal.Zero, &res)
	case model.Goal:
		v.validateGoal(e, &res)
	case model.Investment:
		v.validateInvestment(e, &res)
	default:
		res.Errors = append(res.Errors, Error{
			Code:     CodeUnsupportedEntity,
			Message:  fmt.Sprintf("no validation rules for entity kind %q", entity.Kind()),
			Severity: SeverityCritical,
		})
	}
	res.Score = computeScore(res.Errors, res.Warnings)
	return res
}

// ValidateUpdate validates a replacement for an existing transaction.
// An update reverses the original batch before posting the new one, so
// the original's effect on the paying account is netted out of the
// balance-impact check; validating the replacement against the raw
// current balance would double-count the entries about to be reversed.
func (v *Validator) ValidateUpdate(ctx context.Context, merged, original model.Transaction) Result {
	var res Result
	v.validateTransaction(ctx, merged, true, reversalEffect(original, merged.AccountCode), &res)
	res.Score = computeScore(res.Errors, res.Warnings)
	return res
}

// reversalEffect is the change reversing a transaction's batch has on
// the balance of the given debit-normal account.
func reversalEffect(t model.Transaction, code string) decimal.Decimal {
	switch t.Type {
	case model.TransactionTypeExpense:
		if t.AccountCode == code {
			return t.Amount
		}
	case model.TransactionTypeIncome:
		if t.AccountCode == code {
			return t.Amount.Neg()
		}
	case model.TransactionTypeTransfer:
		// Transfers credit the source and debit the destination, which
		// rides in Category.
		if t.AccountCode == code {
			return t.Amount
		}
		if t.Category == code {
			return t.Amount.Neg()
		}
	}
	return decimal.Zero
}

func (v *Validator) validateAccount(a model.Account, res *Result) {
	if a.Code == "" {
		res.addError(CodeRequiredField, "code", "account code is required", SeverityHigh)
	}
	if a.Name == "" {
		res.addError(CodeRequiredField, "name", "account name is required", SeverityMedium)
	}
	if !a.Type.Valid() {
		res.addError(CodeInvalidType, "type", fmt.Sprintf("unknown account type %q", a.Type), SeverityHigh)
	} else if a.AcceptsEntries && a.NormalBalance != "" && a.NormalBalance != model.NormalBalanceFor(a.Type) {
		res.addError(CodeInvalidType, "normal_balance",
			fmt.Sprintf("normal balance %s conflicts with type %s", a.NormalBalance, a.Type), SeverityHigh)
	}
}

func (v *Validator) validateTransaction(ctx context.Context, t model.Transaction, balanceImpact bool, restored decimal.Decimal, res *Result) {
	if t.Description == "" {
		res.addError(CodeRequiredField, "description", "description is required", SeverityMedium)
	}
	if t.AccountCode == "" {
		res.addError(CodeRequiredField, "account_code", "account is required", SeverityHigh)
	}
	if !t.Type.Valid() {
		res.addError(CodeInvalidType, "type", fmt.Sprintf("unknown transaction type %q", t.Type), SeverityHigh)
	}
	if t.Date.IsZero() {
		res.addError(CodeRequiredField, "date", "date is required", SeverityMedium)
	}

	if !t.Amount.IsPositive() {
		res.addError(CodeAmountNotPositive, "amount",
			fmt.Sprintf("amount must be positive, got %s", t.Amount), SeverityHigh)
	} else if t.Amount.GreaterThan(maxPlausibleAmount) {
		res.addWarning(CodeAmountImplausible, "amount",
			fmt.Sprintf("amount %s is implausibly large", t.Amount.StringFixed(2)), ImpactHigh)
	}

	if !t.Date.IsZero() {
		now := v.now()
		if t.Date.After(now.AddDate(1, 0, 0)) {
			res.addError(CodeDateTooFarFuture, "date",
				fmt.Sprintf("date %s is more than a year ahead", t.Date.Format("2006-01-02")), SeverityMedium)
		} else if t.Date.Before(now.AddDate(-1, 0, 0)) {
			res.addWarning(CodeDateTooFarPast, "date",
				fmt.Sprintf("date %s is more than a year back", t.Date.Format("2006-01-02")), ImpactMedium)
		}
	}

	var acct model.Account
	if t.AccountCode != "" {
		var ok bool
		acct, ok = v.accounts.Get(t.AccountCode)
		if !ok {
			res.addError(CodeUnknownAccount, "account_code",
				fmt.Sprintf("account %s not in chart", t.AccountCode), SeverityHigh)
			return
		}
		if !acct.AcceptsEntries {
			res.addError(CodeAccountNotPostable, "account_code",
				fmt.Sprintf("account %s is an aggregate", t.AccountCode), SeverityHigh)
			return
		}
	}

	// Balance impact: an expense may not drive the account negative,
	// except on credit-type (liability) accounts, which carry balances
	// owed. Strict mode blocks; lenient mode warns. Only runs once the
	// account code resolved to a real posting account.
	if balanceImpact && t.AccountCode != "" && t.Type == model.TransactionTypeExpense && t.Amount.IsPositive() && v.ledger != nil {
		bal, err := v.ledger.AccountBalance(ctx, t.AccountCode, time.Time{})
		if err != nil {
			v.log.Warn("balance-impact check skipped", zap.String("account", t.AccountCode), zap.Error(err))
			return
		}
		after := bal.Balance.Add(restored).Sub(t.Amount)
		if after.IsNegative() && acct.Type != model.AccountTypeLiability {
			msg := fmt.Sprintf("balance of %s would go negative (%s)", t.AccountCode, after.StringFixed(2))
			if v.mode == ModeStrict {
				res.addError(CodeInsufficientFunds, "amount", msg, SeverityHigh)
			} else {
				res.addWarning(CodeInsufficientFunds, "amount", msg, ImpactHigh)
			}
		}
	}
}

func (v *Validator) validateGoal(g model.Goal, res *Result) {
	if g.Name == "" {
		res.addError(CodeRequiredField, "name", "goal name is required", SeverityMedium)
	}
	if !g.TargetAmount.IsPositive() {
		res.addError(CodeAmountNotPositive, "target_amount",
			fmt.Sprintf("target must be positive, got %s", g.TargetAmount), SeverityHigh)
	}
	if g.CurrentAmount.IsNegative() {
		res.addError(CodeAmountNotPositive, "current_amount", "current amount cannot be negative", SeverityHigh)
	}
	if !g.Deadline.IsZero() && g.Deadline.Before(v.now()) {
		res.addWarning(CodeDateTooFarPast, "deadline", "goal deadline already passed", ImpactLow)
	}
}

func (v *Validator) validateInvestment(inv model.Investment, res *Result) {
	if inv.Name == "" {
		res.addError(CodeRequiredField, "name", "investment name is required", SeverityMedium)
	}
	if !inv.Amount.IsPositive() {
		res.addError(CodeAmountNotPositive, "amount",
			fmt.Sprintf("amount must be positive, got %s", inv.Amount), SeverityHigh)
	}
	if inv.AccountCode != "" && !v.accounts.Exists(inv.AccountCode) {
		res.addError(CodeUnknownAccount, "account_code",
			fmt.Sprintf("account %s not in chart", inv.AccountCode), SeverityHigh)
	}
}

func (r *Result) addError(code, field, msg string, sev Severity) {
	r.Errors = append(r.Errors, Error{Code: code, Field: field, Message: msg, Severity: sev})
}

func (r *Result) addWarning(code, field, msg string, impact Impact) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Field: field, Message: msg, Impact: impact})
}
