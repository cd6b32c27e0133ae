package txengine

import (
	"errors"
	"fmt"

	"github.com/caixa-dev/caixa/internal/validation"
)

var (
	// ErrInsufficientFunds means the source account cannot cover the
	// amount under the non-negative balance policy.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrRollbackFailed marks the one failure mode needing manual
	// reconciliation: a compensation step itself failed.
	ErrRollbackFailed = errors.New("rollback failed")
)

// ValidationError reports blocking validation findings to the caller.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	if len(e.Result.Errors) == 0 {
		return "validation failed"
	}
	first := e.Result.Errors[0]
	return fmt.Sprintf("validation failed (%d errors): %s: %s", len(e.Result.Errors), first.Code, first.Message)
}

// RollbackError carries both the original failure and the compensation
// failure, since the operator needs both to reconcile manually. Step is
// the forward step whose failure started the rollback; CompensationStep
// is the undo that then failed.
type RollbackError struct {
	Step             string
	CompensationStep string
	Original         error
	Compensation     error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback of step %s failed at compensation %s: original error: %v; compensation error: %v",
		e.Step, e.CompensationStep, e.Original, e.Compensation)
}

// Is matches ErrRollbackFailed.
func (e *RollbackError) Is(target error) bool {
	return target == ErrRollbackFailed
}

// Unwrap exposes the original failure.
func (e *RollbackError) Unwrap() error {
	return e.Original
}
