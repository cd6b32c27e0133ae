package txengine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/audit"
	"github.com/caixa-dev/caixa/internal/model"
)

// step is one forward action of a multi-step operation, paired with the
// compensation that undoes it. A nil compensate means the step mutated
// nothing.
type step struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// runSteps executes forward actions in order; on the first failure the
// compensations of completed steps run in reverse order. A compensation
// failure is escalated as a CRITICAL audit event and returned as a
// RollbackError, because the system may now need manual reconciliation.
func (e *Engine) runSteps(ctx context.Context, op *model.Operation, steps []step) error {
	op.Status = model.OperationProcessing

	var done []step
	for _, s := range steps {
		err := s.run(ctx)
		if err == nil && e.hookAfter != nil {
			err = e.hookAfter(s.name)
		}
		if err == nil {
			done = append(done, s)
			continue
		}

		e.log.Warn("operation step failed, compensating",
			zap.String("operation_id", op.ID),
			zap.String("step", s.name),
			zap.Error(err),
		)

		for i := len(done) - 1; i >= 0; i-- {
			c := done[i]
			if c.compensate == nil {
				continue
			}
			if cerr := c.compensate(ctx); cerr != nil {
				op.Status = model.OperationFailed
				op.Error = fmt.Sprintf("step %s: %v; compensation %s: %v", s.name, err, c.name, cerr)
				rb := &RollbackError{Step: s.name, CompensationStep: c.name, Original: err, Compensation: cerr}
				e.auditor.Record(ctx, audit.Event{
					Action:      "rollback_failed",
					UserID:      e.ident.CurrentUserID(),
					OperationID: op.ID,
					Details:     rb.Error(),
					Severity:    audit.SeverityCritical,
				})
				return rb
			}
		}

		if len(done) > 0 {
			op.Status = model.OperationRolledBack
		} else {
			op.Status = model.OperationFailed
		}
		op.Error = err.Error()
		return err
	}

	op.Status = model.OperationCompleted
	return nil
}
