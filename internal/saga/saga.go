// Package saga runs manually-sequenced write protocols against a backend
// with no transactions: each step applies, verifies its own write landed,
// and knows how to put the old value back. One executor owns the rollback
// discipline so it cannot be forgotten at any individual failure branch.
package saga

import (
	"context"
	"fmt"

	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

// Step is one unit of a saga. Apply performs the write, Verify confirms it
// landed (a write that succeeds but does not read back is treated as a failed
// write), Compensate reverts it. Verify and Compensate may be nil for steps
// with nothing to check or nothing to undo.
type Step struct {
	Name       string
	Apply      func(ctx context.Context) error
	Verify     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// RollbackError reports a saga failure whose compensation itself failed
// partway; the backend is left in a state that needs operator attention.
type RollbackError struct {
	Saga     string
	Step     string
	Cause    error
	Failures []error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("saga %s: step %s failed and %d compensation(s) failed: %v",
		e.Saga, e.Step, len(e.Failures), e.Cause)
}

func (e *RollbackError) Unwrap() error {
	return e.Cause
}

// Executor runs sagas with compensation on failure.
type Executor struct {
	logger *logger.Logger
}

func NewExecutor(log *logger.Logger) *Executor {
	return &Executor{
		logger: log.WithComponent("saga"),
	}
}

// Run applies steps in order. When a step's Apply or Verify fails, every
// previously applied step is compensated in reverse order before the error
// is returned, so the backend ends up matching either the pre-saga snapshot
// or the fully applied result, never something in between.
func (e *Executor) Run(ctx context.Context, name string, steps []Step) error {
	var applied []Step

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return e.rollback(ctx, name, step.Name, err, applied)
		}

		e.logger.Debug("Applying saga step", "saga", name, "step", step.Name)

		if err := step.Apply(ctx); err != nil {
			e.logger.Warn("Saga step failed", "saga", name, "step", step.Name, "error", err)
			return e.rollback(ctx, name, step.Name, err, applied)
		}

		if step.Verify != nil {
			if err := step.Verify(ctx); err != nil {
				e.logger.Warn("Saga step verification failed", "saga", name, "step", step.Name, "error", err)
				return e.rollback(ctx, name, step.Name, err, applied)
			}
		}

		if step.Compensate != nil {
			applied = append(applied, step)
		}
	}

	e.logger.Info("Saga completed", "saga", name, "steps", len(steps))
	return nil
}

// rollback compensates applied steps LIFO and wraps the causing error.
// Compensation runs even when ctx is already cancelled: reverting applied
// writes matters more than honoring the deadline that broke the saga.
func (e *Executor) rollback(ctx context.Context, saga, failedStep string, cause error, applied []Step) error {
	if len(applied) > 0 {
		e.logger.Warn("Rolling back saga", "saga", saga, "failed_step", failedStep, "applied_steps", len(applied))
	}

	var failures []error
	for i := len(applied) - 1; i >= 0; i-- {
		step := applied[i]
		if err := step.Compensate(context.WithoutCancel(ctx)); err != nil {
			e.logger.Error("Compensation failed", "saga", saga, "step", step.Name, "error", err)
			failures = append(failures, fmt.Errorf("compensate %s: %v", step.Name, err))
			continue
		}
		e.logger.Info("Compensated saga step", "saga", saga, "step", step.Name)
	}

	if len(failures) > 0 {
		return &RollbackError{Saga: saga, Step: failedStep, Cause: cause, Failures: failures}
	}
	return fmt.Errorf("saga %s: step %s: %w", saga, failedStep, cause)
}
