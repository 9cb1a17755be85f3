package saga

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

func step(name string, trace *[]string, applyErr error) Step {
	return Step{
		Name: name,
		Apply: func(ctx context.Context) error {
			*trace = append(*trace, "apply:"+name)
			return applyErr
		},
		Compensate: func(ctx context.Context) error {
			*trace = append(*trace, "compensate:"+name)
			return nil
		},
	}
}

func TestExecutor_AllStepsApplyInOrder(t *testing.T) {
	exec := NewExecutor(logger.NewNop())
	var trace []string

	err := exec.Run(context.Background(), "happy", []Step{
		step("a", &trace, nil),
		step("b", &trace, nil),
		step("c", &trace, nil),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"apply:a", "apply:b", "apply:c"}, trace)
}

func TestExecutor_FailureCompensatesLIFO(t *testing.T) {
	exec := NewExecutor(logger.NewNop())
	var trace []string
	boom := errors.New("boom")

	err := exec.Run(context.Background(), "failing", []Step{
		step("a", &trace, nil),
		step("b", &trace, nil),
		step("c", &trace, boom),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{
		"apply:a", "apply:b", "apply:c",
		"compensate:b", "compensate:a",
	}, trace, "applied steps compensate in reverse order; the failed step does not")
}

func TestExecutor_FirstStepFailureCompensatesNothing(t *testing.T) {
	exec := NewExecutor(logger.NewNop())
	var trace []string

	err := exec.Run(context.Background(), "early", []Step{
		step("a", &trace, errors.New("boom")),
		step("b", &trace, nil),
	})

	require.Error(t, err)
	assert.Equal(t, []string{"apply:a"}, trace)
}

func TestExecutor_VerifyFailureTriggersRollback(t *testing.T) {
	exec := NewExecutor(logger.NewNop())
	var trace []string
	notConfirmed := errors.New("write not confirmed")

	steps := []Step{
		step("a", &trace, nil),
		{
			Name: "b",
			Apply: func(ctx context.Context) error {
				trace = append(trace, "apply:b")
				return nil
			},
			Verify: func(ctx context.Context) error {
				trace = append(trace, "verify:b")
				return notConfirmed
			},
			Compensate: func(ctx context.Context) error {
				trace = append(trace, "compensate:b")
				return nil
			},
		},
	}

	err := exec.Run(context.Background(), "verify", steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, notConfirmed)
	assert.Equal(t, []string{"apply:a", "apply:b", "verify:b", "compensate:a"}, trace,
		"a step whose verify fails is treated as never applied")
}

func TestExecutor_CompensationFailureReportsRollbackError(t *testing.T) {
	exec := NewExecutor(logger.NewNop())
	boom := errors.New("boom")

	steps := []Step{
		{
			Name:  "a",
			Apply: func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				return errors.New("backend gone")
			},
		},
		{
			Name:  "b",
			Apply: func(ctx context.Context) error { return boom },
		},
	}

	err := exec.Run(context.Background(), "broken-rollback", steps)
	require.Error(t, err)

	var rollbackErr *RollbackError
	require.ErrorAs(t, err, &rollbackErr)
	assert.Equal(t, "broken-rollback", rollbackErr.Saga)
	assert.Equal(t, "b", rollbackErr.Step)
	assert.ErrorIs(t, rollbackErr, boom, "unwraps to the causing error")
	assert.Len(t, rollbackErr.Failures, 1)
}

func TestExecutor_CancelledContextStillCompensates(t *testing.T) {
	exec := NewExecutor(logger.NewNop())
	var trace []string

	ctx, cancel := context.WithCancel(context.Background())

	steps := []Step{
		{
			Name: "a",
			Apply: func(ctx context.Context) error {
				trace = append(trace, "apply:a")
				return nil
			},
			Compensate: func(ctx context.Context) error {
				// Compensation must run even though the outer ctx is dead.
				require.NoError(t, ctx.Err())
				trace = append(trace, "compensate:a")
				return nil
			},
		},
		{
			Name: "b",
			Apply: func(ctx context.Context) error {
				cancel()
				return fmt.Errorf("interrupted")
			},
		},
	}

	err := exec.Run(ctx, "cancelled", steps)
	require.Error(t, err)
	assert.Equal(t, []string{"apply:a", "compensate:a"}, trace)
}

func TestExecutor_ContextCancelledBetweenSteps(t *testing.T) {
	exec := NewExecutor(logger.NewNop())
	var trace []string

	ctx, cancel := context.WithCancel(context.Background())

	steps := []Step{
		{
			Name: "a",
			Apply: func(ctx context.Context) error {
				trace = append(trace, "apply:a")
				cancel()
				return nil
			},
			Compensate: func(ctx context.Context) error {
				trace = append(trace, "compensate:a")
				return nil
			},
		},
		step("b", &trace, nil),
	}

	err := exec.Run(ctx, "deadline", steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"apply:a", "compensate:a"}, trace,
		"step b never applies once the context is dead")
}
