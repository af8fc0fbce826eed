package jobcontext

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func begin(t *testing.T, attempts int) context.Context {
	t.Helper()
	ctx, cancel := Begin(context.Background(), Run{ID: uuid.New(), Job: "expire-drafts", Trigger: "schedule", MaxAttempts: attempts}, time.Minute)
	t.Cleanup(cancel)
	return ctx
}

func TestBeginAttachesRun(t *testing.T) {
	ctx := begin(t, 2)

	run, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "expire-drafts", run.Job)
	assert.Equal(t, 2, run.MaxAttempts)
	assert.False(t, run.StartedAt.IsZero())
	assert.Len(t, Fields(ctx), 3)
	assert.Empty(t, Fields(context.Background()))

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestExecuteRecoversPanic(t *testing.T) {
	ctx := begin(t, 3)

	calls := 0
	err := Execute(ctx, func(context.Context) error {
		calls++
		panic("nil map")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	ctx := begin(t, 2)

	calls := 0
	err := Execute(ctx, func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("read tcp: connection reset by peer")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteStopsOnOtherErrors(t *testing.T) {
	ctx := begin(t, 3)

	calls := 0
	err := Execute(ctx, func(context.Context) error {
		calls++
		return errors.New("draft is not approved")
	})
	require.EqualError(t, err, "draft is not approved")
	assert.Equal(t, 1, calls)
}

func TestExecuteGivesUpAfterMaxAttempts(t *testing.T) {
	ctx := begin(t, 2)

	calls := 0
	err := Execute(ctx, func(context.Context) error {
		calls++
		return errors.New("ERROR: could not serialize access (SQLSTATE 40001)")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("failed to claim drafts: %w", errors.New("deadlock detected"))))
	assert.False(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(fmt.Errorf("%w: boom", ErrPanic)))
	assert.False(t, IsTransient(nil))
}
