package jobcontext

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey struct{}

// ErrPanic marks a job function that panicked; it is never retried
var ErrPanic = errors.New("panic recovered")

const defaultTimeout = 5 * time.Minute

// Run describes one execution of a scheduled job
type Run struct {
	ID          uuid.UUID
	Job         string
	Trigger     string
	StartedAt   time.Time
	MaxAttempts int
}

// Begin attaches run metadata to ctx and bounds it by timeout. A zero timeout
// falls back to 5 minutes.
func Begin(parent context.Context, run Run, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if run.MaxAttempts < 1 {
		run.MaxAttempts = 1
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	return context.WithValue(ctx, ctxKey{}, run), cancel
}

// FromContext returns the run ctx belongs to
func FromContext(ctx context.Context) (Run, bool) {
	run, ok := ctx.Value(ctxKey{}).(Run)
	return run, ok
}

// Fields returns log fields identifying the run, empty outside a job
func Fields(ctx context.Context) []zap.Field {
	run, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return []zap.Field{
		zap.String("job", run.Job),
		zap.String("run_id", run.ID.String()),
		zap.String("trigger", run.Trigger),
	}
}

// Execute calls fn with panic recovery. Transient failures are retried with
// exponential backoff up to the run's MaxAttempts while ctx is alive.
func Execute(ctx context.Context, fn func(context.Context) error) error {
	attempts := 1
	if run, ok := FromContext(ctx); ok {
		attempts = run.MaxAttempts
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)

	tries := 0
	err := backoff.Retry(func() error {
		tries++
		err := call(ctx, fn)
		if err == nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err != nil && tries > 1 {
		return fmt.Errorf("job failed after %d attempts: %w", tries, err)
	}
	return err
}

func call(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	if ctx.Err() != nil {
		return fmt.Errorf("context done before job execution: %w", ctx.Err())
	}
	return fn(ctx)
}

// transientMarkers are driver messages for failures that clear on their own:
// dropped connections and Postgres serialization_failure/deadlock_detected.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"40001",
	"40p01",
	"deadlock",
}

// IsTransient reports whether err is worth retrying inside the same run.
// Context expiry and panics never are.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrPanic) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
