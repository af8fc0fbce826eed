package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/pkg/distlock"
	"github.com/johnquangdev/meeting-scheduler/pkg/jobcontext"
)

const (
	lockPrefix  = "scheduler:job:"
	runAttempts = 2
)

// Runner owns the job registry and runs every job on its own ticker
type Runner struct {
	mu      sync.Mutex
	defs    map[string]Definition
	running map[string]bool

	locker distlock.Locker
	runs   repositories.JobRunRepository
	logger *zap.Logger
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates an empty job registry
func NewRunner(locker distlock.Locker, runs repositories.JobRunRepository, logger *zap.Logger) *Runner {
	return &Runner{
		defs:    make(map[string]Definition),
		running: make(map[string]bool),
		locker:  locker,
		runs:    runs,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register adds a job. Registering a name twice replaces the earlier definition.
func (r *Runner) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
}

// Start launches one ticker goroutine per enabled job
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	r.mu.Lock()
	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	r.mu.Unlock()

	for _, def := range defs {
		if !def.Schedule.Enabled || def.Schedule.Interval <= 0 {
			r.logger.Info("⏸️ Job disabled", zap.String("job", def.Name))
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, def)
	}
}

// Stop cancels the tickers and waits for in-flight runs to finish
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, def Definition) {
	defer r.wg.Done()
	r.logger.Info("🔄 Job scheduled", zap.String("job", def.Name), zap.Duration("interval", def.Schedule.Interval))

	ticker := time.NewTicker(def.Schedule.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := r.execute(ctx, def, TriggerSchedule); err != nil && !errors.Is(err, usecaseErrors.ErrJobAlreadyRunning) {
				r.logger.Error("❌ Job run not recorded", zap.String("job", def.Name), zap.Error(err))
			}
		case <-ctx.Done():
			r.logger.Info("🛑 Job stopped", zap.String("job", def.Name))
			return
		}
	}
}

// Trigger runs a job immediately
func (r *Runner) Trigger(ctx context.Context, name string) (*entities.JobRun, error) {
	r.mu.Lock()
	def, ok := r.defs[name]
	r.mu.Unlock()
	if !ok {
		return nil, usecaseErrors.ErrJobNotFound
	}
	return r.execute(ctx, def, TriggerManual)
}

// Status lists registered jobs with their latest run, sorted by name
func (r *Runner) Status(ctx context.Context) ([]JobStatus, error) {
	r.mu.Lock()
	out := make([]JobStatus, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, JobStatus{
			Name:           def.Name,
			Enabled:        def.Schedule.Enabled,
			Interval:       def.Schedule.Interval.String(),
			Timeout:        def.Schedule.Timeout.String(),
			BatchSize:      def.Schedule.BatchSize,
			AlertOnFailure: def.Schedule.AlertOnFailure,
			Running:        r.running[def.Name],
		})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		recent, err := r.runs.ListRecent(ctx, out[i].Name, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to list job runs: %w", err)
		}
		if len(recent) > 0 {
			out[i].LastRun = recent[0]
		}
	}
	return out, nil
}

// execute runs def once under the per-job lock and records the run. A run
// that finds the job already running is skipped and not recorded.
func (r *Runner) execute(parent context.Context, def Definition, trigger string) (*entities.JobRun, error) {
	lock, ok, err := r.locker.TryAcquire(parent, lockPrefix+def.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", usecaseErrors.ErrLockUnavailable, err)
	}
	if !ok {
		r.logger.Info("⏭️ Job already running, skipping", zap.String("job", def.Name), zap.String("trigger", trigger))
		return nil, usecaseErrors.ErrJobAlreadyRunning
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			r.logger.Warn("⚠️ Failed to release job lock", zap.String("job", def.Name), zap.Error(err))
		}
	}()

	r.setRunning(def.Name, true)
	defer r.setRunning(def.Name, false)

	run := &entities.JobRun{
		ID:        uuid.New(),
		JobName:   def.Name,
		StartedAt: r.now(),
		Trigger:   trigger,
	}
	res := r.run(parent, run.ID, def, trigger)

	run.DurationMs = res.Duration.Milliseconds()
	run.Success = res.Success
	run.TimedOut = res.TimedOut
	run.Metrics = res.Metrics
	run.Errors = res.Errors
	if err := r.runs.Create(context.Background(), run); err != nil {
		return run, fmt.Errorf("failed to record job run: %w", err)
	}

	fields := []zap.Field{
		zap.String("job", def.Name),
		zap.String("run_id", run.ID.String()),
		zap.String("trigger", trigger),
		zap.Int64("duration_ms", run.DurationMs),
		zap.Any("metrics", run.Metrics),
	}
	switch {
	case run.Success:
		r.logger.Info("✅ Job finished", fields...)
	case def.Schedule.AlertOnFailure:
		r.logger.Error("🚨 Job failed", append(fields, zap.Bool("alert", true), zap.Bool("timed_out", run.TimedOut), zap.Strings("errors", run.Errors))...)
	default:
		r.logger.Warn("⚠️ Job failed", append(fields, zap.Bool("timed_out", run.TimedOut), zap.Strings("errors", run.Errors))...)
	}
	return run, nil
}

// run calls the job inside its wall-clock budget. Panics become failed runs;
// transient store errors get one more attempt.
func (r *Runner) run(parent context.Context, runID uuid.UUID, def Definition, trigger string) Result {
	started := time.Now()
	ctx, cancel := jobcontext.Begin(parent, jobcontext.Run{
		ID:          runID,
		Job:         def.Name,
		Trigger:     trigger,
		StartedAt:   started,
		MaxAttempts: runAttempts,
	}, def.Schedule.Timeout)
	defer cancel()

	var res Result
	err := jobcontext.Execute(ctx, func(ctx context.Context) error {
		var err error
		res, err = def.Run(ctx, def.Schedule.BatchSize)
		return err
	})

	res.Duration = time.Since(started)
	res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	res.Success = err == nil && len(res.Errors) == 0 && !res.TimedOut
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	return res
}

func (r *Runner) setRunning(name string, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[name] = running
}
