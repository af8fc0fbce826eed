package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/jobs"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

const (
	// runs inspected when counting consecutive failures
	failureWindow = 10
	// an alerting job failing this many times in a row makes the engine unhealthy
	unhealthyFailures = 3
	// a job is stale when its last run is older than this many intervals
	staleIntervals = 3
)

// JobLister reports the registered jobs
type JobLister interface {
	Status(ctx context.Context) ([]jobs.JobStatus, error)
}

// Checker builds the health report from stored state only
type Checker struct {
	requests repositories.SchedulingRequestRepository
	drafts   repositories.DraftRepository
	runs     repositories.JobRunRepository
	jobs     JobLister
	rules    config.DraftRules
	logger   *zap.Logger
	now      func() time.Time
}

// NewChecker creates a health checker
func NewChecker(
	requests repositories.SchedulingRequestRepository,
	drafts repositories.DraftRepository,
	runs repositories.JobRunRepository,
	jobLister JobLister,
	rules config.DraftRules,
	logger *zap.Logger,
) *Checker {
	return &Checker{
		requests: requests,
		drafts:   drafts,
		runs:     runs,
		jobs:     jobLister,
		rules:    rules,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Check builds the report. Overall status is unhealthy when drafts are stuck
// mid-execution or an alerting job keeps failing, degraded on any other
// failure signal.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	now := c.now()
	report := &Report{Status: StatusHealthy, CheckedAt: now}
	unhealthy, degraded := false, false

	statuses, err := c.jobs.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	for _, st := range statuses {
		jh, err := c.jobHealth(ctx, st, now)
		if err != nil {
			return nil, err
		}
		report.Jobs = append(report.Jobs, jh)

		switch {
		case st.AlertOnFailure && jh.ConsecutiveFailures >= unhealthyFailures:
			unhealthy = true
			report.Issues = append(report.Issues, fmt.Sprintf("job %s failed %d times in a row", jh.Name, jh.ConsecutiveFailures))
		case jh.ConsecutiveFailures > 0:
			degraded = true
			report.Issues = append(report.Issues, fmt.Sprintf("job %s is failing", jh.Name))
		}
		if jh.Stale {
			degraded = true
			report.Issues = append(report.Issues, fmt.Sprintf("job %s has not run recently", jh.Name))
		}
	}

	if report.Drafts.Pending, err = c.drafts.CountByStatus(ctx, entities.DraftStatusPending); err != nil {
		return nil, fmt.Errorf("failed to count pending drafts: %w", err)
	}
	if report.Drafts.Failed, err = c.drafts.CountByStatus(ctx, entities.DraftStatusFailed); err != nil {
		return nil, fmt.Errorf("failed to count failed drafts: %w", err)
	}
	cutoff := now.Add(-time.Duration(c.rules.StuckExecutingMinutes) * time.Minute)
	if report.Drafts.StuckExecuting, err = c.drafts.CountStuckExecuting(ctx, cutoff); err != nil {
		return nil, fmt.Errorf("failed to count stuck drafts: %w", err)
	}
	if report.Requests.Paused, err = c.requests.CountByStatus(ctx, entities.StatusPaused); err != nil {
		return nil, fmt.Errorf("failed to count paused requests: %w", err)
	}
	if report.Requests.Overdue, err = c.requests.CountBySLAStatus(ctx, entities.SLAStatusOverdue); err != nil {
		return nil, fmt.Errorf("failed to count overdue requests: %w", err)
	}

	if report.Drafts.StuckExecuting > 0 {
		unhealthy = true
		report.Issues = append(report.Issues, fmt.Sprintf("%d drafts stuck executing", report.Drafts.StuckExecuting))
	}
	if report.Drafts.Failed > 0 {
		degraded = true
		report.Issues = append(report.Issues, fmt.Sprintf("%d drafts failed and need re-approval", report.Drafts.Failed))
	}

	switch {
	case unhealthy:
		report.Status = StatusUnhealthy
	case degraded:
		report.Status = StatusDegraded
	}
	if report.Status != StatusHealthy {
		c.logger.Warn("🩺 Health check not healthy", zap.String("status", report.Status), zap.Strings("issues", report.Issues))
	}
	return report, nil
}

func (c *Checker) jobHealth(ctx context.Context, st jobs.JobStatus, now time.Time) (JobHealth, error) {
	jh := JobHealth{Name: st.Name, Enabled: st.Enabled}
	recent, err := c.runs.ListRecent(ctx, st.Name, failureWindow)
	if err != nil {
		return jh, fmt.Errorf("failed to list runs of %s: %w", st.Name, err)
	}
	if len(recent) == 0 {
		return jh, nil
	}

	last := recent[0]
	started := last.StartedAt
	jh.LastRunAt = &started
	jh.LastSuccess = last.Success
	jh.LastDurationMs = last.DurationMs
	for _, run := range recent {
		if run.Success {
			break
		}
		jh.ConsecutiveFailures++
	}

	if interval, err := time.ParseDuration(st.Interval); err == nil && st.Enabled && interval > 0 {
		jh.Stale = now.Sub(last.StartedAt) > staleIntervals*interval
	}
	return jh, nil
}
