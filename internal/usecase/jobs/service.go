package jobs

import (
	"context"
	"time"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// Job names
const (
	ProcessResponses = "process-responses"
	SendFollowUps    = "send-follow-ups"
	SendReminders    = "send-reminders"
	CheckNoShows     = "check-no-shows"
	ExecuteDrafts    = "execute-drafts"
	ExpireDrafts     = "expire-drafts"
)

// Trigger sources recorded on a JobRun
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Service defines the job registry operations exposed to the API
type Service interface {
	// Trigger runs a job now, outside its schedule
	Trigger(ctx context.Context, name string) (*entities.JobRun, error)

	// Status lists every registered job with its recent runs
	Status(ctx context.Context) ([]JobStatus, error)
}

// Func does one bounded unit of work. It reports per-run counters in Result;
// an error fails the run.
type Func func(ctx context.Context, batchSize int) (Result, error)

// Definition registers a job with its schedule
type Definition struct {
	Name     string
	Schedule config.JobSchedule
	Run      Func
}

// Result is what one run produced
type Result struct {
	Success  bool             `json:"success"`
	Duration time.Duration    `json:"duration"`
	Metrics  map[string]int64 `json:"metrics,omitempty"`
	Errors   []string         `json:"errors,omitempty"`
	TimedOut bool             `json:"timed_out"`
}

// JobStatus is a registered job and its latest run
type JobStatus struct {
	Name           string           `json:"name"`
	Enabled        bool             `json:"enabled"`
	Interval       string           `json:"interval"`
	Timeout        string           `json:"timeout"`
	BatchSize      int              `json:"batch_size"`
	AlertOnFailure bool             `json:"alert_on_failure"`
	Running        bool             `json:"running"`
	LastRun        *entities.JobRun `json:"last_run,omitempty"`
}

var _ Service = (*Runner)(nil)
