package health

import (
	"context"
	"time"
)

// Overall statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Service defines the read-only health report
type Service interface {
	Check(ctx context.Context) (*Report, error)
}

// Report is a point-in-time view of the automation engine
type Report struct {
	Status    string      `json:"status"`
	CheckedAt time.Time   `json:"checked_at"`
	Jobs      []JobHealth `json:"jobs"`
	Drafts    DraftHealth `json:"drafts"`
	Requests  QueueHealth `json:"requests"`
	Issues    []string    `json:"issues,omitempty"`
}

// JobHealth summarises the recent runs of one job
type JobHealth struct {
	Name                string     `json:"name"`
	Enabled             bool       `json:"enabled"`
	LastRunAt           *time.Time `json:"last_run_at,omitempty"`
	LastSuccess         bool       `json:"last_success"`
	LastDurationMs      int64      `json:"last_duration_ms"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Stale               bool       `json:"stale"`
}

// DraftHealth counts drafts that need attention
type DraftHealth struct {
	Pending        int64 `json:"pending"`
	Failed         int64 `json:"failed"`
	StuckExecuting int64 `json:"stuck_executing"`
}

// QueueHealth counts requests waiting on a human or past their SLA
type QueueHealth struct {
	Paused  int64 `json:"paused"`
	Overdue int64 `json:"overdue"`
}

var _ Service = (*Checker)(nil)
