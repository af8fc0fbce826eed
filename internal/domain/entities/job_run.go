package entities

import (
	"time"

	"github.com/google/uuid"
)

// JobRun records one execution of a scheduled job
type JobRun struct {
	ID         uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobName    string           `json:"job_name" gorm:"type:varchar(50);not null;index:idx_job_run_name_started,priority:1"`
	StartedAt  time.Time        `json:"started_at" gorm:"not null;index:idx_job_run_name_started,priority:2"`
	DurationMs int64            `json:"duration_ms"`
	Success    bool             `json:"success"`
	TimedOut   bool             `json:"timed_out"`
	Metrics    map[string]int64 `json:"metrics,omitempty" gorm:"type:jsonb;serializer:json"`
	Errors     []string         `json:"errors,omitempty" gorm:"type:jsonb;serializer:json"`
	Trigger    string           `json:"trigger" gorm:"type:varchar(20);default:'schedule'"`
}

// TableName specifies the table name for GORM
func (JobRun) TableName() string {
	return "job_runs"
}
