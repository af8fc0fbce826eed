package sla

import (
	"context"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
)

// Service defines the response-window monitor
type Service interface {
	// Sweep checks up to limit awaiting requests against their due dates
	Sweep(ctx context.Context, limit int) (SweepResult, error)

	// HandleOutOfOffice moves the due date past the return date of an auto-reply
	HandleOutOfOffice(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (bool, error)
}

// FollowUpDrafter queues follow-up emails
type FollowUpDrafter interface {
	QueueFollowUp(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error)
}

// Escalator hands a request to a human
type Escalator interface {
	EscalateToHumanReview(ctx context.Context, req *entities.SchedulingRequest, reason string, details map[string]string) error
}

// SweepResult summarises one monitor run
type SweepResult struct {
	Checked   int      `json:"checked"`
	Warned    int      `json:"warned"`
	Overdue   int      `json:"overdue"`
	Escalated int      `json:"escalated"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

var (
	_ Service                  = (*Monitor)(nil)
	_ scheduling.DueCalculator = (*Calculator)(nil)
)
