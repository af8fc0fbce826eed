package response

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/linker"
)

// Service defines the inbound reply use cases
type Service interface {
	// Receive stores a reply pushed by the mail provider and binds it to its request
	Receive(ctx context.Context, input ReceiveInput) (*entities.InboundMessage, error)

	// Process runs the automation for one stored reply
	Process(ctx context.Context, msgID uuid.UUID) (*Outcome, error)

	// ProcessPending handles up to limit unprocessed replies, oldest first
	ProcessPending(ctx context.Context, limit int) (BatchResult, error)
}

// Drafter queues the drafts a reply can lead to
type Drafter interface {
	QueueBooking(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, start time.Time, confidence entities.ConfidenceTier, reasoning string) (*entities.Draft, error)
	QueueAvailabilityCheck(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, times []time.Time, confidence entities.ConfidenceTier) (*entities.Draft, error)
	QueueResponse(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, question string, confidence entities.ConfidenceTier) (*entities.Draft, error)
}

// Escalator hands a request to a human
type Escalator interface {
	EscalateToHumanReview(ctx context.Context, req *entities.SchedulingRequest, reason string, details map[string]string) error
}

// Linker attaches CRM entities to a request from a reply
type Linker interface {
	Link(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (*linker.Score, error)
}

// OutOfOfficeHandler recognises auto-replies and pushes the SLA past the return date.
// It reports whether the message was an out-of-office reply.
type OutOfOfficeHandler interface {
	HandleOutOfOffice(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (bool, error)
}

// ReceiveInput is a reply as delivered by the provider
type ReceiveInput struct {
	UserID            uuid.UUID
	ProviderMessageID string
	ThreadID          string
	InReplyTo         string
	FromEmail         string
	FromName          string
	Participants      []string
	Subject           string
	Body              string
	ReceivedAt        time.Time
}

// Outcome describes what the automation did with a reply
type Outcome struct {
	MessageID uuid.UUID     `json:"message_id"`
	RequestID *uuid.UUID    `json:"request_id,omitempty"`
	Intent    string        `json:"intent,omitempty"`
	Result    OutcomeResult `json:"result"`
	Reason    string        `json:"reason,omitempty"`
	DraftID   *uuid.UUID    `json:"draft_id,omitempty"`
}

// OutcomeResult is the closed set of processing results
type OutcomeResult string

const (
	ResultDraftQueued OutcomeResult = "draft_queued"
	ResultEscalated   OutcomeResult = "escalated"
	ResultCancelled   OutcomeResult = "cancelled"
	ResultRecorded    OutcomeResult = "recorded"
	ResultOutOfOffice OutcomeResult = "out_of_office"
	ResultSkipped     OutcomeResult = "skipped"
)

// BatchResult summarises one ProcessPending run
type BatchResult struct {
	Processed int      `json:"processed"`
	Escalated int      `json:"escalated"`
	Drafted   int      `json:"drafted"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

var _ Service = (*ResponseService)(nil)
