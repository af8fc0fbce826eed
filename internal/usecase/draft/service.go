package draft

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
)

// Service defines the interface for the draft approval queue
type Service interface {
	// Create stores a pending draft. An existing idempotency key returns the existing draft.
	Create(ctx context.Context, input CreateInput) (*entities.Draft, error)

	// Get retrieves a draft by ID
	Get(ctx context.Context, id uuid.UUID) (*entities.Draft, error)

	// List retrieves drafts in a status
	List(ctx context.Context, status entities.DraftStatus, limit int) ([]*entities.Draft, error)

	// ListByRequest retrieves the drafts of one request
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entities.Draft, error)

	// Approve moves a pending draft to approved with an optional edit overlay
	Approve(ctx context.Context, id uuid.UUID, approvedBy string, edits *entities.DraftEdits) (*entities.Draft, error)

	// Reject closes a pending draft
	Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string) (*entities.Draft, error)

	// Reapprove returns a failed draft to approved while retries remain
	Reapprove(ctx context.Context, id uuid.UUID, approvedBy string) (*entities.Draft, error)

	// Execute claims an approved draft and performs it
	Execute(ctx context.Context, id uuid.UUID) (*entities.Draft, error)

	// ExecuteApproved executes a batch of approved drafts
	ExecuteApproved(ctx context.Context, limit int) (BatchResult, error)

	// ExpireStale marks pending drafts past their expiry as expired
	ExpireStale(ctx context.Context, limit int) (int, error)

	// Queue helpers build a rendered draft for a request
	QueueProposal(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error)
	QueueFollowUp(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error)
	QueueReminder(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error)
	QueueResponse(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, question string, confidence entities.ConfidenceTier) (*entities.Draft, error)
	QueueAvailabilityCheck(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, times []time.Time, confidence entities.ConfidenceTier) (*entities.Draft, error)
	QueueBooking(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, start time.Time, confidence entities.ConfidenceTier, reasoning string) (*entities.Draft, error)
}

// BatchResult summarises one ExecuteApproved pass
type BatchResult struct {
	Executed int
	Failed   int
	Skipped  int
	Errors   []string
}

// Ensure DraftService implements Service and can queue proposals for the scheduler
var (
	_ Service                    = (*DraftService)(nil)
	_ scheduling.ProposalDrafter = (*DraftService)(nil)
)
