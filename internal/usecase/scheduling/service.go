package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// Service defines the interface for the scheduling request lifecycle
type Service interface {
	// Create validates and stores a new request in the initiated state
	Create(ctx context.Context, input CreateRequestInput) (*entities.SchedulingRequest, error)

	// Get retrieves a request by ID
	Get(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error)

	// List retrieves requests with filters
	List(ctx context.Context, filters repositories.RequestFilters) ([]*entities.SchedulingRequest, error)

	// Transition moves a request through the state machine
	Transition(ctx context.Context, id uuid.UUID, to entities.RequestStatus, input TransitionInput) (*entities.SchedulingRequest, error)

	// Cancel moves a request to the terminal cancelled state
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*entities.SchedulingRequest, error)

	// Pause hands a request to a human
	Pause(ctx context.Context, id uuid.UUID, reason string) (*entities.SchedulingRequest, error)

	// Resume returns a paused request to the status it held before pausing
	Resume(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error)

	// ReportNoShow records that the external party did not attend
	ReportNoShow(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error)

	// RecoverNoShow restarts negotiation after a no-show with a new proposal draft
	RecoverNoShow(ctx context.Context, id uuid.UUID, times []time.Time) (*entities.SchedulingRequest, *entities.Draft, error)

	// SettleMeeting completes a finished meeting, or marks it no_show when one was reported
	SettleMeeting(ctx context.Context, req *entities.SchedulingRequest) error

	// ListActions returns the audit trail in causal order
	ListActions(ctx context.Context, id uuid.UUID) ([]*entities.SchedulingAction, error)

	// QueueInitialProposal creates the first proposal draft and moves the request to proposing
	QueueInitialProposal(ctx context.Context, id uuid.UUID, times []time.Time) (*entities.SchedulingRequest, *entities.Draft, error)
}

// ProposalDrafter queues an email_proposal draft offering req.ProposedTimes
type ProposalDrafter interface {
	QueueProposal(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error)
}

// Pauser escalates a request to human review
type Pauser interface {
	Pause(ctx context.Context, req *entities.SchedulingRequest, reason string) error
}

// Ensure SchedulingService implements Service interface
var _ Service = (*SchedulingService)(nil)
