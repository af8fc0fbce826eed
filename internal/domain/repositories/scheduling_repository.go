package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// SchedulingRequestRepository defines the interface for scheduling request data access
type SchedulingRequestRepository interface {
	// Create inserts the request together with its attendees
	Create(ctx context.Context, req *entities.SchedulingRequest) error

	// FindByID retrieves a request with its attendees, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error)

	// FindByThread retrieves the request that owns an email thread for a user
	FindByThread(ctx context.Context, userID uuid.UUID, threadID string) (*entities.SchedulingRequest, error)

	// UpdateIfUnchanged saves the request only when status and version still match
	// the values read earlier, and bumps the version. Returns ErrConcurrentUpdate otherwise.
	UpdateIfUnchanged(ctx context.Context, req *entities.SchedulingRequest, expectedStatus entities.RequestStatus, expectedVersion int) error

	// List retrieves requests matching the filters
	List(ctx context.Context, filters RequestFilters) ([]*entities.SchedulingRequest, error)

	// FindConfirmedForUser retrieves the user's requests holding a confirmed time in [from, to)
	FindConfirmedForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.SchedulingRequest, error)

	// CountByStatus returns the number of requests in a status
	CountByStatus(ctx context.Context, status entities.RequestStatus) (int64, error)

	// CountBySLAStatus returns the number of awaiting requests with the given SLA status
	CountBySLAStatus(ctx context.Context, status entities.SLAStatus) (int64, error)
}

// RequestFilters represents filter options for listing requests
type RequestFilters struct {
	Statuses        []entities.RequestStatus
	UserID          *uuid.UUID
	ConfirmedAfter  *time.Time
	ConfirmedBefore *time.Time
	Limit           int
	Offset          int
}

// ActionRepository defines the append-only audit log
type ActionRepository interface {
	// Append assigns the next per-request sequence and inserts the action
	Append(ctx context.Context, action *entities.SchedulingAction) error

	// ListByRequest returns actions in causal order
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entities.SchedulingAction, error)
}
