package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// DraftRepository defines the interface for draft data access
type DraftRepository interface {
	// Create inserts a draft. Returns ErrDuplicateKey when the idempotency key exists.
	Create(ctx context.Context, draft *entities.Draft) error

	// FindByID retrieves a draft, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Draft, error)

	// FindByIdempotencyKey retrieves a draft by its idempotency key, nil when absent
	FindByIdempotencyKey(ctx context.Context, key string) (*entities.Draft, error)

	// SaveIfStatus saves the draft only while its stored status is still from.
	// Returns ErrClaimLost when another writer moved it first.
	SaveIfStatus(ctx context.Context, draft *entities.Draft, from entities.DraftStatus) error

	// ListByStatus retrieves drafts in a status, oldest first
	ListByStatus(ctx context.Context, status entities.DraftStatus, limit int) ([]*entities.Draft, error)

	// ListByRequest retrieves all drafts of a request
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entities.Draft, error)

	// ListExpired retrieves pending drafts whose expiry is before now
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entities.Draft, error)

	// CountByStatus returns the number of drafts in a status
	CountByStatus(ctx context.Context, status entities.DraftStatus) (int64, error)

	// CountStuckExecuting returns drafts claimed before the cutoff and still executing
	CountStuckExecuting(ctx context.Context, claimedBefore time.Time) (int64, error)
}
