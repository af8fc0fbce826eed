package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// PatternRepository stores contact response-velocity profiles
type PatternRepository interface {
	FindByEmail(ctx context.Context, email string) (*entities.ContactEmailPattern, error)
	Upsert(ctx context.Context, pattern *entities.ContactEmailPattern) error
}

// InboundRepository stores received replies
type InboundRepository interface {
	// Create inserts a message. Returns ErrDuplicateKey for a known provider message id.
	Create(ctx context.Context, msg *entities.InboundMessage) error

	FindByID(ctx context.Context, id uuid.UUID) (*entities.InboundMessage, error)

	// ListUnprocessed retrieves messages not yet handled, oldest first
	ListUnprocessed(ctx context.Context, limit int) ([]*entities.InboundMessage, error)

	// LatestForRequest retrieves the newest message linked to a request
	LatestForRequest(ctx context.Context, requestID uuid.UUID) (*entities.InboundMessage, error)

	// MarkProcessed records the outcome of processing a message
	MarkProcessed(ctx context.Context, msg *entities.InboundMessage) error
}

// WorkItemRepository stores human work items
type WorkItemRepository interface {
	Create(ctx context.Context, item *entities.WorkItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.WorkItem, error)
	List(ctx context.Context, status entities.WorkItemStatus, limit int) ([]*entities.WorkItem, error)

	// Resolve closes an open item. Returns ErrConcurrentUpdate when it is already resolved.
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy string, at time.Time) error
}

// JobRunRepository stores job execution history
type JobRunRepository interface {
	Create(ctx context.Context, run *entities.JobRun) error

	// ListRecent retrieves the latest runs of a job, newest first
	ListRecent(ctx context.Context, jobName string, limit int) ([]*entities.JobRun, error)
}

// DirectoryRepository reads CRM records for entity linking
type DirectoryRepository interface {
	FindContactsByEmails(ctx context.Context, emails []string) ([]*entities.Contact, error)
	FindCompanyByDomain(ctx context.Context, domain string) (*entities.Company, error)
	FindActiveDeals(ctx context.Context, companyID uuid.UUID) ([]*entities.Deal, error)
	FindDealByID(ctx context.Context, id uuid.UUID) (*entities.Deal, error)
}

// WorkItemSink receives work items for the human review surface
type WorkItemSink interface {
	Create(ctx context.Context, item *entities.WorkItem) error
}
