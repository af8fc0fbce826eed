package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// PatternRepository handles contact response-velocity profiles
type PatternRepository struct {
	db *gorm.DB
}

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *gorm.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

var _ repositories.PatternRepository = (*PatternRepository)(nil)

// FindByEmail retrieves a profile, nil when the contact never replied
func (r *PatternRepository) FindByEmail(ctx context.Context, email string) (*entities.ContactEmailPattern, error) {
	var p entities.ContactEmailPattern
	if err := r.db.WithContext(ctx).Where("contact_email = ?", strings.ToLower(email)).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert inserts or replaces a profile
func (r *PatternRepository) Upsert(ctx context.Context, pattern *entities.ContactEmailPattern) error {
	pattern.ContactEmail = strings.ToLower(pattern.ContactEmail)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(pattern).Error
}

// InboundRepository handles received replies
type InboundRepository struct {
	db *gorm.DB
}

// NewInboundRepository creates a new inbound message repository
func NewInboundRepository(db *gorm.DB) *InboundRepository {
	return &InboundRepository{db: db}
}

var _ repositories.InboundRepository = (*InboundRepository)(nil)

// Create inserts a received message
func (r *InboundRepository) Create(ctx context.Context, msg *entities.InboundMessage) error {
	return translateCreateError(r.db.WithContext(ctx).Create(msg).Error)
}

// FindByID retrieves a message
func (r *InboundRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.InboundMessage, error) {
	var msg entities.InboundMessage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListUnprocessed retrieves unhandled messages, oldest first
func (r *InboundRepository) ListUnprocessed(ctx context.Context, limit int) ([]*entities.InboundMessage, error) {
	var msgs []*entities.InboundMessage
	if err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("received_at ASC").
		Limit(defaultLimit(limit, 50)).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// LatestForRequest retrieves the newest message of a request
func (r *InboundRepository) LatestForRequest(ctx context.Context, requestID uuid.UUID) (*entities.InboundMessage, error) {
	var msg entities.InboundMessage
	if err := r.db.WithContext(ctx).
		Where("scheduling_request_id = ?", requestID).
		Order("received_at DESC").
		First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// MarkProcessed records the processing outcome
func (r *InboundRepository) MarkProcessed(ctx context.Context, msg *entities.InboundMessage) error {
	return r.db.WithContext(ctx).
		Model(&entities.InboundMessage{}).
		Where("id = ?", msg.ID).
		Updates(map[string]interface{}{
			"scheduling_request_id": msg.SchedulingRequestID,
			"processed_at":          msg.ProcessedAt,
			"processing_error":      msg.ProcessingError,
			"link_suggestion":       msg.LinkSuggestion,
		}).Error
}

// WorkItemRepository handles human work items
type WorkItemRepository struct {
	db *gorm.DB
}

// NewWorkItemRepository creates a new work item repository
func NewWorkItemRepository(db *gorm.DB) *WorkItemRepository {
	return &WorkItemRepository{db: db}
}

var _ repositories.WorkItemRepository = (*WorkItemRepository)(nil)

// Create inserts a work item
func (r *WorkItemRepository) Create(ctx context.Context, item *entities.WorkItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID retrieves a work item
func (r *WorkItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.WorkItem, error) {
	var item entities.WorkItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// List retrieves work items by status, newest first
func (r *WorkItemRepository) List(ctx context.Context, status entities.WorkItemStatus, limit int) ([]*entities.WorkItem, error) {
	var items []*entities.WorkItem
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Limit(defaultLimit(limit, 100)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Resolve closes an open work item
func (r *WorkItemRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.WorkItem{}).
		Where("id = ? AND status = ?", id, entities.WorkItemOpen).
		Updates(map[string]interface{}{
			"status":      entities.WorkItemResolved,
			"resolved_by": resolvedBy,
			"resolved_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrConcurrentUpdate
	}
	return nil
}

// JobRunRepository handles job execution history
type JobRunRepository struct {
	db *gorm.DB
}

// NewJobRunRepository creates a new job run repository
func NewJobRunRepository(db *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

var _ repositories.JobRunRepository = (*JobRunRepository)(nil)

// Create inserts a run record
func (r *JobRunRepository) Create(ctx context.Context, run *entities.JobRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// ListRecent retrieves the latest runs of a job
func (r *JobRunRepository) ListRecent(ctx context.Context, jobName string, limit int) ([]*entities.JobRun, error) {
	var runs []*entities.JobRun
	if err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("started_at DESC").
		Limit(defaultLimit(limit, 20)).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// DirectoryRepository reads CRM tables for the linker
type DirectoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository creates a new CRM directory reader
func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

var _ repositories.DirectoryRepository = (*DirectoryRepository)(nil)

// FindContactsByEmails retrieves contacts matching any address
func (r *DirectoryRepository) FindContactsByEmails(ctx context.Context, emails []string) ([]*entities.Contact, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(emails))
	for _, e := range emails {
		lowered = append(lowered, strings.ToLower(e))
	}
	var contacts []*entities.Contact
	if err := r.db.WithContext(ctx).Where("LOWER(email) IN ?", lowered).Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// FindCompanyByDomain retrieves the company owning an email domain
func (r *DirectoryRepository) FindCompanyByDomain(ctx context.Context, domain string) (*entities.Company, error) {
	var c entities.Company
	if err := r.db.WithContext(ctx).Where("LOWER(domain) = ?", strings.ToLower(domain)).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// FindActiveDeals retrieves open deals of a company
func (r *DirectoryRepository) FindActiveDeals(ctx context.Context, companyID uuid.UUID) ([]*entities.Deal, error) {
	var deals []*entities.Deal
	if err := r.db.WithContext(ctx).Where("company_id = ? AND is_active = ?", companyID, true).Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// FindDealByID retrieves a deal
func (r *DirectoryRepository) FindDealByID(ctx context.Context, id uuid.UUID) (*entities.Deal, error) {
	var d entities.Deal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
