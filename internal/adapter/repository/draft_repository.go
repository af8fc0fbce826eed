package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// DraftRepository handles draft data operations
type DraftRepository struct {
	db *gorm.DB
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

var _ repositories.DraftRepository = (*DraftRepository)(nil)

// Create inserts a draft, mapping an idempotency key collision to ErrDuplicateKey
func (r *DraftRepository) Create(ctx context.Context, draft *entities.Draft) error {
	if draft == nil {
		return errors.New("draft cannot be nil")
	}
	return translateCreateError(r.db.WithContext(ctx).Create(draft).Error)
}

// FindByID retrieves a draft by ID
func (r *DraftRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Draft, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByIdempotencyKey retrieves a draft by its idempotency key
func (r *DraftRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entities.Draft, error) {
	return r.findOne(ctx, "idempotency_key = ?", key)
}

func (r *DraftRepository) findOne(ctx context.Context, query string, arg interface{}) (*entities.Draft, error) {
	var draft entities.Draft
	if err := r.db.WithContext(ctx).Where(query, arg).First(&draft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

// SaveIfStatus writes the draft only while the row still holds status from.
// This is the approved->executing claim: of two concurrent executors only one
// sees RowsAffected == 1.
func (r *DraftRepository) SaveIfStatus(ctx context.Context, draft *entities.Draft, from entities.DraftStatus) error {
	draft.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&entities.Draft{}).
		Where("id = ? AND status = ?", draft.ID, from).
		Select("*").
		Omit("id", "created_at").
		Updates(draft)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrClaimLost
	}
	return nil
}

// ListByStatus retrieves drafts in a status, oldest first
func (r *DraftRepository) ListByStatus(ctx context.Context, status entities.DraftStatus, limit int) ([]*entities.Draft, error) {
	var drafts []*entities.Draft
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(defaultLimit(limit, 100)).
		Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

// ListByRequest retrieves all drafts of a request
func (r *DraftRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entities.Draft, error) {
	var drafts []*entities.Draft
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

// ListExpired retrieves pending drafts past their expiry
func (r *DraftRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entities.Draft, error) {
	var drafts []*entities.Draft
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", entities.DraftStatusPending, now).
		Order("expires_at ASC").
		Limit(defaultLimit(limit, 100)).
		Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

// CountByStatus counts drafts in a status
func (r *DraftRepository) CountByStatus(ctx context.Context, status entities.DraftStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Draft{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// CountStuckExecuting counts drafts claimed before the cutoff that never finished
func (r *DraftRepository) CountStuckExecuting(ctx context.Context, claimedBefore time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entities.Draft{}).
		Where("status = ? AND claimed_at < ?", entities.DraftStatusExecuting, claimedBefore).
		Count(&n).Error
	return n, err
}
