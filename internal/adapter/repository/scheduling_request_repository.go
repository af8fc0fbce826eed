package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// SchedulingRequestRepository handles scheduling request data operations
type SchedulingRequestRepository struct {
	db *gorm.DB
}

// NewSchedulingRequestRepository creates a new scheduling request repository
func NewSchedulingRequestRepository(db *gorm.DB) *SchedulingRequestRepository {
	return &SchedulingRequestRepository{db: db}
}

var _ repositories.SchedulingRequestRepository = (*SchedulingRequestRepository)(nil)

// Create inserts the request and its attendees in one transaction
func (r *SchedulingRequestRepository) Create(ctx context.Context, req *entities.SchedulingRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	return translateCreateError(r.db.WithContext(ctx).Create(req).Error)
}

// FindByID retrieves a request with attendees
func (r *SchedulingRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error) {
	var req entities.SchedulingRequest
	if err := r.db.WithContext(ctx).Preload("Attendees").Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// FindByThread retrieves the request owning a thread
func (r *SchedulingRequestRepository) FindByThread(ctx context.Context, userID uuid.UUID, threadID string) (*entities.SchedulingRequest, error) {
	var req entities.SchedulingRequest
	if err := r.db.WithContext(ctx).
		Preload("Attendees").
		Where("user_id = ? AND external_thread_id = ?", userID, threadID).
		First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// UpdateIfUnchanged performs the conditional single-row update used by every transition
func (r *SchedulingRequestRepository) UpdateIfUnchanged(ctx context.Context, req *entities.SchedulingRequest, expectedStatus entities.RequestStatus, expectedVersion int) error {
	req.Version = expectedVersion + 1
	req.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&entities.SchedulingRequest{}).
		Where("id = ? AND status = ? AND version = ?", req.ID, expectedStatus, expectedVersion).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(req)
	if result.Error != nil {
		req.Version = expectedVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		req.Version = expectedVersion
		return repositories.ErrConcurrentUpdate
	}
	return nil
}

// List retrieves requests matching the filters
func (r *SchedulingRequestRepository) List(ctx context.Context, filters repositories.RequestFilters) ([]*entities.SchedulingRequest, error) {
	var reqs []*entities.SchedulingRequest
	query := r.db.WithContext(ctx).Preload("Attendees")
	if len(filters.Statuses) > 0 {
		query = query.Where("status IN ?", filters.Statuses)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.ConfirmedAfter != nil {
		query = query.Where("confirmed_time >= ?", *filters.ConfirmedAfter)
	}
	if filters.ConfirmedBefore != nil {
		query = query.Where("confirmed_time < ?", *filters.ConfirmedBefore)
	}
	if err := query.
		Order("updated_at ASC").
		Limit(defaultLimit(filters.Limit, 100)).
		Offset(filters.Offset).
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// FindConfirmedForUser retrieves confirmed meetings of a user in a window
func (r *SchedulingRequestRepository) FindConfirmedForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.SchedulingRequest, error) {
	var reqs []*entities.SchedulingRequest
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND confirmed_time >= ? AND confirmed_time < ?",
			userID,
			[]entities.RequestStatus{entities.StatusConfirmed, entities.StatusReminderSent},
			from, to).
		Order("confirmed_time ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// CountByStatus counts requests in a status
func (r *SchedulingRequestRepository) CountByStatus(ctx context.Context, status entities.RequestStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.SchedulingRequest{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// CountBySLAStatus counts awaiting requests by SLA status
func (r *SchedulingRequestRepository) CountBySLAStatus(ctx context.Context, status entities.SLAStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entities.SchedulingRequest{}).
		Where("status = ? AND sla_status = ?", entities.StatusAwaitingResponse, status).
		Count(&n).Error
	return n, err
}
