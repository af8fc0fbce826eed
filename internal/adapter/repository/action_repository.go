package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

const appendRetries = 3

// ActionRepository handles the scheduling audit log
type ActionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new action repository
func NewActionRepository(db *gorm.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

var _ repositories.ActionRepository = (*ActionRepository)(nil)

// Append inserts the action with the next sequence for its request. Two writers racing
// on the same request collide on the unique (request_id, sequence) index and the loser retries.
func (r *ActionRepository) Append(ctx context.Context, action *entities.SchedulingAction) error {
	if action == nil {
		return errors.New("action cannot be nil")
	}
	var err error
	for attempt := 0; attempt < appendRetries; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var next int64
			if err := tx.Model(&entities.SchedulingAction{}).
				Select("COALESCE(MAX(sequence), 0) + 1").
				Where("request_id = ?", action.RequestID).
				Scan(&next).Error; err != nil {
				return err
			}
			action.Sequence = next
			return tx.Create(action).Error
		})
		if err = translateCreateError(err); !errors.Is(err, repositories.ErrDuplicateKey) {
			return err
		}
	}
	return err
}

// ListByRequest returns actions ordered by creation time then sequence
func (r *ActionRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entities.SchedulingAction, error) {
	var actions []*entities.SchedulingAction
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, sequence ASC").
		Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}
