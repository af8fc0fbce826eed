package workitem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
)

const defaultListLimit = 50

// WorkItemService implements Service
type WorkItemService struct {
	items  repositories.WorkItemRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewWorkItemService creates a new work item service
func NewWorkItemService(items repositories.WorkItemRepository, logger *zap.Logger) *WorkItemService {
	return &WorkItemService{
		items:  items,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns work items in a status
func (s *WorkItemService) List(ctx context.Context, status entities.WorkItemStatus, limit int) ([]*entities.WorkItem, error) {
	if status == "" {
		status = entities.WorkItemOpen
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	items, err := s.items.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	return items, nil
}

// Get retrieves a work item by ID
func (s *WorkItemService) Get(ctx context.Context, id uuid.UUID) (*entities.WorkItem, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find work item: %w", err)
	}
	if item == nil {
		return nil, usecaseErrors.ErrWorkItemNotFound
	}
	return item, nil
}

// Resolve closes an open work item. Resolving an escalation does not resume
// the request; the reviewer does that explicitly.
func (s *WorkItemService) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (*entities.WorkItem, error) {
	resolvedBy = strings.TrimSpace(resolvedBy)
	if resolvedBy == "" {
		return nil, fmt.Errorf("%w: resolved_by is required", usecaseErrors.ErrInvalidInput)
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == entities.WorkItemResolved {
		return nil, usecaseErrors.ErrWorkItemResolved
	}

	now := s.now()
	if err := s.items.Resolve(ctx, id, resolvedBy, now); err != nil {
		if usecaseErrors.IsConcurrencyConflict(err) {
			return nil, usecaseErrors.ErrWorkItemResolved
		}
		return nil, fmt.Errorf("failed to resolve work item: %w", err)
	}

	item.Status = entities.WorkItemResolved
	item.ResolvedBy = resolvedBy
	item.ResolvedAt = &now
	s.logger.Info("✅ Work item resolved",
		zap.String("work_item_id", id.String()),
		zap.String("reason", item.Reason),
		zap.String("resolved_by", resolvedBy),
	)
	return item, nil
}
