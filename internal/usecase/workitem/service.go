package workitem

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// Service defines the human review queue operations
type Service interface {
	// List returns work items in a status, newest first
	List(ctx context.Context, status entities.WorkItemStatus, limit int) ([]*entities.WorkItem, error)

	// Get retrieves a work item by ID
	Get(ctx context.Context, id uuid.UUID) (*entities.WorkItem, error)

	// Resolve closes an open work item
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (*entities.WorkItem, error)
}

var _ Service = (*WorkItemService)(nil)
