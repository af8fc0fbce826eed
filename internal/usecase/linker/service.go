package linker

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// Service defines the interface for entity linking
type Service interface {
	// Link scores an inbound message against the CRM and applies the decision
	// to the request: auto-link, suggestion work item, or nothing.
	Link(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (*Score, error)

	// AcceptSuggestion applies the links proposed by a link_suggestion work item
	AcceptSuggestion(ctx context.Context, workItemID uuid.UUID, resolvedBy string) (*entities.SchedulingRequest, error)

	// Undo clears automatic links. The request is then treated as manually linked.
	Undo(ctx context.Context, requestID uuid.UUID) (*entities.SchedulingRequest, error)
}

// Ensure LinkerService implements Service interface
var _ Service = (*LinkerService)(nil)
