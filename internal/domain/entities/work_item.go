package entities

import (
	"time"

	"github.com/google/uuid"
)

// WorkItemKind is what a human is being asked to do
type WorkItemKind string

const (
	WorkItemEscalation     WorkItemKind = "escalation"
	WorkItemDraftApproval  WorkItemKind = "draft_approval"
	WorkItemLinkSuggestion WorkItemKind = "link_suggestion"
)

// WorkItemStatus of a human task
type WorkItemStatus string

const (
	WorkItemOpen     WorkItemStatus = "open"
	WorkItemResolved WorkItemStatus = "resolved"
)

// WorkItem is a task surfaced to a human reviewer
type WorkItem struct {
	ID         uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Kind       WorkItemKind      `json:"kind" gorm:"type:varchar(30);not null;index"`
	RequestID  *uuid.UUID        `json:"request_id,omitempty" gorm:"type:uuid;index"`
	DraftID    *uuid.UUID        `json:"draft_id,omitempty" gorm:"type:uuid"`
	Reason     string            `json:"reason" gorm:"type:varchar(100);not null"`
	Details    map[string]string `json:"details,omitempty" gorm:"type:jsonb;serializer:json"`
	Status     WorkItemStatus    `json:"status" gorm:"type:varchar(20);not null;index;default:'open'"`
	ResolvedBy string            `json:"resolved_by,omitempty" gorm:"type:varchar(255)"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (WorkItem) TableName() string {
	return "work_items"
}

// NewWorkItem creates an open work item
func NewWorkItem(kind WorkItemKind, requestID *uuid.UUID, reason string, details map[string]string) *WorkItem {
	return &WorkItem{
		ID:        uuid.New(),
		Kind:      kind,
		RequestID: requestID,
		Reason:    reason,
		Details:   details,
		Status:    WorkItemOpen,
		CreatedAt: time.Now().UTC(),
	}
}
