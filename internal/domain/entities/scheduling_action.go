package entities

import (
	"time"

	"github.com/google/uuid"
)

// ActionType names an audit entry
type ActionType string

const (
	ActionCreated          ActionType = "created"
	ActionTransition       ActionType = "transition"
	ActionEmailQueued      ActionType = "email_queued"
	ActionEmailSent        ActionType = "email_sent"
	ActionBookingQueued    ActionType = "booking_queued"
	ActionBooked           ActionType = "booked"
	ActionInboundProcessed ActionType = "inbound_processed"
	ActionEscalated        ActionType = "escalated"
	ActionDraftApproved    ActionType = "draft_approved"
	ActionDraftRejected    ActionType = "draft_rejected"
	ActionDraftFailed      ActionType = "draft_failed"
	ActionDraftExpired     ActionType = "draft_expired"
	ActionLinkApplied      ActionType = "link_applied"
	ActionLinkSuggested    ActionType = "link_suggested"
	ActionSLAWarning       ActionType = "sla_warning"
	ActionSLAOverdue       ActionType = "sla_overdue"
	ActionOOODetected      ActionType = "ooo_detected"
	ActionNoShowReported   ActionType = "no_show_reported"
)

// SchedulingAction is an append-only audit record. Rows are never updated.
type SchedulingAction struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RequestID      uuid.UUID     `json:"request_id" gorm:"type:uuid;not null;uniqueIndex:ux_action_request_seq,priority:1"`
	Sequence       int64         `json:"sequence" gorm:"not null;uniqueIndex:ux_action_request_seq,priority:2"`
	ActionType     ActionType    `json:"action_type" gorm:"type:varchar(40);not null"`
	Actor          Actor         `json:"actor" gorm:"type:varchar(20);not null"`
	PreviousStatus RequestStatus `json:"previous_status,omitempty" gorm:"type:varchar(30)"`
	NewStatus      RequestStatus `json:"new_status,omitempty" gorm:"type:varchar(30)"`
	MessageSubject string        `json:"message_subject,omitempty" gorm:"type:text"`
	BodyRef        string        `json:"body_ref,omitempty" gorm:"type:text"`
	DraftID        *uuid.UUID    `json:"draft_id,omitempty" gorm:"type:uuid"`
	MessageID      *uuid.UUID    `json:"message_id,omitempty" gorm:"type:uuid;index"`
	Reasoning      string        `json:"reasoning,omitempty" gorm:"type:text"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (SchedulingAction) TableName() string {
	return "scheduling_actions"
}

// NewAction builds an audit entry for a request
func NewAction(requestID uuid.UUID, actionType ActionType, actor Actor, reasoning string) *SchedulingAction {
	return &SchedulingAction{
		ID:         uuid.New(),
		RequestID:  requestID,
		ActionType: actionType,
		Actor:      actor,
		Reasoning:  reasoning,
		CreatedAt:  time.Now().UTC(),
	}
}

// WithStatuses records a status change on the entry
func (a *SchedulingAction) WithStatuses(prev, next RequestStatus) *SchedulingAction {
	a.PreviousStatus = prev
	a.NewStatus = next
	return a
}
