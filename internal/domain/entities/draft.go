package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DraftType is the kind of outbound unit of work
type DraftType string

const (
	DraftTypeEmailProposal     DraftType = "email_proposal"
	DraftTypeEmailFollowUp     DraftType = "email_follow_up"
	DraftTypeEmailResponse     DraftType = "email_response"
	DraftTypeEmailReminder     DraftType = "email_reminder"
	DraftTypeAvailabilityCheck DraftType = "availability_check"
	DraftTypeCalendarBook      DraftType = "calendar_book"
	DraftTypeCalendarUpdate    DraftType = "calendar_update"
	DraftTypeCalendarCancel    DraftType = "calendar_cancel"
)

// IsValid reports whether the draft type is known
func (t DraftType) IsValid() bool {
	switch t {
	case DraftTypeEmailProposal, DraftTypeEmailFollowUp, DraftTypeEmailResponse, DraftTypeEmailReminder,
		DraftTypeAvailabilityCheck, DraftTypeCalendarBook, DraftTypeCalendarUpdate, DraftTypeCalendarCancel:
		return true
	}
	return false
}

// IsEmail reports whether executing the draft sends a message
func (t DraftType) IsEmail() bool {
	switch t {
	case DraftTypeEmailProposal, DraftTypeEmailFollowUp, DraftTypeEmailResponse,
		DraftTypeEmailReminder, DraftTypeAvailabilityCheck:
		return true
	}
	return false
}

// BooksMeeting reports whether executing the draft books or moves a calendar event
func (t DraftType) BooksMeeting() bool {
	return t == DraftTypeCalendarBook || t == DraftTypeCalendarUpdate
}

// DraftStatus is the approval lifecycle of a draft
type DraftStatus string

const (
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusApproved  DraftStatus = "approved"
	DraftStatusExecuting DraftStatus = "executing"
	DraftStatusExecuted  DraftStatus = "executed"
	DraftStatusRejected  DraftStatus = "rejected"
	DraftStatusExpired   DraftStatus = "expired"
	DraftStatusFailed    DraftStatus = "failed"
)

// DraftPayload carries everything the executor needs to perform the action
type DraftPayload struct {
	To               []string    `json:"to,omitempty"`
	Cc               []string    `json:"cc,omitempty"`
	Subject          string      `json:"subject,omitempty"`
	Body             string      `json:"body,omitempty"`
	ReplyToMessageID string      `json:"reply_to_message_id,omitempty"`
	ThreadID         string      `json:"thread_id,omitempty"`
	BookingStart     *time.Time  `json:"booking_start,omitempty"`
	BookingDuration  int         `json:"booking_duration,omitempty"`
	BookingAttendees []string    `json:"booking_attendees,omitempty"`
	BookingTitle     string      `json:"booking_title,omitempty"`
	ProposedInstants []time.Time `json:"proposed_instants,omitempty"`
}

// DraftEdits is the human overlay applied on top of the payload at execution time
type DraftEdits struct {
	To           []string   `json:"to,omitempty"`
	Cc           []string   `json:"cc,omitempty"`
	Subject      *string    `json:"subject,omitempty"`
	Body         *string    `json:"body,omitempty"`
	BookingStart *time.Time `json:"booking_start,omitempty"`
}

// DraftResult is what the provider returned on success
type DraftResult struct {
	MessageID   string `json:"message_id,omitempty"`
	ThreadID    string `json:"thread_id,omitempty"`
	EventID     string `json:"event_id,omitempty"`
	MeetingLink string `json:"meeting_link,omitempty"`
	BodyRef     string `json:"body_ref,omitempty"`
}

// Draft is a pending, reversible outbound action awaiting approval
type Draft struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RequestID       uuid.UUID      `json:"request_id" gorm:"type:uuid;not null;index"`
	Type            DraftType      `json:"type" gorm:"type:varchar(30);not null"`
	Status          DraftStatus    `json:"status" gorm:"type:varchar(20);not null;index;default:'pending'"`
	Payload         DraftPayload   `json:"payload" gorm:"type:jsonb;serializer:json"`
	Confidence      ConfidenceTier `json:"confidence" gorm:"type:varchar(10);not null"`
	Reasoning       string         `json:"reasoning,omitempty" gorm:"type:text"`
	UserEdits       *DraftEdits    `json:"user_edits,omitempty" gorm:"type:jsonb;serializer:json"`
	IdempotencyKey  string         `json:"idempotency_key" gorm:"type:varchar(255);not null;uniqueIndex"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty" gorm:"index"`
	RetryCount      int            `json:"retry_count" gorm:"not null;default:0"`
	MaxRetries      int            `json:"max_retries" gorm:"not null;default:3"`
	Result          datatypes.JSON `json:"result,omitempty" gorm:"type:jsonb"`
	LastError       string         `json:"last_error,omitempty" gorm:"type:text"`
	ApprovedBy      string         `json:"approved_by,omitempty" gorm:"type:varchar(255)"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectedBy      string         `json:"rejected_by,omitempty" gorm:"type:varchar(255)"`
	RejectionReason string         `json:"rejection_reason,omitempty" gorm:"type:text"`
	ExecutedAt      *time.Time     `json:"executed_at,omitempty"`
	ClaimedAt       *time.Time     `json:"claimed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Draft) TableName() string {
	return "drafts"
}

// Effective returns the payload with the user overlay applied. The stored payload is left untouched.
func (d *Draft) Effective() DraftPayload {
	p := d.Payload
	p.To = append([]string(nil), d.Payload.To...)
	p.Cc = append([]string(nil), d.Payload.Cc...)
	if d.UserEdits == nil {
		return p
	}
	if len(d.UserEdits.To) > 0 {
		p.To = append([]string(nil), d.UserEdits.To...)
	}
	if len(d.UserEdits.Cc) > 0 {
		p.Cc = append([]string(nil), d.UserEdits.Cc...)
	}
	if d.UserEdits.Subject != nil {
		p.Subject = *d.UserEdits.Subject
	}
	if d.UserEdits.Body != nil {
		p.Body = *d.UserEdits.Body
	}
	if d.UserEdits.BookingStart != nil {
		t := *d.UserEdits.BookingStart
		p.BookingStart = &t
	}
	return p
}

// IsExpired reports whether a pending draft has passed its expiry
func (d *Draft) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}

// CanRetry reports whether a failed draft may be re-approved
func (d *Draft) CanRetry() bool {
	return d.Status == DraftStatusFailed && d.RetryCount < d.MaxRetries
}
