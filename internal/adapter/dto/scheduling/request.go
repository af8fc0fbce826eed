package scheduling

import "time"

// AttendeeRequest is one meeting participant
type AttendeeRequest struct {
	Side             string `json:"side" validate:"required,oneof=internal external"`
	Name             string `json:"name" validate:"max=255"`
	Email            string `json:"email" validate:"required,email"`
	Title            string `json:"title,omitempty" validate:"max=255"`
	IsPrimaryContact bool   `json:"is_primary_contact"`
	IsOrganizer      bool   `json:"is_organizer"`
}

// CreateRequest represents the request to start scheduling a meeting
type CreateRequest struct {
	UserID           string            `json:"user_id" validate:"required,uuid"`
	Title            string            `json:"title" validate:"required,min=1,max=255"`
	MeetingType      string            `json:"meeting_type" validate:"required,oneof=discovery demo follow_up technical executive custom"`
	DurationMinutes  int               `json:"duration_minutes" validate:"required,min=5,max=480"`
	Timezone         string            `json:"timezone" validate:"required,iana_tz"`
	DateRangeStart   *time.Time        `json:"date_range_start,omitempty"`
	DateRangeEnd     *time.Time        `json:"date_range_end,omitempty"`
	Urgency          string            `json:"urgency,omitempty" validate:"omitempty,oneof=low normal high"`
	Attendees        []AttendeeRequest `json:"attendees" validate:"required,min=1,dive"`
	ProposedTimes    []time.Time       `json:"proposed_times,omitempty"`
	ExternalThreadID *string           `json:"external_thread_id,omitempty"`
	SourceMessageID  *string           `json:"source_message_id,omitempty"`
	CompanyID        *string           `json:"company_id,omitempty" validate:"omitempty,uuid"`
	ContactID        *string           `json:"contact_id,omitempty" validate:"omitempty,uuid"`
	DealID           *string           `json:"deal_id,omitempty" validate:"omitempty,uuid"`
	DealStage        string            `json:"deal_stage,omitempty" validate:"max=50"`
	ContactPersona   string            `json:"contact_persona,omitempty" validate:"max=50"`
}

// ListRequest represents query parameters for listing requests
type ListRequest struct {
	Status []string `query:"status"`
	UserID string   `query:"user_id" validate:"omitempty,uuid"`
	Limit  int      `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset int      `query:"offset" validate:"omitempty,min=0"`
}

// ReasonRequest carries a free-text reason for cancel
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TimesRequest carries the instants to offer in a proposal
type TimesRequest struct {
	Times []time.Time `json:"times" validate:"required,min=1,max=10"`
}
