package entities

import (
	"time"

	"github.com/google/uuid"
)

// MeetingType represents the kind of meeting being negotiated
type MeetingType string

const (
	MeetingTypeDiscovery MeetingType = "discovery"
	MeetingTypeDemo      MeetingType = "demo"
	MeetingTypeFollowUp  MeetingType = "follow_up"
	MeetingTypeTechnical MeetingType = "technical"
	MeetingTypeExecutive MeetingType = "executive"
	MeetingTypeCustom    MeetingType = "custom"
)

// IsValid reports whether the meeting type is known
func (m MeetingType) IsValid() bool {
	switch m {
	case MeetingTypeDiscovery, MeetingTypeDemo, MeetingTypeFollowUp,
		MeetingTypeTechnical, MeetingTypeExecutive, MeetingTypeCustom:
		return true
	}
	return false
}

// Urgency of the request
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// SLAStatus tracks how close an awaiting request is to its due date
type SLAStatus string

const (
	SLAStatusNone    SLAStatus = ""
	SLAStatusOnTrack SLAStatus = "on_track"
	SLAStatusWarning SLAStatus = "warning"
	SLAStatusOverdue SLAStatus = "overdue"
)

// LinkMethod records how company/contact/deal links were set
type LinkMethod string

const (
	LinkMethodNone      LinkMethod = ""
	LinkMethodAuto      LinkMethod = "auto"
	LinkMethodSuggested LinkMethod = "suggested"
	LinkMethodManual    LinkMethod = "manual"
)

// TimeSource is the provenance of a proposed time candidate
type TimeSource string

const (
	TimeSourceInitialProposal TimeSource = "initial_proposal"
	TimeSourceCounterProposal TimeSource = "counter_proposal"
	TimeSourceManual          TimeSource = "manual"
)

// ProposedTime is one candidate slot offered to (or by) the external party
type ProposedTime struct {
	Instant time.Time  `json:"instant"`
	Display string     `json:"display"`
	Source  TimeSource `json:"source"`
}

// NextActionType is the kind of work the engine expects to do next
type NextActionType string

const (
	NextActionNone        NextActionType = ""
	NextActionSendDraft   NextActionType = "send_draft"
	NextActionAwaitReply  NextActionType = "await_reply"
	NextActionFollowUp    NextActionType = "follow_up"
	NextActionReminder    NextActionType = "reminder"
	NextActionCheckNoShow NextActionType = "check_no_show"
	NextActionHumanReview NextActionType = "human_review"
)

// SchedulingRequest represents one meeting negotiation
type SchedulingRequest struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:ux_request_user_thread,priority:1"`
	Title           string         `json:"title" gorm:"type:varchar(255);not null"`
	MeetingType     MeetingType    `json:"meeting_type" gorm:"type:varchar(30);not null"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null;default:30"`
	Status          RequestStatus  `json:"status" gorm:"type:varchar(30);not null;index;default:'initiated'"`
	Timezone        string         `json:"timezone" gorm:"type:varchar(64);not null"`
	DateRangeStart  *time.Time     `json:"date_range_start,omitempty"`
	DateRangeEnd    *time.Time     `json:"date_range_end,omitempty"`
	ProposedTimes   []ProposedTime `json:"proposed_times" gorm:"type:jsonb;serializer:json"`
	ConfirmedTime   *time.Time     `json:"confirmed_time,omitempty" gorm:"index"`
	AttemptCount    int            `json:"attempt_count" gorm:"not null;default:0"`
	NoShowCount     int            `json:"no_show_count" gorm:"not null;default:0"`
	Urgency         Urgency        `json:"urgency" gorm:"type:varchar(20);not null;default:'normal'"`
	Channel         string         `json:"channel" gorm:"type:varchar(20);not null;default:'email'"`

	NextActionType NextActionType `json:"next_action_type,omitempty" gorm:"type:varchar(30)"`
	NextActionDue  *time.Time     `json:"next_action_due,omitempty" gorm:"index"`

	// Entity links (set by the linker or manually)
	CompanyID      *uuid.UUID `json:"company_id,omitempty" gorm:"type:uuid;index"`
	ContactID      *uuid.UUID `json:"contact_id,omitempty" gorm:"type:uuid;index"`
	DealID         *uuid.UUID `json:"deal_id,omitempty" gorm:"type:uuid;index"`
	LinkConfidence int        `json:"link_confidence" gorm:"default:0"`
	LinkMethod     LinkMethod `json:"link_method,omitempty" gorm:"type:varchar(20)"`
	LinkReasoning  string     `json:"link_reasoning,omitempty" gorm:"type:text"`

	// Conversation keys, persisted immediately after every send
	SourceMessageID       *string    `json:"source_message_id,omitempty" gorm:"type:varchar(255)"`
	ExternalThreadID      *string    `json:"external_thread_id,omitempty" gorm:"type:varchar(255);uniqueIndex:ux_request_user_thread,priority:2"`
	LastOutboundMessageID *string    `json:"last_outbound_message_id,omitempty" gorm:"type:varchar(255)"`
	LastOutboundAt        *time.Time `json:"last_outbound_at,omitempty"`

	// SLA tracking
	AwaitingSince  *time.Time `json:"awaiting_since,omitempty"`
	SLADueAt       *time.Time `json:"sla_due_at,omitempty" gorm:"index"`
	SLAStatus      SLAStatus  `json:"sla_status,omitempty" gorm:"type:varchar(20)"`
	DealStage      string     `json:"deal_stage,omitempty" gorm:"type:varchar(50)"`
	ContactPersona string     `json:"contact_persona,omitempty" gorm:"type:varchar(50)"`

	// Pause bookkeeping
	PausedFrom    RequestStatus `json:"paused_from,omitempty" gorm:"type:varchar(30)"`
	PausedReason  string        `json:"paused_reason,omitempty" gorm:"type:varchar(100)"`
	PausedDetails string        `json:"paused_details,omitempty" gorm:"type:text"`

	// confirmed time parked while paused so the invariant holds
	HeldConfirmedTime *time.Time `json:"held_confirmed_time,omitempty"`

	// Booking
	CalendarEventID  *string    `json:"calendar_event_id,omitempty" gorm:"type:varchar(255)"`
	MeetingLink      *string    `json:"meeting_link,omitempty" gorm:"type:text"`
	NoShowReportedAt *time.Time `json:"no_show_reported_at,omitempty"`

	Attendees []Attendee `json:"attendees,omitempty" gorm:"foreignKey:RequestID"`

	Version   int       `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SchedulingRequest) TableName() string {
	return "scheduling_requests"
}

// NewSchedulingRequest creates a request in the initiated state
func NewSchedulingRequest(userID uuid.UUID, title string, meetingType MeetingType, duration int, timezone string) *SchedulingRequest {
	now := time.Now().UTC()
	return &SchedulingRequest{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           title,
		MeetingType:     meetingType,
		DurationMinutes: duration,
		Status:          StatusInitiated,
		Timezone:        timezone,
		Urgency:         UrgencyNormal,
		Channel:         "email",
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks the request fields that creation depends on
func (r *SchedulingRequest) Validate() error {
	if !r.MeetingType.IsValid() {
		return ErrInvalidMeetingType
	}
	if r.DurationMinutes < 5 || r.DurationMinutes > 480 {
		return ErrInvalidDuration
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil || r.Timezone == "" {
		return ErrInvalidTimezone
	}
	if r.DateRangeStart != nil && r.DateRangeEnd != nil && r.DateRangeEnd.Before(*r.DateRangeStart) {
		return ErrInvalidDateRange
	}
	primary := 0
	for _, a := range r.Attendees {
		if a.Side == AttendeeSideExternal && a.IsPrimaryContact {
			primary++
		}
	}
	if primary > 1 {
		return ErrMultiplePrimaryContact
	}
	return nil
}

// Location returns the request's timezone, falling back to UTC
func (r *SchedulingRequest) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsTerminal reports whether the request accepts no further actions
func (r *SchedulingRequest) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// PrimaryContact returns the external primary attendee, or the first external one
func (r *SchedulingRequest) PrimaryContact() *Attendee {
	var first *Attendee
	for i := range r.Attendees {
		a := &r.Attendees[i]
		if a.Side != AttendeeSideExternal {
			continue
		}
		if a.IsPrimaryContact {
			return a
		}
		if first == nil {
			first = a
		}
	}
	return first
}

// Organizer returns the internal organizer, if any
func (r *SchedulingRequest) Organizer() *Attendee {
	for i := range r.Attendees {
		if r.Attendees[i].Side == AttendeeSideInternal && r.Attendees[i].IsOrganizer {
			return &r.Attendees[i]
		}
	}
	return nil
}

// ApplyTransition moves the request to a new status, maintaining the
// confirmed-time invariant. confirmedTime is required when entering confirmed
// from confirming; other confirmed-time states carry the existing value.
func (r *SchedulingRequest) ApplyTransition(to RequestStatus, confirmedTime *time.Time, now time.Time) error {
	resuming := r.Status == StatusPaused && to != StatusCancelled
	if resuming {
		if to != r.PausedFrom {
			return ErrInvalidTransition
		}
		if err := CanResume(to); err != nil {
			return err
		}
	} else if err := CanTransition(r.Status, to); err != nil {
		return err
	}

	switch {
	case to == StatusPaused:
		r.HeldConfirmedTime = r.ConfirmedTime
		r.ConfirmedTime = nil
		r.PausedFrom = r.Status
	case resuming && to.HasConfirmedTime():
		if r.HeldConfirmedTime == nil {
			return ErrConfirmedTimeState
		}
		r.ConfirmedTime = r.HeldConfirmedTime
	case to == StatusConfirmed && confirmedTime != nil:
		t := confirmedTime.UTC()
		r.ConfirmedTime = &t
	case to.HasConfirmedTime():
		if r.ConfirmedTime == nil {
			return ErrConfirmedTimeState
		}
	default:
		r.ConfirmedTime = nil
	}

	if to != StatusPaused {
		r.PausedFrom = ""
		r.PausedReason = ""
		r.PausedDetails = ""
		r.HeldConfirmedTime = nil
	}
	if to != StatusAwaitingResponse {
		r.SLAStatus = SLAStatusNone
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// CheckInvariant verifies confirmed_time is set iff the status requires it
func (r *SchedulingRequest) CheckInvariant() error {
	if r.Status.HasConfirmedTime() != (r.ConfirmedTime != nil) {
		return ErrConfirmedTimeState
	}
	return nil
}

// HasProposedTime reports whether the instant is already a candidate
func (r *SchedulingRequest) HasProposedTime(t time.Time) bool {
	for _, p := range r.ProposedTimes {
		if p.Instant.Equal(t) {
			return true
		}
	}
	return false
}

// IncrementAttempt bumps the attempt counter; it never decreases
func (r *SchedulingRequest) IncrementAttempt() {
	r.AttemptCount++
}
