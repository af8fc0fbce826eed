package scheduling

import (
	"time"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// RequestResponse is a scheduling request as shown to reviewers
type RequestResponse struct {
	*entities.SchedulingRequest
	AllowedTransitions []string `json:"allowed_transitions"`
	PrimaryContact     string   `json:"primary_contact,omitempty"`
}

// RequestListResponse represents a page of requests
type RequestListResponse struct {
	Requests []*RequestResponse `json:"requests"`
	Count    int                `json:"count"`
}

// ActionResponse is one audit trail entry
type ActionResponse struct {
	Sequence       int64     `json:"sequence"`
	ActionType     string    `json:"action_type"`
	Actor          string    `json:"actor"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status,omitempty"`
	MessageSubject string    `json:"message_subject,omitempty"`
	BodyRef        string    `json:"body_ref,omitempty"`
	DraftID        string    `json:"draft_id,omitempty"`
	Reasoning      string    `json:"reasoning,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProposalResponse is returned when a proposal draft was queued
type ProposalResponse struct {
	Request *RequestResponse `json:"request"`
	Draft   *entities.Draft  `json:"draft"`
}
