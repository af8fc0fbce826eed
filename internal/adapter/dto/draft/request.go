package draft

import "time"

// ListDraftsRequest represents query parameters for the approval queue
type ListDraftsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=pending approved executing executed rejected expired failed"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// ApproveRequest approves a pending draft, optionally editing it
type ApproveRequest struct {
	ApprovedBy   string     `json:"approved_by" validate:"required,max=255"`
	To           []string   `json:"to,omitempty" validate:"omitempty,dive,email"`
	Cc           []string   `json:"cc,omitempty" validate:"omitempty,dive,email"`
	Subject      *string    `json:"subject,omitempty" validate:"omitempty,max=998"`
	Body         *string    `json:"body,omitempty"`
	BookingStart *time.Time `json:"booking_start,omitempty"`
}

// RejectRequest closes a pending draft
type RejectRequest struct {
	RejectedBy string `json:"rejected_by" validate:"required,max=255"`
	Reason     string `json:"reason" validate:"max=500"`
}

// ReapproveRequest returns a failed draft to the execution queue
type ReapproveRequest struct {
	ApprovedBy string `json:"approved_by" validate:"required,max=255"`
}
