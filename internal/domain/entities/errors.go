package entities

import "errors"

// Domain errors
var (
	// State machine errors
	ErrInvalidTransition  = errors.New("transition not allowed")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrRequestTerminal    = errors.New("scheduling request is terminal")
	ErrRequestPaused      = errors.New("scheduling request is paused")
	ErrConfirmedTimeState = errors.New("confirmed time does not match status")

	// Request validation errors
	ErrInvalidMeetingType     = errors.New("invalid meeting type")
	ErrInvalidDuration        = errors.New("duration must be between 5 and 480 minutes")
	ErrInvalidTimezone        = errors.New("invalid timezone")
	ErrInvalidDateRange       = errors.New("date range end is before start")
	ErrMultiplePrimaryContact = errors.New("only one external attendee may be the primary contact")

	// Draft errors
	ErrInvalidDraftType      = errors.New("invalid draft type")
	ErrDraftNotPending       = errors.New("draft is not pending")
	ErrDraftNotApproved      = errors.New("draft is not approved")
	ErrDraftNotFailed        = errors.New("draft is not failed")
	ErrDraftRetriesExhausted = errors.New("draft retries exhausted")
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrDraftExpired          = errors.New("draft has expired")
)
