package errors

import (
	"errors"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrConflict      = errors.New("resource conflict")
	ErrInternalError = errors.New("internal server error")
)

// Concurrency errors. Callers treat both as a no-op: another worker got there first.
var (
	ErrClaimLost        = repositories.ErrClaimLost
	ErrConcurrentUpdate = repositories.ErrConcurrentUpdate
)

// Scheduling request errors
var (
	ErrRequestNotFound    = errors.New("scheduling request not found")
	ErrRequestNotPaused   = errors.New("scheduling request is not paused")
	ErrRequestNotNoShow   = errors.New("scheduling request is not in no_show")
	ErrNoConfirmedMeeting = errors.New("scheduling request has no confirmed meeting")
	ErrNoPrimaryContact   = errors.New("scheduling request has no external attendee")
	ErrNoProposedTimes    = errors.New("no proposed times to offer")
	ErrThreadClaimed      = errors.New("email thread already belongs to another request")
)

// Draft errors
var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrSendFailed    = errors.New("provider call failed")
)

// Work item errors
var (
	ErrWorkItemNotFound  = errors.New("work item not found")
	ErrWorkItemResolved  = errors.New("work item already resolved")
	ErrNotLinkSuggestion = errors.New("work item is not a link suggestion")
)

// Inbound errors
var (
	ErrMessageNotFound  = errors.New("inbound message not found")
	ErrDuplicateMessage = errors.New("message already received")
	ErrNoMatchingThread = errors.New("message does not belong to a scheduling request")
)

// Job errors
var (
	ErrJobNotFound       = errors.New("job not registered")
	ErrJobAlreadyRunning = errors.New("job is already running")
	ErrLockUnavailable   = errors.New("job lock backend unavailable")
)

// IsConcurrencyConflict reports whether err means another writer won a race
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrClaimLost) || errors.Is(err, ErrConcurrentUpdate)
}
