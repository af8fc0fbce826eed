package entities

// RequestStatus is the closed set of SchedulingRequest states
type RequestStatus string

const (
	StatusInitiated        RequestStatus = "initiated"
	StatusProposing        RequestStatus = "proposing"
	StatusAwaitingResponse RequestStatus = "awaiting_response"
	StatusNegotiating      RequestStatus = "negotiating"
	StatusConfirming       RequestStatus = "confirming"
	StatusConfirmed        RequestStatus = "confirmed"
	StatusReminderSent     RequestStatus = "reminder_sent"
	StatusCompleted        RequestStatus = "completed"
	StatusNoShow           RequestStatus = "no_show"
	StatusPaused           RequestStatus = "paused"
	StatusCancelled        RequestStatus = "cancelled"
)

// AllStatuses lists every state in lifecycle order
var AllStatuses = []RequestStatus{
	StatusInitiated,
	StatusProposing,
	StatusAwaitingResponse,
	StatusNegotiating,
	StatusConfirming,
	StatusConfirmed,
	StatusReminderSent,
	StatusCompleted,
	StatusNoShow,
	StatusPaused,
	StatusCancelled,
}

// transitions is the explicit table of allowed moves. paused and cancelled are
// added for every non-terminal state in init.
var transitions = map[RequestStatus][]RequestStatus{
	StatusInitiated:        {StatusProposing},
	StatusProposing:        {StatusAwaitingResponse},
	StatusAwaitingResponse: {StatusNegotiating, StatusConfirming},
	StatusNegotiating:      {StatusAwaitingResponse, StatusConfirming},
	StatusConfirming:       {StatusConfirmed, StatusNegotiating},
	StatusConfirmed:        {StatusReminderSent, StatusCompleted, StatusNoShow, StatusNegotiating},
	StatusReminderSent:     {StatusCompleted, StatusNoShow, StatusNegotiating},
	StatusNoShow:           {StatusProposing},
	// resume targets are validated separately against the status stored at pause time
	StatusPaused: {},
}

func init() {
	for from := range transitions {
		if from == StatusPaused {
			transitions[from] = append(transitions[from], StatusCancelled)
			continue
		}
		transitions[from] = append(transitions[from], StatusPaused, StatusCancelled)
	}
}

// IsValid reports whether s is a known status
func (s RequestStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further actions
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// HasConfirmedTime reports whether a request in this status must carry a confirmed time
func (s RequestStatus) HasConfirmedTime() bool {
	return s == StatusConfirmed || s == StatusReminderSent || s == StatusCompleted
}

// CanTransition checks the transition table. Resuming from paused is checked by CanResume.
func CanTransition(from, to RequestStatus) error {
	if from.IsTerminal() {
		return ErrRequestTerminal
	}
	if !to.IsValid() {
		return ErrInvalidStatus
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// CanResume checks a paused request may return to the status it held before pausing
func CanResume(resumeTo RequestStatus) error {
	if resumeTo == "" || resumeTo == StatusPaused || resumeTo.IsTerminal() || !resumeTo.IsValid() {
		return ErrInvalidTransition
	}
	return nil
}

// AllowedTransitions returns a copy of the allowed targets for a status
func AllowedTransitions(from RequestStatus) []RequestStatus {
	out := make([]RequestStatus, len(transitions[from]))
	copy(out, transitions[from])
	return out
}
