package handler

import (
	"database/sql"
	"database/sql/driver"
	stdErrors "errors"

	"github.com/johnquangdev/meeting-scheduler/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
)

// mapError translates use case and domain errors into AppErrors. id is the
// path resource the request addressed and ends up in the error details.
func mapError(err error, id string) error {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stdErrors.Is(err, usecaseErrors.ErrRequestNotFound):
		return errors.ErrRequestNotFound(id)
	case stdErrors.Is(err, usecaseErrors.ErrThreadClaimed):
		return errors.ErrRequestThreadClaimed(id)
	case stdErrors.Is(err, entities.ErrRequestTerminal):
		return errors.ErrRequestTerminal("terminal")
	case stdErrors.Is(err, entities.ErrInvalidTransition),
		stdErrors.Is(err, entities.ErrRequestPaused),
		stdErrors.Is(err, entities.ErrConfirmedTimeState),
		stdErrors.Is(err, usecaseErrors.ErrRequestNotPaused),
		stdErrors.Is(err, usecaseErrors.ErrRequestNotNoShow),
		stdErrors.Is(err, usecaseErrors.ErrNoConfirmedMeeting),
		stdErrors.Is(err, usecaseErrors.ErrNoPrimaryContact),
		stdErrors.Is(err, usecaseErrors.ErrNoProposedTimes):
		return errors.ErrRequestInvalidState(err.Error())

	case stdErrors.Is(err, usecaseErrors.ErrDraftNotFound):
		return errors.ErrDraftNotFound(id)
	case stdErrors.Is(err, entities.ErrDraftExpired):
		return errors.ErrDraftExpired(id)
	case stdErrors.Is(err, entities.ErrDraftRetriesExhausted):
		return errors.ErrDraftRetryLimit(id)
	case stdErrors.Is(err, entities.ErrDraftNotPending),
		stdErrors.Is(err, entities.ErrDraftNotApproved),
		stdErrors.Is(err, entities.ErrDraftNotFailed):
		return errors.ErrDraftInvalidState(err.Error())
	case stdErrors.Is(err, usecaseErrors.ErrSendFailed):
		return errors.ErrExternalAPIFailed("provider", err)

	case stdErrors.Is(err, usecaseErrors.ErrWorkItemNotFound):
		return errors.ErrWorkItemNotFound(id)
	case stdErrors.Is(err, usecaseErrors.ErrWorkItemResolved):
		return errors.ErrWorkItemResolved(id)

	case stdErrors.Is(err, usecaseErrors.ErrMessageNotFound):
		return errors.ErrNotFound("Inbound message")
	case stdErrors.Is(err, usecaseErrors.ErrDuplicateMessage):
		return errors.ErrAlreadyExists("Message")

	case stdErrors.Is(err, usecaseErrors.ErrJobNotFound):
		return errors.ErrJobNotFound(id)
	case stdErrors.Is(err, usecaseErrors.ErrJobAlreadyRunning):
		return errors.ErrJobAlreadyRunning(id)

	case stdErrors.Is(err, usecaseErrors.ErrLockUnavailable):
		return errors.ErrCacheFailed("job lock", err)

	case stdErrors.Is(err, driver.ErrBadConn), stdErrors.Is(err, sql.ErrConnDone):
		return errors.ErrDBConnectionFailed(err)

	case usecaseErrors.IsConcurrencyConflict(err):
		return errors.ErrConflict("resource changed concurrently, retry")

	case stdErrors.Is(err, usecaseErrors.ErrInvalidInput),
		stdErrors.Is(err, usecaseErrors.ErrNotLinkSuggestion),
		stdErrors.Is(err, entities.ErrInvalidMeetingType),
		stdErrors.Is(err, entities.ErrInvalidDuration),
		stdErrors.Is(err, entities.ErrInvalidTimezone),
		stdErrors.Is(err, entities.ErrInvalidDateRange),
		stdErrors.Is(err, entities.ErrMultiplePrimaryContact),
		stdErrors.Is(err, entities.ErrInvalidDraftType),
		stdErrors.Is(err, entities.ErrInvalidStatus),
		stdErrors.Is(err, entities.ErrMissingIdempotencyKey):
		return errors.ErrInvalidArgument(err.Error())
	}

	return errors.ErrInternal(err)
}
