package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// DueCalculator computes the SLA due date for a request entering awaiting_response
type DueCalculator interface {
	DueAt(ctx context.Context, req *entities.SchedulingRequest, since time.Time) (time.Time, error)
}

// Change describes who moved a request and what else changed with it
type Change struct {
	Actor         entities.Actor
	Reasoning     string
	ConfirmedTime *time.Time

	// ActionType overrides the audit entry type (default: transition)
	ActionType     entities.ActionType
	MessageSubject string
	BodyRef        string
	DraftID        *uuid.UUID

	// Mutate applies extra field updates in the same conditional write
	Mutate func(req *entities.SchedulingRequest)
}

// Transitioner applies state machine moves with a conditional update and an audit row
type Transitioner struct {
	requests  repositories.SchedulingRequestRepository
	actions   repositories.ActionRepository
	due       DueCalculator
	reminders config.ReminderRules
	logger    *zap.Logger
	now       func() time.Time
}

// NewTransitioner creates a transitioner. due may be nil, in which case no SLA is tracked.
func NewTransitioner(
	requests repositories.SchedulingRequestRepository,
	actions repositories.ActionRepository,
	due DueCalculator,
	reminders config.ReminderRules,
	logger *zap.Logger,
) *Transitioner {
	return &Transitioner{
		requests:  requests,
		actions:   actions,
		due:       due,
		reminders: reminders,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply moves req to the target status. The write only succeeds when the
// stored status and version still match req; otherwise ErrConcurrentUpdate is
// returned and req is left untouched. A move whose audit row cannot be written
// is reverted.
func (t *Transitioner) Apply(ctx context.Context, req *entities.SchedulingRequest, to entities.RequestStatus, change Change) error {
	now := t.now()
	from := req.Status
	expectedVersion := req.Version
	previous := *req

	updated := *req
	if err := updated.ApplyTransition(to, change.ConfirmedTime, now); err != nil {
		return err
	}
	if change.Mutate != nil {
		change.Mutate(&updated)
	}
	t.scheduleNext(ctx, &updated, from, now)
	if err := updated.CheckInvariant(); err != nil {
		return err
	}

	if err := t.requests.UpdateIfUnchanged(ctx, &updated, from, expectedVersion); err != nil {
		return err
	}
	*req = updated

	actionType := change.ActionType
	if actionType == "" {
		actionType = entities.ActionTransition
	}
	actor := change.Actor
	if actor == "" {
		actor = entities.ActorAutomation
	}
	action := entities.NewAction(req.ID, actionType, actor, change.Reasoning).WithStatuses(from, to)
	action.MessageSubject = change.MessageSubject
	action.BodyRef = change.BodyRef
	action.DraftID = change.DraftID
	if err := t.audit(ctx, req, previous, action); err != nil {
		return err
	}

	t.logger.Info("🔄 Request transitioned",
		zap.String("request_id", req.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", string(actor)),
	)
	return nil
}

// Update saves field changes without a status move. An audit row is
// appended only when change.ActionType is set.
func (t *Transitioner) Update(ctx context.Context, req *entities.SchedulingRequest, change Change) error {
	previous := *req
	updated := *req
	if change.Mutate != nil {
		change.Mutate(&updated)
	}
	updated.UpdatedAt = t.now()
	if err := t.requests.UpdateIfUnchanged(ctx, &updated, req.Status, req.Version); err != nil {
		return err
	}
	*req = updated

	if change.ActionType == "" {
		return nil
	}
	actor := change.Actor
	if actor == "" {
		actor = entities.ActorAutomation
	}
	action := entities.NewAction(req.ID, change.ActionType, actor, change.Reasoning)
	action.MessageSubject = change.MessageSubject
	action.BodyRef = change.BodyRef
	action.DraftID = change.DraftID
	return t.audit(ctx, req, previous, action)
}

// audit appends the entry for a write that already landed. When the append
// fails the stored request is put back to previous.
func (t *Transitioner) audit(ctx context.Context, req *entities.SchedulingRequest, previous entities.SchedulingRequest, action *entities.SchedulingAction) error {
	err := t.actions.Append(ctx, action)
	if err == nil {
		return nil
	}

	restore := previous
	if rerr := t.requests.UpdateIfUnchanged(ctx, &restore, req.Status, req.Version); rerr != nil {
		t.logger.Error("❌ Failed to revert request without audit entry",
			zap.String("request_id", req.ID.String()),
			zap.String("action", string(action.ActionType)),
			zap.Error(rerr),
		)
		return fmt.Errorf("failed to append action: %w", err)
	}
	*req = restore
	t.logger.Warn("↩️ Request change reverted, audit entry not written",
		zap.String("request_id", req.ID.String()),
		zap.String("action", string(action.ActionType)),
		zap.Error(err),
	)
	return fmt.Errorf("failed to append action: %w", err)
}

// scheduleNext sets the SLA clock and the next expected action for the new status
func (t *Transitioner) scheduleNext(ctx context.Context, req *entities.SchedulingRequest, from entities.RequestStatus, now time.Time) {
	if from == entities.StatusAwaitingResponse && req.Status != entities.StatusAwaitingResponse {
		req.AwaitingSince = nil
		req.SLADueAt = nil
	}

	req.NextActionDue = nil
	switch req.Status {
	case entities.StatusAwaitingResponse:
		since := now
		req.AwaitingSince = &since
		req.NextActionType = entities.NextActionAwaitReply
		if t.due == nil {
			break
		}
		due, err := t.due.DueAt(ctx, req, since)
		if err != nil {
			t.logger.Warn("⚠️ Failed to compute SLA due date",
				zap.String("request_id", req.ID.String()),
				zap.Error(err),
			)
			break
		}
		req.SLADueAt = &due
		req.SLAStatus = entities.SLAStatusOnTrack
		req.NextActionDue = &due
	case entities.StatusProposing, entities.StatusNegotiating, entities.StatusConfirming:
		req.NextActionType = entities.NextActionSendDraft
	case entities.StatusConfirmed:
		req.NextActionType = entities.NextActionReminder
		if req.ConfirmedTime != nil {
			at := req.ConfirmedTime.Add(-time.Duration(t.reminders.WindowHours) * time.Hour)
			req.NextActionDue = &at
		}
	case entities.StatusReminderSent:
		req.NextActionType = entities.NextActionCheckNoShow
		if req.ConfirmedTime != nil {
			at := MeetingEnd(req).Add(time.Duration(t.reminders.NoShowGraceMinutes) * time.Minute)
			req.NextActionDue = &at
		}
	case entities.StatusPaused, entities.StatusNoShow:
		req.NextActionType = entities.NextActionHumanReview
	default:
		req.NextActionType = entities.NextActionNone
	}
}

// MeetingEnd returns when the confirmed meeting finishes
func MeetingEnd(req *entities.SchedulingRequest) time.Time {
	if req.ConfirmedTime == nil {
		return time.Time{}
	}
	return req.ConfirmedTime.Add(time.Duration(req.DurationMinutes) * time.Minute)
}
