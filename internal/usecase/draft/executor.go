package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
)

const (
	inlineBodyRef   = "inline"
	maxRecordTries  = 3
	automationActor = "automation"
)

// Execute claims an approved draft (approved -> executing) and performs it.
// Losing the claim returns ErrClaimLost; callers treat that as a no-op.
func (s *DraftService) Execute(ctx context.Context, id uuid.UUID) (*entities.Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entities.DraftStatusApproved {
		return nil, entities.ErrDraftNotApproved
	}

	now := s.now()
	d.Status = entities.DraftStatusExecuting
	d.ClaimedAt = &now
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusApproved); err != nil {
		return nil, err
	}

	// the request may have been cancelled since approval
	req, err := s.requests.FindByID(ctx, d.RequestID)
	if err != nil {
		return s.fail(ctx, d, fmt.Errorf("failed to load request: %w", err))
	}
	if req == nil || req.IsTerminal() {
		return s.abandon(ctx, d, req)
	}
	if req.Status == entities.StatusPaused && d.Type.BooksMeeting() {
		return s.hold(ctx, d)
	}

	p := d.Effective()
	var result entities.DraftResult
	switch {
	case d.Type.IsEmail():
		result, err = s.send(ctx, d, req, p)
	case d.Type == entities.DraftTypeCalendarBook:
		result, err = s.book(ctx, req, p)
	case d.Type == entities.DraftTypeCalendarUpdate:
		result, err = s.rebook(ctx, req, p)
	case d.Type == entities.DraftTypeCalendarCancel:
		err = s.cancelEvent(ctx, req)
	default:
		err = entities.ErrInvalidDraftType
	}
	if err != nil {
		return s.fail(ctx, d, err)
	}

	// provider ids go onto the request before anything else
	if err := s.recordOutcome(ctx, d, req, p, result); err != nil {
		s.logger.Error("❌ Failed to record draft outcome on request",
			zap.String("draft_id", d.ID.String()),
			zap.String("request_id", d.RequestID.String()),
			zap.Error(err),
		)
	}

	done := s.now()
	d.Status = entities.DraftStatusExecuted
	d.ExecutedAt = &done
	d.LastError = ""
	if raw, err := json.Marshal(result); err == nil {
		d.Result = datatypes.JSON(raw)
	}
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusExecuting); err != nil {
		return nil, fmt.Errorf("failed to mark draft executed: %w", err)
	}

	s.logger.Info("📤 Draft executed",
		zap.String("draft_id", d.ID.String()),
		zap.String("request_id", d.RequestID.String()),
		zap.String("type", string(d.Type)),
	)
	return d, nil
}

// ExecuteApproved executes a batch of approved drafts, oldest first
func (s *DraftService) ExecuteApproved(ctx context.Context, limit int) (BatchResult, error) {
	var res BatchResult
	approved, err := s.drafts.ListByStatus(ctx, entities.DraftStatusApproved, limit)
	if err != nil {
		return res, fmt.Errorf("failed to list approved drafts: %w", err)
	}
	for _, d := range approved {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		_, err := s.Execute(ctx, d.ID)
		switch {
		case err == nil:
			res.Executed++
		case usecaseErrors.IsConcurrencyConflict(err),
			errors.Is(err, entities.ErrDraftNotApproved),
			errors.Is(err, entities.ErrRequestTerminal),
			errors.Is(err, entities.ErrRequestPaused):
			res.Skipped++
		default:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("draft %s: %v", d.ID, err))
		}
	}
	return res, nil
}

func (s *DraftService) send(ctx context.Context, d *entities.Draft, req *entities.SchedulingRequest, p entities.DraftPayload) (entities.DraftResult, error) {
	if s.mailer == nil {
		return entities.DraftResult{}, errors.New("no mailer configured")
	}
	in := providers.SendInput{
		To:        p.To,
		Cc:        p.Cc,
		Subject:   p.Subject,
		Body:      p.Body,
		ReplyToID: p.ReplyToMessageID,
		ThreadID:  p.ThreadID,
	}
	if org := req.Organizer(); org != nil {
		in.From = org.Email
	}
	sent, err := s.mailer.Send(ctx, in)
	if err != nil {
		return entities.DraftResult{}, err
	}
	result := entities.DraftResult{MessageID: sent.MessageID, ThreadID: sent.ThreadID, BodyRef: inlineBodyRef}

	if s.archive != nil {
		key := fmt.Sprintf("requests/%s/%s.txt", req.ID, d.ID)
		ref, err := s.archive.Put(ctx, key, p.Body)
		if err != nil {
			s.logger.Warn("⚠️ Failed to archive message body",
				zap.String("draft_id", d.ID.String()),
				zap.Error(err),
			)
		} else {
			result.BodyRef = ref
		}
	}
	return result, nil
}

func (s *DraftService) bookInput(req *entities.SchedulingRequest, p entities.DraftPayload) (providers.BookInput, error) {
	if p.BookingStart == nil {
		return providers.BookInput{}, errors.New("booking draft has no start time")
	}
	duration := p.BookingDuration
	if duration == 0 {
		duration = req.DurationMinutes
	}
	title := p.BookingTitle
	if title == "" {
		title = req.Title
	}
	return providers.BookInput{
		Start:           *p.BookingStart,
		DurationMinutes: duration,
		Attendees:       p.BookingAttendees,
		Title:           title,
		Timezone:        req.Timezone,
	}, nil
}

func (s *DraftService) book(ctx context.Context, req *entities.SchedulingRequest, p entities.DraftPayload) (entities.DraftResult, error) {
	if s.calendar == nil {
		return entities.DraftResult{}, errors.New("no calendar configured")
	}
	in, err := s.bookInput(req, p)
	if err != nil {
		return entities.DraftResult{}, err
	}
	booked, err := s.calendar.Book(ctx, in)
	if err != nil {
		return entities.DraftResult{}, err
	}
	return entities.DraftResult{EventID: booked.EventID, MeetingLink: booked.MeetingLink}, nil
}

func (s *DraftService) rebook(ctx context.Context, req *entities.SchedulingRequest, p entities.DraftPayload) (entities.DraftResult, error) {
	if s.calendar == nil {
		return entities.DraftResult{}, errors.New("no calendar configured")
	}
	if req.CalendarEventID == nil {
		return entities.DraftResult{}, providers.ErrEventNotFound
	}
	in, err := s.bookInput(req, p)
	if err != nil {
		return entities.DraftResult{}, err
	}
	booked, err := s.calendar.Update(ctx, *req.CalendarEventID, in)
	if err != nil {
		return entities.DraftResult{}, err
	}
	return entities.DraftResult{EventID: booked.EventID, MeetingLink: booked.MeetingLink}, nil
}

func (s *DraftService) cancelEvent(ctx context.Context, req *entities.SchedulingRequest) error {
	if s.calendar == nil {
		return errors.New("no calendar configured")
	}
	if req.CalendarEventID == nil {
		return nil
	}
	return s.calendar.Cancel(ctx, *req.CalendarEventID)
}

// targetStatus is the request status a successful draft moves to, or "" to stay
func targetStatus(typ entities.DraftType, current entities.RequestStatus) entities.RequestStatus {
	switch {
	case typ == entities.DraftTypeEmailProposal && current == entities.StatusProposing:
		return entities.StatusAwaitingResponse
	case typ == entities.DraftTypeAvailabilityCheck && current == entities.StatusNegotiating:
		return entities.StatusAwaitingResponse
	case typ == entities.DraftTypeEmailReminder && current == entities.StatusConfirmed:
		return entities.StatusReminderSent
	case (typ == entities.DraftTypeCalendarBook || typ == entities.DraftTypeCalendarUpdate) && current == entities.StatusConfirming:
		return entities.StatusConfirmed
	}
	return ""
}

// recordOutcome stores provider ids on the request and applies the status
// move the draft implies. Concurrent writers are retried against a fresh read
// so the thread ids are never dropped.
func (s *DraftService) recordOutcome(ctx context.Context, d *entities.Draft, req *entities.SchedulingRequest, p entities.DraftPayload, result entities.DraftResult) error {
	now := s.now()
	actionType := entities.ActionEmailSent
	if !d.Type.IsEmail() {
		actionType = entities.ActionBooked
	}
	mutate := func(r *entities.SchedulingRequest) {
		if result.MessageID != "" {
			id := result.MessageID
			r.LastOutboundMessageID = &id
			r.LastOutboundAt = &now
			if r.SourceMessageID == nil {
				r.SourceMessageID = &id
			}
		}
		if result.ThreadID != "" && r.ExternalThreadID == nil {
			thread := result.ThreadID
			r.ExternalThreadID = &thread
		}
		switch d.Type {
		case entities.DraftTypeCalendarBook, entities.DraftTypeCalendarUpdate:
			if result.EventID != "" {
				ev := result.EventID
				r.CalendarEventID = &ev
			}
			if result.MeetingLink != "" {
				link := result.MeetingLink
				r.MeetingLink = &link
			}
			if d.Type == entities.DraftTypeCalendarUpdate && p.BookingStart != nil && r.Status.HasConfirmedTime() {
				start := p.BookingStart.UTC()
				r.ConfirmedTime = &start
			}
		case entities.DraftTypeCalendarCancel:
			r.CalendarEventID = nil
			r.MeetingLink = nil
		case entities.DraftTypeEmailFollowUp:
			// a sent follow-up restarts the response window; the SLA sweep sets the new due date
			if r.Status == entities.StatusAwaitingResponse {
				r.AwaitingSince = &now
				r.SLADueAt = nil
				r.SLAStatus = entities.SLAStatusOnTrack
				r.NextActionType = entities.NextActionAwaitReply
				r.NextActionDue = nil
			}
		}
	}
	change := scheduling.Change{
		Actor:          entities.ActorAutomation,
		Reasoning:      fmt.Sprintf("%s executed (approved by %s)", d.Type, d.ApprovedBy),
		ActionType:     actionType,
		MessageSubject: p.Subject,
		BodyRef:        result.BodyRef,
		DraftID:        &d.ID,
		Mutate:         mutate,
	}

	for attempt := 0; ; attempt++ {
		if req.IsTerminal() {
			// sent before the request closed; keep the audit trail only
			action := entities.NewAction(req.ID, actionType, entities.ActorAutomation, change.Reasoning)
			action.MessageSubject = p.Subject
			action.BodyRef = result.BodyRef
			action.DraftID = &d.ID
			return s.actions.Append(ctx, action)
		}

		var err error
		if to := targetStatus(d.Type, req.Status); to != "" {
			c := change
			if to == entities.StatusConfirmed {
				start := p.BookingStart.UTC()
				c.ConfirmedTime = &start
			}
			err = s.transitioner.Apply(ctx, req, to, c)
		} else {
			err = s.transitioner.Update(ctx, req, change)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, usecaseErrors.ErrConcurrentUpdate) || attempt+1 >= maxRecordTries {
			return err
		}
		fresh, ferr := s.requests.FindByID(ctx, req.ID)
		if ferr != nil {
			return ferr
		}
		if fresh == nil {
			return usecaseErrors.ErrRequestNotFound
		}
		req = fresh
	}
}

// fail marks the draft failed and surfaces it for human re-approval
func (s *DraftService) fail(ctx context.Context, d *entities.Draft, cause error) (*entities.Draft, error) {
	d.Status = entities.DraftStatusFailed
	d.RetryCount++
	d.LastError = cause.Error()
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusExecuting); err != nil {
		s.logger.Error("❌ Failed to mark draft failed",
			zap.String("draft_id", d.ID.String()),
			zap.Error(err),
		)
	}
	s.appendDraftAction(ctx, d, entities.ActionDraftFailed, entities.ActorAutomation,
		fmt.Sprintf("%s failed (%d/%d): %v", d.Type, d.RetryCount, d.MaxRetries, cause))

	reqID := d.RequestID
	item := entities.NewWorkItem(entities.WorkItemDraftApproval, &reqID, "execution_failed", map[string]string{
		"error":       cause.Error(),
		"retry_count": strconv.Itoa(d.RetryCount),
		"can_retry":   strconv.FormatBool(d.CanRetry()),
	})
	item.DraftID = &d.ID
	if err := s.sink.Create(ctx, item); err != nil {
		s.logger.Warn("⚠️ Failed to publish failed-draft work item", zap.Error(err))
	}

	s.logger.Error("❌ Draft execution failed",
		zap.String("draft_id", d.ID.String()),
		zap.String("request_id", d.RequestID.String()),
		zap.Int("retry_count", d.RetryCount),
		zap.Error(cause),
	)
	return d, fmt.Errorf("%w: %v", usecaseErrors.ErrSendFailed, cause)
}

// abandon closes a claimed draft whose request is gone or terminal
// hold hands the claim back. The draft stays approved and runs once the
// request is resumed.
func (s *DraftService) hold(ctx context.Context, d *entities.Draft) (*entities.Draft, error) {
	d.Status = entities.DraftStatusApproved
	d.ClaimedAt = nil
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusExecuting); err != nil {
		return nil, err
	}
	s.logger.Info("⏸️ Draft held while request is paused",
		zap.String("draft_id", d.ID.String()),
		zap.String("request_id", d.RequestID.String()),
	)
	return d, entities.ErrRequestPaused
}

func (s *DraftService) abandon(ctx context.Context, d *entities.Draft, req *entities.SchedulingRequest) (*entities.Draft, error) {
	d.Status = entities.DraftStatusRejected
	d.RejectedBy = automationActor
	d.RejectionReason = "request is terminal"
	if req == nil {
		d.RejectionReason = "request not found"
	}
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusExecuting); err != nil {
		return nil, err
	}
	if req != nil {
		s.appendDraftAction(ctx, d, entities.ActionDraftRejected, entities.ActorAutomation,
			fmt.Sprintf("%s not sent: request is %s", d.Type, req.Status))
	}
	s.logger.Warn("⚠️ Draft abandoned",
		zap.String("draft_id", d.ID.String()),
		zap.String("reason", d.RejectionReason),
	)
	return d, entities.ErrRequestTerminal
}
