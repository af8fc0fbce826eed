package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
)

// compose renders an email draft addressed to the request's primary contact
func (s *DraftService) compose(req *entities.SchedulingRequest, typ entities.DraftType, data TemplateData) (entities.DraftPayload, error) {
	contact := req.PrimaryContact()
	if contact == nil {
		return entities.DraftPayload{}, usecaseErrors.ErrNoPrimaryContact
	}
	data.ContactName = contact.Name
	if org := req.Organizer(); org != nil {
		data.SenderName = org.Name
	}
	data.Title = req.Title
	data.MeetingType = string(req.MeetingType)
	data.Duration = req.DurationMinutes

	subject, body, err := s.templates.Render(typ, data)
	if err != nil {
		return entities.DraftPayload{}, err
	}

	p := entities.DraftPayload{
		To:      []string{contact.Email},
		Subject: subject,
		Body:    body,
	}
	for _, a := range req.Attendees {
		if a.Side == entities.AttendeeSideExternal && a.Email != contact.Email {
			p.Cc = append(p.Cc, a.Email)
		}
	}
	if req.ExternalThreadID != nil {
		p.ThreadID = *req.ExternalThreadID
	}
	if req.LastOutboundMessageID != nil {
		p.ReplyToMessageID = *req.LastOutboundMessageID
	}
	return p, nil
}

func displays(req *entities.SchedulingRequest, times []time.Time) []string {
	loc := req.Location()
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.In(loc).Format(displayLayout)
	}
	return out
}

func upcoming(req *entities.SchedulingRequest, now time.Time) []time.Time {
	var out []time.Time
	for _, p := range req.ProposedTimes {
		if p.Instant.After(now) {
			out = append(out, p.Instant)
		}
	}
	return out
}

// replyTo threads a draft under the inbound message it answers
func replyTo(p *entities.DraftPayload, msg *entities.InboundMessage) {
	if msg == nil {
		return
	}
	p.ReplyToMessageID = msg.ProviderMessageID
	if msg.ThreadID != "" {
		p.ThreadID = msg.ThreadID
	}
}

// QueueProposal queues an email_proposal offering req.ProposedTimes
func (s *DraftService) QueueProposal(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error) {
	attempt := req.AttemptCount + 1
	var instants []time.Time
	for _, pt := range req.ProposedTimes {
		instants = append(instants, pt.Instant)
	}
	p, err := s.compose(req, entities.DraftTypeEmailProposal, TemplateData{
		Times:   displays(req, instants),
		Attempt: attempt,
	})
	if err != nil {
		return nil, err
	}
	p.ProposedInstants = instants
	return s.Create(ctx, CreateInput{
		RequestID:      req.ID,
		Type:           entities.DraftTypeEmailProposal,
		Payload:        p,
		Confidence:     entities.ConfidenceHigh,
		Reasoning:      fmt.Sprintf("proposal attempt %d offering %d time(s)", attempt, len(instants)),
		IdempotencyKey: fmt.Sprintf("proposal:%s:%d", req.ID, attempt),
	})
}

// QueueFollowUp queues a follow-up for an overdue request, keyed by attempt
func (s *DraftService) QueueFollowUp(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error) {
	times := upcoming(req, s.now())
	p, err := s.compose(req, entities.DraftTypeEmailFollowUp, TemplateData{
		Times:   displays(req, times),
		Attempt: req.AttemptCount,
	})
	if err != nil {
		return nil, err
	}
	p.ProposedInstants = times
	return s.Create(ctx, CreateInput{
		RequestID:      req.ID,
		Type:           entities.DraftTypeEmailFollowUp,
		Payload:        p,
		Confidence:     entities.ConfidenceHigh,
		Reasoning:      fmt.Sprintf("no reply since %s; follow-up after attempt %d", formatSince(req), req.AttemptCount),
		IdempotencyKey: fmt.Sprintf("followup:%s:%d", req.ID, req.AttemptCount),
	})
}

// QueueReminder queues the single reminder for a confirmed meeting. A
// rescheduled meeting gets its own reminder.
func (s *DraftService) QueueReminder(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error) {
	if req.ConfirmedTime == nil {
		return nil, usecaseErrors.ErrNoConfirmedMeeting
	}
	data := TemplateData{Confirmed: req.ConfirmedTime.In(req.Location()).Format(displayLayout)}
	if req.MeetingLink != nil {
		data.MeetingLink = *req.MeetingLink
	}
	p, err := s.compose(req, entities.DraftTypeEmailReminder, data)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateInput{
		RequestID:      req.ID,
		Type:           entities.DraftTypeEmailReminder,
		Payload:        p,
		Confidence:     entities.ConfidenceHigh,
		Reasoning:      "meeting starts within the reminder window",
		IdempotencyKey: fmt.Sprintf("reminder:%s:%d", req.ID, req.ConfirmedTime.Unix()),
	})
}

// QueueResponse queues a reply to a question, for a human to complete
func (s *DraftService) QueueResponse(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, question string, confidence entities.ConfidenceTier) (*entities.Draft, error) {
	times := upcoming(req, s.now())
	p, err := s.compose(req, entities.DraftTypeEmailResponse, TemplateData{
		Times:    displays(req, times),
		Question: question,
	})
	if err != nil {
		return nil, err
	}
	replyTo(&p, msg)
	return s.Create(ctx, CreateInput{
		RequestID:      req.ID,
		Type:           entities.DraftTypeEmailResponse,
		Payload:        p,
		Confidence:     confidence,
		Reasoning:      "reply to question: " + question,
		IdempotencyKey: "response:" + msg.ProviderMessageID,
	})
}

// QueueAvailabilityCheck queues a confirmation of counter-proposed times
func (s *DraftService) QueueAvailabilityCheck(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, times []time.Time, confidence entities.ConfidenceTier) (*entities.Draft, error) {
	p, err := s.compose(req, entities.DraftTypeAvailabilityCheck, TemplateData{Times: displays(req, times)})
	if err != nil {
		return nil, err
	}
	replyTo(&p, msg)
	p.ProposedInstants = times
	return s.Create(ctx, CreateInput{
		RequestID:      req.ID,
		Type:           entities.DraftTypeAvailabilityCheck,
		Payload:        p,
		Confidence:     confidence,
		Reasoning:      fmt.Sprintf("counter-proposal with %d time(s)", len(times)),
		IdempotencyKey: "availability:" + msg.ProviderMessageID,
	})
}

// QueueBooking queues a calendar booking for an accepted time
func (s *DraftService) QueueBooking(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, start time.Time, confidence entities.ConfidenceTier, reasoning string) (*entities.Draft, error) {
	start = start.UTC()
	p := entities.DraftPayload{
		Subject:         req.Title,
		BookingStart:    &start,
		BookingDuration: req.DurationMinutes,
		BookingTitle:    req.Title,
	}
	for _, a := range req.Attendees {
		p.BookingAttendees = append(p.BookingAttendees, a.Email)
	}
	replyTo(&p, msg)
	// a rescheduled meeting moves the existing event
	typ := entities.DraftTypeCalendarBook
	if req.CalendarEventID != nil {
		typ = entities.DraftTypeCalendarUpdate
	}
	return s.Create(ctx, CreateInput{
		RequestID:      req.ID,
		Type:           typ,
		Payload:        p,
		Confidence:     confidence,
		Reasoning:      reasoning,
		IdempotencyKey: fmt.Sprintf("booking:%s:%d", req.ID, start.Unix()),
	})
}

func formatSince(req *entities.SchedulingRequest) string {
	if req.AwaitingSince == nil {
		return "the last message"
	}
	return req.AwaitingSince.In(req.Location()).Format(displayLayout)
}
