package response

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/escalation"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/intent"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/timeparser"
)

const (
	displayLayout = "Mon Jan 2, 3:04 PM MST"

	// longest meeting a request may hold, used to widen the collision window
	maxMeetingLength = 480 * time.Minute

	excerptLength = 200
)

// ResponseService classifies replies and turns them into drafts, transitions or escalations
type ResponseService struct {
	requests     repositories.SchedulingRequestRepository
	actions      repositories.ActionRepository
	inbound      repositories.InboundRepository
	patterns     repositories.PatternRepository
	detector     *intent.Detector
	parser       *timeparser.Parser
	transitioner *scheduling.Transitioner
	drafter      Drafter
	escalator    Escalator
	linker       Linker
	ooo          OutOfOfficeHandler
	logger       *zap.Logger
	now          func() time.Time
}

// NewResponseService creates a new response processor. linker and ooo may be nil.
func NewResponseService(
	requests repositories.SchedulingRequestRepository,
	actions repositories.ActionRepository,
	inbound repositories.InboundRepository,
	patterns repositories.PatternRepository,
	detector *intent.Detector,
	parser *timeparser.Parser,
	transitioner *scheduling.Transitioner,
	drafter Drafter,
	escalator Escalator,
	linker Linker,
	ooo OutOfOfficeHandler,
	logger *zap.Logger,
) *ResponseService {
	return &ResponseService{
		requests:     requests,
		actions:      actions,
		inbound:      inbound,
		patterns:     patterns,
		detector:     detector,
		parser:       parser,
		transitioner: transitioner,
		drafter:      drafter,
		escalator:    escalator,
		linker:       linker,
		ooo:          ooo,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Receive stores a provider reply. The request is found by thread id, then by
// the message it replies to.
func (s *ResponseService) Receive(ctx context.Context, input ReceiveInput) (*entities.InboundMessage, error) {
	if input.UserID == uuid.Nil || input.ProviderMessageID == "" || input.FromEmail == "" {
		return nil, fmt.Errorf("%w: user_id, provider_message_id and from_email are required", usecaseErrors.ErrInvalidInput)
	}

	receivedAt := input.ReceivedAt.UTC()
	if input.ReceivedAt.IsZero() {
		receivedAt = s.now()
	}
	participants := make([]string, 0, len(input.Participants))
	for _, p := range input.Participants {
		participants = append(participants, strings.ToLower(strings.TrimSpace(p)))
	}
	msg := &entities.InboundMessage{
		ID:                uuid.New(),
		ProviderMessageID: input.ProviderMessageID,
		ThreadID:          input.ThreadID,
		InReplyTo:         input.InReplyTo,
		UserID:            input.UserID,
		FromEmail:         strings.ToLower(strings.TrimSpace(input.FromEmail)),
		FromName:          input.FromName,
		Participants:      participants,
		Subject:           input.Subject,
		Body:              input.Body,
		ReceivedAt:        receivedAt,
		CreatedAt:         s.now(),
	}

	req, err := s.findRequest(ctx, msg)
	if err != nil {
		return nil, err
	}
	if req != nil {
		msg.SchedulingRequestID = &req.ID
	}

	if err := s.inbound.Create(ctx, msg); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, usecaseErrors.ErrDuplicateMessage
		}
		return nil, fmt.Errorf("failed to store inbound message: %w", err)
	}

	s.logger.Info("📥 Reply received",
		zap.String("message_id", msg.ID.String()),
		zap.String("provider_message_id", msg.ProviderMessageID),
		zap.Bool("matched", req != nil),
	)
	return msg, nil
}

// Process runs the automation for one stored reply
func (s *ResponseService) Process(ctx context.Context, msgID uuid.UUID) (*Outcome, error) {
	msg, err := s.inbound.FindByID(ctx, msgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inbound message: %w", err)
	}
	if msg == nil {
		return nil, usecaseErrors.ErrMessageNotFound
	}
	return s.process(ctx, msg)
}

// ProcessPending handles a batch of unprocessed replies. A failed message
// stays unprocessed and is retried on the next run.
func (s *ResponseService) ProcessPending(ctx context.Context, limit int) (BatchResult, error) {
	var res BatchResult
	msgs, err := s.inbound.ListUnprocessed(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("failed to list inbound messages: %w", err)
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		out, err := s.process(ctx, msg)
		if err != nil {
			if usecaseErrors.IsConcurrencyConflict(err) {
				res.Skipped++
				continue
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", msg.ID, err))
			s.logger.Error("❌ Failed to process reply", zap.String("message_id", msg.ID.String()), zap.Error(err))
			continue
		}
		switch out.Result {
		case ResultSkipped:
			res.Skipped++
			continue
		case ResultEscalated:
			res.Escalated++
		case ResultDraftQueued:
			res.Drafted++
		}
		res.Processed++
	}
	return res, ctx.Err()
}

func (s *ResponseService) process(ctx context.Context, msg *entities.InboundMessage) (*Outcome, error) {
	out := &Outcome{MessageID: msg.ID}
	if msg.IsProcessed() {
		out.Result, out.Reason = ResultSkipped, "already processed"
		return out, nil
	}

	req, err := s.findRequest(ctx, msg)
	if err != nil {
		return nil, err
	}
	if req == nil {
		out.Result, out.Reason = ResultSkipped, usecaseErrors.ErrNoMatchingThread.Error()
		return out, s.finish(ctx, msg, out.Reason)
	}
	msg.SchedulingRequestID = &req.ID
	out.RequestID = &req.ID
	if req.IsTerminal() {
		out.Result, out.Reason = ResultSkipped, "request is "+string(req.Status)
		return out, s.finish(ctx, msg, out.Reason)
	}

	if s.linker != nil {
		if _, err := s.linker.Link(ctx, req, msg); err != nil {
			s.logger.Warn("⚠️ Entity linking failed", zap.String("request_id", req.ID.String()), zap.Error(err))
		}
	}

	body := intent.StripQuoted(msg.Body)
	res := s.detector.DetectIntent(ctx, body, req.ProposedTimes)
	out.Intent = string(res.Intent)

	// a retried message was already counted
	history, err := s.actions.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list request actions: %w", err)
	}
	if !recordedMessage(history, msg.ID) {
		if err := s.appendInbound(ctx, req, msg, res); err != nil {
			return nil, err
		}
		s.recordLatency(ctx, req, msg, !hasInbound(history))
	}

	if s.ooo != nil && s.nothingToSchedule(ctx, req, msg, body, res) {
		handled, err := s.ooo.HandleOutOfOffice(ctx, req, msg)
		if err != nil {
			return nil, fmt.Errorf("failed to check out-of-office: %w", err)
		}
		if handled {
			out.Result, out.Reason = ResultOutOfOffice, "auto-reply"
			return out, s.finish(ctx, msg, "")
		}
	}

	if err := s.route(ctx, req, msg, body, res, out); err != nil {
		return nil, err
	}

	s.logger.Info("📨 Reply processed",
		zap.String("request_id", req.ID.String()),
		zap.String("intent", string(res.Intent)),
		zap.String("confidence", string(res.Confidence)),
		zap.String("result", string(out.Result)),
	)
	return out, s.finish(ctx, msg, "")
}

// route dispatches on intent and the request's state
func (s *ResponseService) route(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, body string, res intent.Result, out *Outcome) error {
	if req.Status == entities.StatusPaused {
		out.Result, out.Reason = ResultRecorded, "request is paused for review"
		return nil
	}

	switch {
	case res.IsConfused:
		return s.escalate(ctx, req, msg, escalation.ReasonConfused, out, map[string]string{"confusion": res.ConfusionReason})
	case res.IsDelegating || res.Intent == intent.IntentDelegate:
		return s.escalate(ctx, req, msg, escalation.ReasonDelegation, out, map[string]string{"delegate_to": res.DelegateTo})
	case res.Confidence == entities.ConfidenceLow && res.Intent != intent.IntentUnclear:
		return s.escalate(ctx, req, msg, escalation.ReasonLowConfidence, out, map[string]string{"intent": string(res.Intent)})
	}

	switch res.Intent {
	case intent.IntentAccept:
		switch req.Status {
		case entities.StatusAwaitingResponse, entities.StatusNegotiating:
			return s.accept(ctx, req, msg, body, res, out)
		}
		out.Result, out.Reason = ResultRecorded, "acceptance with no open proposal in "+string(req.Status)
		return nil

	case intent.IntentCounterPropose, intent.IntentReschedule:
		switch req.Status {
		case entities.StatusAwaitingResponse, entities.StatusNegotiating,
			entities.StatusConfirmed, entities.StatusReminderSent:
			return s.counter(ctx, req, msg, body, res, out)
		case entities.StatusConfirming:
			// the booking draft is still waiting for approval
			return s.escalate(ctx, req, msg, escalation.ReasonAmbiguousCounter, out, map[string]string{"reason": "new time while a booking is pending"})
		}
		out.Result, out.Reason = ResultRecorded, "alternative time with no open proposal in "+string(req.Status)
		return nil

	case intent.IntentDecline:
		return s.decline(ctx, req, msg, body, out)

	case intent.IntentQuestion:
		d, err := s.drafter.QueueResponse(ctx, req, msg, res.Question, res.Confidence)
		if err != nil {
			return fmt.Errorf("failed to queue response draft: %w", err)
		}
		out.Result, out.DraftID = ResultDraftQueued, &d.ID
		return nil
	}

	return s.escalate(ctx, req, msg, escalation.ReasonUnclearIntent, out, map[string]string{"reasoning": res.Reasoning})
}

func (s *ResponseService) accept(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, body string, res intent.Result, out *Outcome) error {
	now := s.now()
	pctx := s.parseContext(req, msg, body)

	var (
		start     time.Time
		conf      entities.ConfidenceTier
		reasoning string
	)
	m := s.parser.MatchToProposedTime(ctx, body, pctx)
	if m.Matched && m.Confidence.AtLeast(entities.ConfidenceMedium) && m.Proposed.Instant.After(now) {
		start, conf, reasoning = m.Proposed.Instant, m.Confidence, m.Reasoning
	} else {
		pt, why, ok := s.singleTime(ctx, body, pctx, now)
		if !ok {
			return s.escalate(ctx, req, msg, escalation.ReasonAcceptTimeUnclear, out, map[string]string{
				"match":   m.Reasoning,
				"extract": why,
			})
		}
		start, conf, reasoning = *pt.Instant, pt.Confidence, pt.Reasoning
	}
	conf = entities.Lower(conf, res.Confidence)

	other, err := s.collision(ctx, req, start)
	if err != nil {
		return err
	}
	if other != nil {
		return s.escalate(ctx, req, msg, escalation.ReasonBookingConflict, out, map[string]string{
			"start":                  start.Format(time.RFC3339),
			"conflicting_request_id": other.ID.String(),
		})
	}

	reasoning = fmt.Sprintf("accepted %s: %s", start.In(req.Location()).Format(displayLayout), reasoning)
	d, err := s.drafter.QueueBooking(ctx, req, msg, start, conf, reasoning)
	if err != nil {
		return fmt.Errorf("failed to queue booking draft: %w", err)
	}
	if err := s.transitioner.Apply(ctx, req, entities.StatusConfirming, scheduling.Change{
		Reasoning: reasoning,
		DraftID:   &d.ID,
	}); err != nil {
		return err
	}
	out.Result, out.DraftID = ResultDraftQueued, &d.ID
	return nil
}

// singleTime extracts exactly one usable time from text
func (s *ResponseService) singleTime(ctx context.Context, body string, pctx timeparser.Context, now time.Time) (timeparser.ParsedTime, string, bool) {
	var found []timeparser.ParsedTime
	for _, pt := range s.parser.ExtractTimesFromText(ctx, body, pctx) {
		if !pt.Success || pt.Instant == nil || pt.DateOnly || !pt.Confidence.AtLeast(entities.ConfidenceMedium) {
			continue
		}
		if v := s.parser.ValidateParsedTime(pt, now); !v.Valid {
			continue
		}
		dup := false
		for _, f := range found {
			if f.Instant.Equal(*pt.Instant) {
				dup = true
			}
		}
		if !dup {
			found = append(found, pt)
		}
	}
	switch len(found) {
	case 0:
		return timeparser.ParsedTime{}, "no confident time in reply", false
	case 1:
		return found[0], "", true
	}
	return timeparser.ParsedTime{}, fmt.Sprintf("%d different times in reply", len(found)), false
}

func (s *ResponseService) counter(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, body string, res intent.Result, out *Outcome) error {
	now := s.now()
	pctx := s.parseContext(req, msg, body)

	var instants []time.Time
	conf := res.Confidence
	for _, pt := range s.parser.ExtractTimesFromText(ctx, body, pctx) {
		problem := ""
		switch {
		case !pt.Success || pt.Instant == nil:
			problem = strings.Join(pt.Errors, "; ")
		case pt.Confidence == entities.ConfidenceLow || pt.DateOnly:
			problem = pt.Reasoning
		default:
			if v := s.parser.ValidateParsedTime(pt, now); !v.Valid {
				problem = strings.Join(v.Errors, "; ")
			}
		}
		if problem != "" {
			return s.escalate(ctx, req, msg, escalation.ReasonAmbiguousCounter, out, map[string]string{
				"time":   pt.Raw,
				"reason": problem,
			})
		}
		if !containsInstant(instants, *pt.Instant) {
			instants = append(instants, pt.Instant.UTC())
		}
		conf = entities.Lower(conf, pt.Confidence)
	}
	if len(instants) == 0 {
		return s.escalate(ctx, req, msg, escalation.ReasonAmbiguousCounter, out, map[string]string{"reason": "no time in reply"})
	}

	d, err := s.drafter.QueueAvailabilityCheck(ctx, req, msg, instants, conf)
	if err != nil {
		return fmt.Errorf("failed to queue availability draft: %w", err)
	}

	loc := req.Location()
	change := scheduling.Change{
		Reasoning: fmt.Sprintf("counter-proposal with %d time(s) from %s", len(instants), msg.FromEmail),
		DraftID:   &d.ID,
		Mutate: func(r *entities.SchedulingRequest) {
			times := append([]entities.ProposedTime(nil), r.ProposedTimes...)
			for _, t := range instants {
				if !r.HasProposedTime(t) {
					times = append(times, entities.ProposedTime{
						Instant: t,
						Display: t.In(loc).Format(displayLayout),
						Source:  entities.TimeSourceCounterProposal,
					})
				}
			}
			r.ProposedTimes = times
		},
	}
	if req.Status == entities.StatusNegotiating {
		err = s.transitioner.Update(ctx, req, change)
	} else {
		err = s.transitioner.Apply(ctx, req, entities.StatusNegotiating, change)
	}
	if err != nil {
		return err
	}
	out.Result, out.DraftID = ResultDraftQueued, &d.ID
	return nil
}

func (s *ResponseService) decline(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, body string, out *Outcome) error {
	if intent.IsSalvageableDecline(body) {
		return s.escalate(ctx, req, msg, escalation.ReasonDeclinedNotNow, out, nil)
	}
	if err := s.transitioner.Apply(ctx, req, entities.StatusCancelled, scheduling.Change{
		Reasoning: "contact declined: " + excerpt(body),
	}); err != nil {
		return err
	}
	out.Result = ResultCancelled
	return nil
}

func (s *ResponseService) escalate(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, reason string, out *Outcome, details map[string]string) error {
	d := map[string]string{
		"message_id": msg.ID.String(),
		"from":       msg.FromEmail,
		"excerpt":    excerpt(intent.StripQuoted(msg.Body)),
	}
	for k, v := range details {
		if v != "" {
			d[k] = v
		}
	}
	if err := s.escalator.EscalateToHumanReview(ctx, req, reason, d); err != nil {
		return fmt.Errorf("failed to escalate: %w", err)
	}
	out.Result, out.Reason = ResultEscalated, reason
	return nil
}

// collision returns another confirmed request of the same user overlapping start
func (s *ResponseService) collision(ctx context.Context, req *entities.SchedulingRequest, start time.Time) (*entities.SchedulingRequest, error) {
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	others, err := s.requests.FindConfirmedForUser(ctx, req.UserID, start.Add(-maxMeetingLength), end)
	if err != nil {
		return nil, fmt.Errorf("failed to check calendar collisions: %w", err)
	}
	for _, o := range others {
		if o.ID == req.ID || o.ConfirmedTime == nil {
			continue
		}
		oEnd := o.ConfirmedTime.Add(time.Duration(o.DurationMinutes) * time.Minute)
		if o.ConfirmedTime.Before(end) && oEnd.After(start) {
			return o, nil
		}
	}
	return nil, nil
}

func (s *ResponseService) findRequest(ctx context.Context, msg *entities.InboundMessage) (*entities.SchedulingRequest, error) {
	if msg.SchedulingRequestID != nil {
		req, err := s.requests.FindByID(ctx, *msg.SchedulingRequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scheduling request: %w", err)
		}
		return req, nil
	}
	for _, key := range []string{msg.ThreadID, msg.InReplyTo} {
		if key == "" {
			continue
		}
		req, err := s.requests.FindByThread(ctx, msg.UserID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to find request by thread: %w", err)
		}
		if req != nil {
			return req, nil
		}
	}
	return nil, nil
}

func (s *ResponseService) parseContext(req *entities.SchedulingRequest, msg *entities.InboundMessage, body string) timeparser.Context {
	return timeparser.Context{
		Timezone:         req.Timezone,
		ReferenceInstant: msg.ReceivedAt,
		EmailBodyExcerpt: excerpt(body),
		ProposedTimes:    req.ProposedTimes,
	}
}

// nothingToSchedule reports whether a reply carries no intent and no clock
// time. Only such replies may be treated as out-of-office notices.
func (s *ResponseService) nothingToSchedule(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, body string, res intent.Result) bool {
	if res.Intent != intent.IntentUnclear || res.IsConfused || res.IsDelegating {
		return false
	}
	for _, pt := range s.parser.ExtractTimesFromText(ctx, body, s.parseContext(req, msg, body)) {
		if pt.Success && !pt.DateOnly {
			return false
		}
	}
	return true
}

// recordLatency feeds the reply delay into the contact's response profile.
// firstReply counts a new thread for the contact.
func (s *ResponseService) recordLatency(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, firstReply bool) {
	if s.patterns == nil || req.LastOutboundAt == nil || !msg.ReceivedAt.After(*req.LastOutboundAt) {
		return
	}
	p, err := s.patterns.FindByEmail(ctx, msg.FromEmail)
	if err != nil {
		s.logger.Warn("⚠️ Failed to load contact pattern", zap.String("email", msg.FromEmail), zap.Error(err))
		return
	}
	if p == nil {
		p = &entities.ContactEmailPattern{ContactEmail: msg.FromEmail}
	}

	if firstReply {
		p.ThreadCount++
	}
	p.RecordReply(msg.ReceivedAt.Sub(*req.LastOutboundAt), msg.ReceivedAt.In(req.Location()))
	p.UpdatedAt = s.now()
	if err := s.patterns.Upsert(ctx, p); err != nil {
		s.logger.Warn("⚠️ Failed to save contact pattern", zap.String("email", msg.FromEmail), zap.Error(err))
	}
}

func (s *ResponseService) appendInbound(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage, res intent.Result) error {
	reasoning := fmt.Sprintf("reply from %s classified %s (%s, %s): %s",
		msg.FromEmail, res.Intent, res.Confidence, res.Source, res.Reasoning)
	if res.DelegateTo != "" {
		reasoning += "; delegate_to=" + res.DelegateTo
	}
	action := entities.NewAction(req.ID, entities.ActionInboundProcessed, entities.ActorAutomation, reasoning)
	action.MessageSubject = msg.Subject
	msgID := msg.ID
	action.MessageID = &msgID
	if err := s.actions.Append(ctx, action); err != nil {
		return fmt.Errorf("failed to append inbound action: %w", err)
	}
	return nil
}

func (s *ResponseService) finish(ctx context.Context, msg *entities.InboundMessage, processingError string) error {
	now := s.now()
	msg.ProcessedAt = &now
	msg.ProcessingError = processingError
	if err := s.inbound.MarkProcessed(ctx, msg); err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

func hasInbound(actions []*entities.SchedulingAction) bool {
	for _, a := range actions {
		if a.ActionType == entities.ActionInboundProcessed {
			return true
		}
	}
	return false
}

func recordedMessage(actions []*entities.SchedulingAction, msgID uuid.UUID) bool {
	for _, a := range actions {
		if a.ActionType == entities.ActionInboundProcessed && a.MessageID != nil && *a.MessageID == msgID {
			return true
		}
	}
	return false
}

func containsInstant(times []time.Time, t time.Time) bool {
	for _, x := range times {
		if x.Equal(t) {
			return true
		}
	}
	return false
}

// excerpt collapses whitespace and cuts s to excerptLength runes
func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= excerptLength {
		return s
	}
	return string([]rune(s)[:excerptLength]) + "..."
}
