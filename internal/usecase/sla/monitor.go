package sla

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/escalation"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/timeparser"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

const displayLayout = "Mon Jan 2, 3:04 PM MST"

// Monitor tracks awaiting requests against their response windows
type Monitor struct {
	requests     repositories.SchedulingRequestRepository
	actions      repositories.ActionRepository
	transitioner *scheduling.Transitioner
	drafter      FollowUpDrafter
	escalator    Escalator
	calc         *Calculator
	parser       *timeparser.Parser
	rules        config.SLARules
	logger       *zap.Logger
	now          func() time.Time
}

// NewMonitor creates a new SLA monitor
func NewMonitor(
	requests repositories.SchedulingRequestRepository,
	actions repositories.ActionRepository,
	transitioner *scheduling.Transitioner,
	drafter FollowUpDrafter,
	escalator Escalator,
	calc *Calculator,
	parser *timeparser.Parser,
	rules config.SLARules,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		requests:     requests,
		actions:      actions,
		transitioner: transitioner,
		drafter:      drafter,
		escalator:    escalator,
		calc:         calc,
		parser:       parser,
		rules:        rules,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type sweepOutcome int

const (
	outcomeUnchanged sweepOutcome = iota
	outcomeWarned
	outcomeOverdue
	outcomeEscalated
)

// Sweep recomputes the elapsed share of every awaiting request's window.
// Status only ever moves forward within one window, so repeated or concurrent
// sweeps queue at most one follow-up per attempt.
func (m *Monitor) Sweep(ctx context.Context, limit int) (SweepResult, error) {
	var res SweepResult
	reqs, err := m.requests.List(ctx, repositories.RequestFilters{
		Statuses: []entities.RequestStatus{entities.StatusAwaitingResponse},
		Limit:    limit,
	})
	if err != nil {
		return res, fmt.Errorf("failed to list awaiting requests: %w", err)
	}

	for _, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		res.Checked++
		outcome, err := m.check(ctx, req)
		if err != nil {
			if usecaseErrors.IsConcurrencyConflict(err) {
				res.Skipped++
				continue
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", req.ID, err))
			m.logger.Error("❌ SLA check failed", zap.String("request_id", req.ID.String()), zap.Error(err))
			continue
		}
		switch outcome {
		case outcomeWarned:
			res.Warned++
		case outcomeOverdue:
			res.Overdue++
		case outcomeEscalated:
			res.Escalated++
		}
	}
	return res, ctx.Err()
}

func (m *Monitor) check(ctx context.Context, req *entities.SchedulingRequest) (sweepOutcome, error) {
	now := m.now()
	since := req.UpdatedAt
	if req.AwaitingSince != nil {
		since = *req.AwaitingSince
	}

	fresh := req.SLADueAt == nil
	due := since
	if fresh {
		d, err := m.calc.DueAt(ctx, req, since)
		if err != nil {
			m.logger.Warn("⚠️ Using rule window without reply history", zap.String("request_id", req.ID.String()), zap.Error(err))
		}
		due = d
	} else {
		due = *req.SLADueAt
	}

	elapsed := percentElapsed(since, due, now)
	level := m.level(elapsed)
	if rank(level) <= rank(req.SLAStatus) {
		if !fresh {
			return outcomeUnchanged, nil
		}
		level = req.SLAStatus
		if level == entities.SLAStatusNone {
			level = entities.SLAStatusOnTrack
		}
	}

	setDue := func(r *entities.SchedulingRequest) {
		d := due
		r.SLADueAt = &d
		r.SLAStatus = level
		r.NextActionDue = &d
	}

	switch level {
	case entities.SLAStatusWarning:
		if err := m.transitioner.Update(ctx, req, scheduling.Change{
			Reasoning:  fmt.Sprintf("%.0f%% of the response window elapsed; due %s", elapsed, formatTime(req, due)),
			ActionType: entities.ActionSLAWarning,
			Mutate:     setDue,
		}); err != nil {
			return outcomeUnchanged, err
		}
		m.logger.Info("⏰ Response window warning", zap.String("request_id", req.ID.String()), zap.Float64("elapsed_percent", elapsed))
		return outcomeWarned, nil

	case entities.SLAStatusOverdue:
		return m.overdue(ctx, req, due, elapsed, setDue)
	}

	// first sight of a request without a due date
	if err := m.transitioner.Update(ctx, req, scheduling.Change{Mutate: setDue}); err != nil {
		return outcomeUnchanged, err
	}
	return outcomeUnchanged, nil
}

// overdue queues the next follow-up, or hands the request to a human once
// the follow-up budget is spent
func (m *Monitor) overdue(ctx context.Context, req *entities.SchedulingRequest, due time.Time, elapsed float64, setDue func(*entities.SchedulingRequest)) (sweepOutcome, error) {
	followUps := req.AttemptCount - 1
	if followUps < 0 {
		followUps = 0
	}
	if followUps >= m.rules.MaxFollowUps {
		err := m.escalator.EscalateToHumanReview(ctx, req, escalation.ReasonSLAExhausted, map[string]string{
			"follow_ups": strconv.Itoa(followUps),
			"due":        due.Format(time.RFC3339),
		})
		if err != nil {
			return outcomeUnchanged, fmt.Errorf("failed to escalate: %w", err)
		}
		return outcomeEscalated, nil
	}

	draft, err := m.drafter.QueueFollowUp(ctx, req)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("failed to queue follow-up: %w", err)
	}
	if err := m.transitioner.Update(ctx, req, scheduling.Change{
		Reasoning:  fmt.Sprintf("no reply %.0f%% into the response window (due %s); follow-up %d queued", elapsed, formatTime(req, due), followUps+1),
		ActionType: entities.ActionSLAOverdue,
		DraftID:    &draft.ID,
		Mutate: func(r *entities.SchedulingRequest) {
			setDue(r)
			r.IncrementAttempt()
			r.NextActionType = entities.NextActionFollowUp
			r.NextActionDue = nil
		},
	}); err != nil {
		return outcomeUnchanged, err
	}

	m.logger.Warn("⏰ Request overdue, follow-up queued",
		zap.String("request_id", req.ID.String()),
		zap.String("draft_id", draft.ID.String()),
		zap.Int("attempt", req.AttemptCount),
	)
	return outcomeOverdue, nil
}

// HandleOutOfOffice recognises an auto-reply. For an awaiting request the due
// date moves past the stated return date plus the rule window; without a
// readable return date a human decides. A booked meeting the contact may be
// away for is escalated.
func (m *Monitor) HandleOutOfOffice(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (bool, error) {
	if !IsOutOfOffice(msg.Subject, msg.Body) {
		return false, nil
	}
	switch req.Status {
	case entities.StatusAwaitingResponse:
		return true, m.extendForReturn(ctx, req, msg)
	case entities.StatusConfirmed, entities.StatusReminderSent:
		back, ok := m.returnDate(ctx, req, msg)
		if !ok || req.ConfirmedTime == nil || back.After(*req.ConfirmedTime) {
			details := map[string]string{"from": msg.FromEmail, "reason": "contact may be away for the booked meeting"}
			if ok {
				details["return"] = back.Format(time.RFC3339)
			}
			return true, m.escalator.EscalateToHumanReview(ctx, req, escalation.ReasonOutOfOffice, details)
		}
	}
	return true, m.recordOOO(ctx, req, msg)
}

func (m *Monitor) extendForReturn(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) error {
	back, ok := m.returnDate(ctx, req, msg)
	if !ok {
		return m.escalator.EscalateToHumanReview(ctx, req, escalation.ReasonOutOfOffice, map[string]string{
			"from":   msg.FromEmail,
			"reason": "no return date found",
		})
	}

	due := back.Add(m.calc.Window(req))
	if req.SLADueAt != nil && req.SLADueAt.After(due) {
		due = *req.SLADueAt
	}
	err := m.transitioner.Update(ctx, req, scheduling.Change{
		Reasoning:  fmt.Sprintf("%s is out of office until %s; reply due %s", msg.FromEmail, formatTime(req, back), formatTime(req, due)),
		ActionType: entities.ActionOOODetected,
		Mutate: func(r *entities.SchedulingRequest) {
			d := due
			r.SLADueAt = &d
			r.SLAStatus = entities.SLAStatusOnTrack
			r.NextActionDue = &d
		},
	})
	if err != nil {
		return err
	}

	m.logger.Info("🏖️ Out-of-office reply, response window extended",
		zap.String("request_id", req.ID.String()),
		zap.Time("return", back),
		zap.Time("due", due),
	)
	return nil
}

func (m *Monitor) recordOOO(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) error {
	action := entities.NewAction(req.ID, entities.ActionOOODetected, entities.ActorAutomation,
		fmt.Sprintf("out-of-office reply from %s while %s", msg.FromEmail, req.Status))
	if err := m.actions.Append(ctx, action); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

func (m *Monitor) returnDate(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (time.Time, bool) {
	phrase, ok := returnPhrase(msg.Body)
	if !ok || m.parser == nil {
		return time.Time{}, false
	}
	pctx := timeparser.Context{Timezone: req.Timezone, ReferenceInstant: msg.ReceivedAt, EmailBodyExcerpt: phrase}
	for _, pt := range m.parser.ExtractTimesFromText(ctx, phrase, pctx) {
		if pt.Success && pt.Instant != nil && pt.Instant.After(msg.ReceivedAt) {
			return *pt.Instant, true
		}
	}
	return time.Time{}, false
}

func (m *Monitor) level(elapsed float64) entities.SLAStatus {
	switch {
	case elapsed >= m.rules.OverduePercent:
		return entities.SLAStatusOverdue
	case elapsed >= m.rules.WarningPercent:
		return entities.SLAStatusWarning
	}
	return entities.SLAStatusOnTrack
}

func percentElapsed(since, due, now time.Time) float64 {
	window := due.Sub(since)
	if window <= 0 {
		return 100
	}
	return float64(now.Sub(since)) / float64(window) * 100
}

func rank(s entities.SLAStatus) int {
	switch s {
	case entities.SLAStatusWarning:
		return 1
	case entities.SLAStatusOverdue:
		return 2
	}
	return 0
}

func formatTime(req *entities.SchedulingRequest, t time.Time) string {
	return t.In(req.Location()).Format(displayLayout)
}
