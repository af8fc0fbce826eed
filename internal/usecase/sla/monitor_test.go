package sla

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/memstore"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/draft"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/escalation"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/timeparser"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

var t0 = time.Date(2026, 1, 2, 14, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memstore.Store
	monitor *Monitor
	calc    *Calculator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	logger := zap.NewNop()
	rules := config.DefaultRules()
	rules.SLA.DefaultHours = 24

	templates, err := draft.NewTemplates()
	require.NoError(t, err)
	calc := NewCalculator(rules.SLA, store.Patterns())
	tr := scheduling.NewTransitioner(store.Requests(), store.Actions(), calc, rules.Reminders, logger)
	drafts := draft.NewDraftService(store.Drafts(), store.Requests(), store.Actions(), store.WorkItems(), tr, templates,
		nil, nil, nil, rules.Drafts, logger)
	esc := escalation.NewEscalator(store.Requests(), store.Actions(), store.WorkItems(), logger)
	parser := timeparser.NewParser(nil, rules.BusinessHours, logger)

	return &fixture{
		store:   store,
		calc:    calc,
		monitor: NewMonitor(store.Requests(), store.Actions(), tr, drafts, esc, calc, parser, rules.SLA, logger),
	}
}

func (f *fixture) at(d time.Duration) {
	f.monitor.now = func() time.Time { return t0.Add(d) }
}

// awaiting seeds a request that entered awaiting_response at t0
func (f *fixture) awaiting(t *testing.T, attempts int, due *time.Time) *entities.SchedulingRequest {
	t.Helper()
	req := entities.NewSchedulingRequest(uuid.New(), "Acme demo", entities.MeetingTypeDemo, 30, "America/New_York")
	req.Status = entities.StatusAwaitingResponse
	req.Attendees = []entities.Attendee{
		{ID: uuid.New(), Side: entities.AttendeeSideInternal, Name: "Riley Rep", Email: "rep@example.com", IsOrganizer: true},
		{ID: uuid.New(), Side: entities.AttendeeSideExternal, Name: "Sarah Chen", Email: "sarah@acme.com", IsPrimaryContact: true},
	}
	since := t0
	req.AwaitingSince = &since
	req.AttemptCount = attempts
	req.NextActionType = entities.NextActionAwaitReply
	if due != nil {
		req.SLADueAt = due
		req.SLAStatus = entities.SLAStatusOnTrack
	}
	require.NoError(t, f.store.Requests().Create(context.Background(), req))
	return req
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *entities.SchedulingRequest {
	t.Helper()
	req, err := f.store.Requests().FindByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func (f *fixture) followUps(t *testing.T, id uuid.UUID) []*entities.Draft {
	t.Helper()
	drafts, err := f.store.Drafts().ListByRequest(context.Background(), id)
	require.NoError(t, err)
	var out []*entities.Draft
	for _, d := range drafts {
		if d.Type == entities.DraftTypeEmailFollowUp {
			out = append(out, d)
		}
	}
	return out
}

func TestSweepWarnsThenQueuesOneFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.awaiting(t, 1, nil)

	f.at(time.Hour)
	_, err := f.monitor.Sweep(ctx, 50)
	require.NoError(t, err)
	stored := f.reload(t, req.ID)
	require.NotNil(t, stored.SLADueAt)
	assert.True(t, stored.SLADueAt.Equal(t0.Add(24*time.Hour)))
	assert.Equal(t, entities.SLAStatusOnTrack, stored.SLAStatus)

	f.at(19 * time.Hour)
	res, err := f.monitor.Sweep(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Warned)
	assert.Equal(t, entities.SLAStatusWarning, f.reload(t, req.ID).SLAStatus)
	assert.Empty(t, f.followUps(t, req.ID))

	f.at(25 * time.Hour)
	res, err = f.monitor.Sweep(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Overdue)
	stored = f.reload(t, req.ID)
	assert.Equal(t, entities.SLAStatusOverdue, stored.SLAStatus)
	assert.Equal(t, 2, stored.AttemptCount)
	assert.Equal(t, entities.NextActionFollowUp, stored.NextActionType)

	followUps := f.followUps(t, req.ID)
	require.Len(t, followUps, 1)
	assert.Equal(t, "followup:"+req.ID.String()+":1", followUps[0].IdempotencyKey)
	assert.Equal(t, entities.DraftStatusPending, followUps[0].Status, "follow-ups are never sent directly")

	f.at(26 * time.Hour)
	res, err = f.monitor.Sweep(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, res.Overdue)
	assert.Len(t, f.followUps(t, req.ID), 1)

	actions, err := f.store.Actions().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	var types []entities.ActionType
	for _, a := range actions {
		types = append(types, a.ActionType)
	}
	assert.Contains(t, types, entities.ActionSLAWarning)
	assert.Contains(t, types, entities.ActionSLAOverdue)
}

func TestConcurrentSweepsCreateOneFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := t0.Add(24 * time.Hour)
	req := f.awaiting(t, 1, &due)
	f.at(25 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.monitor.Sweep(ctx, 50)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.followUps(t, req.ID), 1)
	assert.Equal(t, 2, f.reload(t, req.ID).AttemptCount)
}

func TestSweepEscalatesWhenFollowUpsAreSpent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := t0.Add(24 * time.Hour)
	req := f.awaiting(t, 4, &due)
	f.at(30 * time.Hour)

	res, err := f.monitor.Sweep(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Escalated)

	stored := f.reload(t, req.ID)
	assert.Equal(t, entities.StatusPaused, stored.Status)
	assert.Equal(t, escalation.ReasonSLAExhausted, stored.PausedReason)
	assert.Empty(t, f.followUps(t, req.ID))
}

func TestCalculatorUsesReplyVelocity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.awaiting(t, 1, nil)

	due, err := f.calc.DueAt(ctx, req, t0)
	require.NoError(t, err)
	assert.True(t, due.Equal(t0.Add(24*time.Hour)))

	pattern := &entities.ContactEmailPattern{ContactEmail: "sarah@acme.com"}
	for i := 0; i < 2; i++ {
		pattern.RecordReply(40*time.Hour, t0)
	}
	require.NoError(t, f.store.Patterns().Upsert(ctx, pattern))
	due, err = f.calc.DueAt(ctx, req, t0)
	require.NoError(t, err)
	assert.True(t, due.Equal(t0.Add(24*time.Hour)), "two replies are not enough history")

	pattern.RecordReply(40*time.Hour, t0)
	require.NoError(t, f.store.Patterns().Upsert(ctx, pattern))
	due, err = f.calc.DueAt(ctx, req, t0)
	require.NoError(t, err)
	assert.True(t, due.Equal(t0.Add(60*time.Hour)), "1.5x the 40h average")
}

func TestCalculatorRuleTable(t *testing.T) {
	rules := config.DefaultRules().SLA
	rules.Rules = []config.SLARule{
		{DealStage: "negotiation", Hours: 12},
		{DealStage: "negotiation", Persona: "executive", Hours: 72},
	}
	calc := NewCalculator(rules, nil)
	req := entities.NewSchedulingRequest(uuid.New(), "x", entities.MeetingTypeDemo, 30, "UTC")

	due, err := calc.DueAt(context.Background(), req, t0)
	require.NoError(t, err)
	assert.True(t, due.Equal(t0.Add(48*time.Hour)))

	req.DealStage = "negotiation"
	due, _ = calc.DueAt(context.Background(), req, t0)
	assert.True(t, due.Equal(t0.Add(12*time.Hour)))

	req.ContactPersona = "executive"
	due, _ = calc.DueAt(context.Background(), req, t0)
	assert.True(t, due.Equal(t0.Add(72*time.Hour)))
}

func TestOutOfOfficeExtendsDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := t0.Add(24 * time.Hour)
	req := f.awaiting(t, 1, &due)
	f.at(time.Hour)

	msg := &entities.InboundMessage{
		ID:         uuid.New(),
		FromEmail:  "sarah@acme.com",
		Subject:    "Automatic reply: Acme demo",
		Body:       "Thanks for your note. I am out of the office until January 12 with limited access to email.",
		ReceivedAt: t0.Add(time.Hour),
	}
	handled, err := f.monitor.HandleOutOfOffice(ctx, req, msg)
	require.NoError(t, err)
	assert.True(t, handled)

	stored := f.reload(t, req.ID)
	require.NotNil(t, stored.SLADueAt)
	assert.True(t, stored.SLADueAt.After(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, entities.StatusAwaitingResponse, stored.Status)

	msg.Subject, msg.Body = "Re: Acme demo", "Tuesday works"
	handled, err = f.monitor.HandleOutOfOffice(ctx, stored, msg)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestOutOfOfficeWithoutReturnDateEscalates(t *testing.T) {
	f := newFixture(t)
	due := t0.Add(24 * time.Hour)
	req := f.awaiting(t, 1, &due)

	handled, err := f.monitor.HandleOutOfOffice(context.Background(), req, &entities.InboundMessage{
		ID:         uuid.New(),
		Subject:    "Out of Office",
		Body:       "I am currently away from the office.",
		ReceivedAt: t0.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, escalation.ReasonOutOfOffice, f.reload(t, req.ID).PausedReason)
}

func TestOutOfOfficeAroundBookedMeeting(t *testing.T) {
	tests := []struct {
		name       string
		meeting    time.Time
		wantStatus entities.RequestStatus
	}{
		{name: "away at meeting time escalates", meeting: time.Date(2026, 1, 8, 15, 0, 0, 0, time.UTC), wantStatus: entities.StatusPaused},
		{name: "back before meeting is recorded", meeting: time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC), wantStatus: entities.StatusConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			req := entities.NewSchedulingRequest(uuid.New(), "Acme demo", entities.MeetingTypeDemo, 30, "America/New_York")
			req.Status = entities.StatusConfirmed
			at := tt.meeting
			req.ConfirmedTime = &at
			require.NoError(t, f.store.Requests().Create(ctx, req))

			handled, err := f.monitor.HandleOutOfOffice(ctx, req, &entities.InboundMessage{
				ID:         uuid.New(),
				FromEmail:  "sarah@acme.com",
				Subject:    "Automatic reply: Acme demo",
				Body:       "I am out of the office until January 12.",
				ReceivedAt: t0.Add(time.Hour),
			})
			require.NoError(t, err)
			assert.True(t, handled)

			stored := f.reload(t, req.ID)
			assert.Equal(t, tt.wantStatus, stored.Status)
			if tt.wantStatus == entities.StatusPaused {
				assert.Equal(t, escalation.ReasonOutOfOffice, stored.PausedReason)
				return
			}
			actions, err := f.store.Actions().ListByRequest(ctx, req.ID)
			require.NoError(t, err)
			require.NotEmpty(t, actions)
			assert.Equal(t, entities.ActionOOODetected, actions[len(actions)-1].ActionType)
		})
	}
}

func TestIsOutOfOffice(t *testing.T) {
	assert.True(t, IsOutOfOffice("Automatic reply: demo", ""))
	assert.True(t, IsOutOfOffice("Re: demo", "I'm on parental leave through March"))
	assert.False(t, IsOutOfOffice("Re: demo", "Tuesday at 2pm works for me"))
	assert.True(t, IsOutOfOffice("Vacation responder", ""))

	for _, subject := range []string{"Re: demo before my vacation", "Away day agenda", "Re: demo while you're on leave"} {
		assert.False(t, IsOutOfOffice(subject, "Tuesday at 2pm works for me"), subject)
	}

	phrase, ok := returnPhrase("Back on Monday, January 12. Thanks!")
	require.True(t, ok)
	assert.Equal(t, "Monday, January 12", phrase)
}
