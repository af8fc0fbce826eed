package response

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/memstore"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/draft"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/escalation"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/intent"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/sla"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/timeparser"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

type fixedDue struct{}

func (fixedDue) DueAt(_ context.Context, _ *entities.SchedulingRequest, since time.Time) (time.Time, error) {
	return since.Add(48 * time.Hour), nil
}

type fakeOOO struct {
	handled bool
	calls   *int
}

func (f fakeOOO) HandleOutOfOffice(context.Context, *entities.SchedulingRequest, *entities.InboundMessage) (bool, error) {
	if f.calls != nil {
		*f.calls++
	}
	return f.handled, nil
}

// failingBookings fails every booking draft
type failingBookings struct {
	Drafter
	err error
}

func (f failingBookings) QueueBooking(context.Context, *entities.SchedulingRequest, *entities.InboundMessage, time.Time, entities.ConfidenceTier, string) (*entities.Draft, error) {
	return nil, f.err
}

type fixture struct {
	store  *memstore.Store
	svc    *ResponseService
	userID uuid.UUID
	now    time.Time
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	logger := zap.NewNop()
	rules := config.DefaultRules()

	templates, err := draft.NewTemplates()
	require.NoError(t, err)
	tr := scheduling.NewTransitioner(store.Requests(), store.Actions(), fixedDue{}, rules.Reminders, logger)
	drafts := draft.NewDraftService(store.Drafts(), store.Requests(), store.Actions(), store.WorkItems(), tr, templates,
		nil, nil, nil, rules.Drafts, logger)
	esc := escalation.NewEscalator(store.Requests(), store.Actions(), store.WorkItems(), logger)
	parser := timeparser.NewParser(nil, rules.BusinessHours, logger)
	monitor := sla.NewMonitor(store.Requests(), store.Actions(), tr, drafts, esc,
		sla.NewCalculator(rules.SLA, store.Patterns()), parser, rules.SLA, logger)

	f := &fixture{store: store, userID: uuid.New(), now: mustTime(t, "2026-01-02T14:00:00Z")}
	f.svc = NewResponseService(
		store.Requests(), store.Actions(), store.Inbound(), store.Patterns(),
		intent.NewDetector(nil, nil, rules.Intent, logger),
		parser, tr, drafts, esc, nil, monitor, logger,
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

// request seeds an awaiting request that proposed Monday Jan 5, 10:30 AM ET
func (f *fixture) request(t *testing.T, thread string) *entities.SchedulingRequest {
	t.Helper()
	return f.requestIn(t, thread, entities.StatusAwaitingResponse)
}

// requestIn seeds the same request in status. Statuses holding a meeting get
// it booked at the proposed time.
func (f *fixture) requestIn(t *testing.T, thread string, status entities.RequestStatus) *entities.SchedulingRequest {
	t.Helper()
	req := entities.NewSchedulingRequest(f.userID, "Acme demo", entities.MeetingTypeDemo, 30, "America/New_York")
	req.Status = status
	req.Attendees = []entities.Attendee{
		{ID: uuid.New(), Side: entities.AttendeeSideInternal, Name: "Riley Rep", Email: "rep@example.com", IsOrganizer: true},
		{ID: uuid.New(), Side: entities.AttendeeSideExternal, Name: "Sarah Chen", Email: "sarah@acme.com", IsPrimaryContact: true},
	}
	req.ProposedTimes = []entities.ProposedTime{{
		Instant: mustTime(t, "2026-01-05T15:30:00Z"),
		Display: "Mon Jan 5, 10:30 AM EST",
		Source:  entities.TimeSourceInitialProposal,
	}}
	req.ExternalThreadID = &thread
	if status.HasConfirmedTime() {
		at := req.ProposedTimes[0].Instant
		event := "evt-1"
		req.ConfirmedTime = &at
		req.CalendarEventID = &event
	}
	sent := f.now.Add(-2 * time.Hour)
	req.LastOutboundAt = &sent
	req.AttemptCount = 1
	require.NoError(t, f.store.Requests().Create(context.Background(), req))
	return req
}

func (f *fixture) reply(t *testing.T, thread, body string) *Outcome {
	t.Helper()
	return f.replyWithSubject(t, thread, "Re: Acme demo", body)
}

func (f *fixture) replyWithSubject(t *testing.T, thread, subject, body string) *Outcome {
	t.Helper()
	ctx := context.Background()
	msg, err := f.svc.Receive(ctx, ReceiveInput{
		UserID:            f.userID,
		ProviderMessageID: "<" + uuid.NewString() + "@acme.com>",
		ThreadID:          thread,
		FromEmail:         "Sarah@Acme.com",
		Subject:           subject,
		Body:              body,
		ReceivedAt:        f.now,
	})
	require.NoError(t, err)
	out, err := f.svc.Process(ctx, msg.ID)
	require.NoError(t, err)
	return out
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *entities.SchedulingRequest {
	t.Helper()
	req, err := f.store.Requests().FindByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func TestAcceptMatchingProposedTimeQueuesBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "10:30 works for me")
	assert.Equal(t, "accept", out.Intent)
	assert.Equal(t, ResultDraftQueued, out.Result)

	stored := f.reload(t, req.ID)
	assert.Equal(t, entities.StatusConfirming, stored.Status)
	assert.Nil(t, stored.ConfirmedTime, "nothing is booked until the draft executes")

	drafts, err := f.store.Drafts().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, entities.DraftTypeCalendarBook, drafts[0].Type)
	assert.Equal(t, entities.DraftStatusPending, drafts[0].Status)
	require.NotNil(t, drafts[0].Payload.BookingStart)
	assert.True(t, drafts[0].Payload.BookingStart.Equal(mustTime(t, "2026-01-05T15:30:00Z")))

	pattern, err := f.store.Patterns().FindByEmail(ctx, "sarah@acme.com")
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.Equal(t, 1, pattern.ResponseCount)
	assert.Equal(t, 1, pattern.ThreadCount)
	assert.Equal(t, int64(7200), pattern.AvgLatencySeconds)
}

func TestVagueCounterProposalEscalates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "Can we do Tuesday afternoon instead?")
	assert.Equal(t, "counter_propose", out.Intent)
	assert.Equal(t, ResultEscalated, out.Result)
	assert.Equal(t, escalation.ReasonAmbiguousCounter, out.Reason)

	stored := f.reload(t, req.ID)
	assert.Equal(t, entities.StatusPaused, stored.Status)
	assert.Equal(t, entities.StatusAwaitingResponse, stored.PausedFrom)

	items, err := f.store.WorkItems().List(ctx, entities.WorkItemOpen, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, escalation.ReasonAmbiguousCounter, items[0].Reason)

	drafts, err := f.store.Drafts().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestClearCounterProposalQueuesAvailabilityCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "How about Wednesday Jan 7 at 2pm ET instead?")
	assert.Equal(t, ResultDraftQueued, out.Result)

	stored := f.reload(t, req.ID)
	assert.Equal(t, entities.StatusNegotiating, stored.Status)
	require.Len(t, stored.ProposedTimes, 2)
	assert.Equal(t, entities.TimeSourceCounterProposal, stored.ProposedTimes[1].Source)
	assert.True(t, stored.ProposedTimes[1].Instant.Equal(mustTime(t, "2026-01-07T19:00:00Z")))

	drafts, err := f.store.Drafts().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, entities.DraftTypeAvailabilityCheck, drafts[0].Type)
}

func TestAcceptCollidingWithAnotherMeetingEscalates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booked := entities.NewSchedulingRequest(f.userID, "Other call", entities.MeetingTypeDiscovery, 60, "America/New_York")
	booked.Status = entities.StatusConfirmed
	at := mustTime(t, "2026-01-05T15:00:00Z")
	booked.ConfirmedTime = &at
	require.NoError(t, f.store.Requests().Create(ctx, booked))

	req := f.request(t, "thread-1")
	out := f.reply(t, "thread-1", "10:30 works for me")
	assert.Equal(t, ResultEscalated, out.Result)
	assert.Equal(t, escalation.ReasonBookingConflict, out.Reason)
	assert.Equal(t, entities.StatusPaused, f.reload(t, req.ID).Status)
}

func TestAcceptWithoutRecognisableTimeEscalates(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "Sounds good, see you then")
	assert.Equal(t, ResultEscalated, out.Result)
	assert.Equal(t, escalation.ReasonAcceptTimeUnclear, out.Reason)
	assert.Equal(t, entities.StatusPaused, f.reload(t, req.ID).Status)
}

func TestDecline(t *testing.T) {
	t.Run("final decline cancels", func(t *testing.T) {
		f := newFixture(t)
		req := f.request(t, "thread-1")

		out := f.reply(t, "thread-1", "Not interested, please remove me from your list.")
		assert.Equal(t, ResultCancelled, out.Result)
		assert.Equal(t, entities.StatusCancelled, f.reload(t, req.ID).Status)
	})

	t.Run("not now pauses for review", func(t *testing.T) {
		f := newFixture(t)
		req := f.request(t, "thread-1")

		out := f.reply(t, "thread-1", "Not right now, maybe next quarter.")
		assert.Equal(t, ResultEscalated, out.Result)
		assert.Equal(t, escalation.ReasonDeclinedNotNow, out.Reason)
		assert.Equal(t, entities.StatusPaused, f.reload(t, req.ID).Status)
	})
}

func TestQuestionQueuesResponseAndKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "Quick one before we book: will the demo cover the reporting module?")
	assert.Equal(t, "question", out.Intent)
	assert.Equal(t, ResultDraftQueued, out.Result)
	assert.Equal(t, entities.StatusAwaitingResponse, f.reload(t, req.ID).Status)

	drafts, err := f.store.Drafts().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, entities.DraftTypeEmailResponse, drafts[0].Type)
}

func TestConfusedReplyEscalates(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "Sorry, I misread your note. Scratch that, 10:30 works for me")
	assert.Equal(t, ResultEscalated, out.Result)
	assert.Equal(t, escalation.ReasonConfused, out.Reason)
	assert.Equal(t, entities.StatusPaused, f.reload(t, req.ID).Status)
}

func TestOutOfOfficeIsHandedToMonitor(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.svc.ooo = fakeOOO{handled: true, calls: &calls}
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "I am out of the office until January 12.")
	assert.Equal(t, ResultOutOfOffice, out.Result)
	assert.Equal(t, 1, calls)
	assert.Equal(t, entities.StatusAwaitingResponse, f.reload(t, req.ID).Status)

	out = f.reply(t, "thread-1", "10:30 works for me")
	assert.Equal(t, ResultDraftQueued, out.Result)
	assert.Equal(t, 1, calls, "replies with a scheduling intent never reach the out-of-office check")
}

func TestOutOfOfficeExtendsResponseWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")

	out := f.reply(t, "thread-1", "I am out of the office until January 12 with limited access to email.")
	assert.Equal(t, ResultOutOfOffice, out.Result)

	stored := f.reload(t, req.ID)
	assert.Equal(t, entities.StatusAwaitingResponse, stored.Status)
	require.NotNil(t, stored.SLADueAt)
	assert.True(t, stored.SLADueAt.After(mustTime(t, "2026-01-12T00:00:00Z")))

	items, err := f.store.WorkItems().List(ctx, entities.WorkItemOpen, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOutOfOfficeWordingDoesNotHideSchedulingReplies(t *testing.T) {
	statuses := []entities.RequestStatus{entities.StatusAwaitingResponse, entities.StatusNegotiating}

	for _, status := range statuses {
		t.Run("counter with return date escalates/"+string(status), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			req := f.requestIn(t, "thread-1", status)

			out := f.reply(t, "thread-1", "I'm out of office until Monday. How about Tuesday Jan 6 at 2pm instead?")
			assert.Equal(t, "counter_propose", out.Intent)
			assert.Equal(t, ResultEscalated, out.Result)
			assert.Equal(t, escalation.ReasonAmbiguousCounter, out.Reason)

			stored := f.reload(t, req.ID)
			assert.Equal(t, entities.StatusPaused, stored.Status)
			assert.Equal(t, status, stored.PausedFrom)

			items, err := f.store.WorkItems().List(ctx, entities.WorkItemOpen, 10)
			require.NoError(t, err)
			assert.Len(t, items, 1)
		})

		t.Run("counter under auto-reply subject is drafted/"+string(status), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			req := f.requestIn(t, "thread-1", status)

			out := f.replyWithSubject(t, "thread-1", "Out of Office: Re: Acme demo", "How about Tuesday Jan 6 at 2pm instead?")
			assert.Equal(t, ResultDraftQueued, out.Result)

			stored := f.reload(t, req.ID)
			assert.Equal(t, entities.StatusNegotiating, stored.Status)
			assert.True(t, stored.HasProposedTime(mustTime(t, "2026-01-06T19:00:00Z")))

			drafts, err := f.store.Drafts().ListByRequest(ctx, req.ID)
			require.NoError(t, err)
			require.Len(t, drafts, 1)
			assert.Equal(t, entities.DraftTypeAvailabilityCheck, drafts[0].Type)
		})
	}
}

func TestStateAndIntentRouting(t *testing.T) {
	tests := []struct {
		name       string
		status     entities.RequestStatus
		body       string
		wantResult OutcomeResult
		wantReason string
		wantStatus entities.RequestStatus
		wantItems  int
		wantDraft  entities.DraftType
	}{
		{
			name:       "delegation escalates",
			status:     entities.StatusAwaitingResponse,
			body:       "Please talk to my assistant Dana, she runs my calendar.",
			wantResult: ResultEscalated,
			wantReason: escalation.ReasonDelegation,
			wantStatus: entities.StatusPaused,
			wantItems:  1,
		},
		{
			name:       "reschedule of confirmed meeting negotiates",
			status:     entities.StatusConfirmed,
			body:       "Something came up. Could we do Tuesday Jan 6 at 2pm instead?",
			wantResult: ResultDraftQueued,
			wantStatus: entities.StatusNegotiating,
			wantDraft:  entities.DraftTypeAvailabilityCheck,
		},
		{
			name:       "reschedule after reminder negotiates",
			status:     entities.StatusReminderSent,
			body:       "I need to reschedule, how about Tuesday Jan 6 at 2pm?",
			wantResult: ResultDraftQueued,
			wantStatus: entities.StatusNegotiating,
			wantDraft:  entities.DraftTypeAvailabilityCheck,
		},
		{
			name:       "counter while booking is pending escalates",
			status:     entities.StatusConfirming,
			body:       "How about Tuesday Jan 6 at 2pm instead?",
			wantResult: ResultEscalated,
			wantReason: escalation.ReasonAmbiguousCounter,
			wantStatus: entities.StatusPaused,
			wantItems:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			req := f.requestIn(t, "thread-1", tt.status)

			out := f.reply(t, "thread-1", tt.body)
			assert.Equal(t, tt.wantResult, out.Result)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, out.Reason)
			}
			stored := f.reload(t, req.ID)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.NoError(t, stored.CheckInvariant())

			items, err := f.store.WorkItems().List(ctx, entities.WorkItemOpen, 10)
			require.NoError(t, err)
			assert.Len(t, items, tt.wantItems)

			drafts, err := f.store.Drafts().ListByRequest(ctx, req.ID)
			require.NoError(t, err)
			if tt.wantDraft == "" {
				assert.Empty(t, drafts)
				return
			}
			require.Len(t, drafts, 1)
			assert.Equal(t, tt.wantDraft, drafts[0].Type)
		})
	}
}

func TestRescheduledMeetingIsMovedOnAcceptance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.requestIn(t, "thread-1", entities.StatusConfirmed)

	out := f.reply(t, "thread-1", "Something came up. Could we do Tuesday Jan 6 at 2pm instead?")
	require.Equal(t, ResultDraftQueued, out.Result)
	stored := f.reload(t, req.ID)
	assert.Nil(t, stored.ConfirmedTime)
	require.NotNil(t, stored.CalendarEventID, "the booked event is kept so it can be moved")

	out = f.reply(t, "thread-1", "Tuesday at 2pm works for me")
	assert.Equal(t, ResultDraftQueued, out.Result)
	assert.Equal(t, entities.StatusConfirming, f.reload(t, req.ID).Status)

	d, err := f.store.Drafts().FindByID(ctx, *out.DraftID)
	require.NoError(t, err)
	assert.Equal(t, entities.DraftTypeCalendarUpdate, d.Type)
	require.NotNil(t, d.Payload.BookingStart)
	assert.True(t, d.Payload.BookingStart.Equal(mustTime(t, "2026-01-06T19:00:00Z")))
}

func TestRetriedReplyIsCountedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")

	drafter := f.svc.drafter
	f.svc.drafter = failingBookings{Drafter: drafter, err: errors.New("draft store unavailable")}
	msg, err := f.svc.Receive(ctx, ReceiveInput{
		UserID:            f.userID,
		ProviderMessageID: "<retry@acme.com>",
		ThreadID:          "thread-1",
		FromEmail:         "sarah@acme.com",
		Body:              "10:30 works for me",
		ReceivedAt:        f.now,
	})
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, msg.ID)
	require.Error(t, err)

	f.svc.drafter = drafter
	res, err := f.svc.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Drafted)

	actions, err := f.store.Actions().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	inbound := 0
	for _, a := range actions {
		if a.ActionType == entities.ActionInboundProcessed {
			inbound++
			require.NotNil(t, a.MessageID)
			assert.Equal(t, msg.ID, *a.MessageID)
		}
	}
	assert.Equal(t, 1, inbound)

	pattern, err := f.store.Patterns().FindByEmail(ctx, "sarah@acme.com")
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.Equal(t, 1, pattern.ResponseCount)
	assert.Equal(t, 1, pattern.ThreadCount)
}

func TestExcerptCutsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", excerptLength+10)
	got := excerpt(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", excerptLength)+"...", got)

	assert.Equal(t, "see you then", excerpt("  see\n you   then "))
}

func TestReceive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")

	in := ReceiveInput{
		UserID:            f.userID,
		ProviderMessageID: "<m1@acme.com>",
		InReplyTo:         "thread-1",
		FromEmail:         "sarah@acme.com",
		Body:              "10:30 works for me",
	}
	msg, err := f.svc.Receive(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, msg.SchedulingRequestID, "matched through In-Reply-To")
	assert.Equal(t, req.ID, *msg.SchedulingRequestID)
	assert.Equal(t, f.now, msg.ReceivedAt)

	_, err = f.svc.Receive(ctx, in)
	assert.ErrorIs(t, err, usecaseErrors.ErrDuplicateMessage)

	_, err = f.svc.Receive(ctx, ReceiveInput{UserID: f.userID})
	assert.ErrorIs(t, err, usecaseErrors.ErrInvalidInput)
}

func TestProcessPendingSkipsUnknownThreadsAndProcessesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, "thread-1")

	for _, thread := range []string{"thread-1", "thread-unknown"} {
		_, err := f.svc.Receive(ctx, ReceiveInput{
			UserID:            f.userID,
			ProviderMessageID: "<" + thread + "@acme.com>",
			ThreadID:          thread,
			FromEmail:         "sarah@acme.com",
			Body:              "10:30 works for me",
			ReceivedAt:        f.now,
		})
		require.NoError(t, err)
	}

	res, err := f.svc.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Drafted)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)

	res, err = f.svc.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Processed+res.Skipped, "every message was marked processed")
}

func TestRepliesToTerminalRequestsAreIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "thread-1")
	req.Status = entities.StatusCancelled
	require.NoError(t, f.store.Requests().UpdateIfUnchanged(ctx, req, entities.StatusAwaitingResponse, req.Version))

	out := f.reply(t, "thread-1", "10:30 works for me")
	assert.Equal(t, ResultSkipped, out.Result)

	drafts, err := f.store.Drafts().ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}
