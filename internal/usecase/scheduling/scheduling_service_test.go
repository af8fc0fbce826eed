package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/memstore"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/escalation"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

type fakeDrafter struct {
	queued []*entities.SchedulingRequest
}

func (f *fakeDrafter) QueueProposal(_ context.Context, req *entities.SchedulingRequest) (*entities.Draft, error) {
	f.queued = append(f.queued, req)
	return &entities.Draft{ID: uuid.New(), RequestID: req.ID, Type: entities.DraftTypeEmailProposal}, nil
}

type fixedDue struct{ hours int }

func (f fixedDue) DueAt(_ context.Context, _ *entities.SchedulingRequest, since time.Time) (time.Time, error) {
	return since.Add(time.Duration(f.hours) * time.Hour), nil
}

type fixture struct {
	store   *memstore.Store
	drafter *fakeDrafter
	svc     *SchedulingService
}

func newFixture() *fixture {
	store := memstore.New()
	logger := zap.NewNop()
	tr := NewTransitioner(store.Requests(), store.Actions(), fixedDue{hours: 48}, config.DefaultRules().Reminders, logger)
	esc := escalation.NewEscalator(store.Requests(), store.Actions(), store.WorkItems(), logger)
	drafter := &fakeDrafter{}
	return &fixture{
		store:   store,
		drafter: drafter,
		svc:     NewSchedulingService(store.Requests(), store.Actions(), tr, drafter, esc, logger),
	}
}

func validInput() CreateRequestInput {
	tomorrow := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	return CreateRequestInput{
		UserID:          uuid.New(),
		Title:           "Acme demo",
		MeetingType:     entities.MeetingTypeDemo,
		DurationMinutes: 30,
		Timezone:        "America/New_York",
		Attendees: []AttendeeInput{
			{Side: entities.AttendeeSideInternal, Name: "Rep", Email: "rep@example.com", IsOrganizer: true},
			{Side: entities.AttendeeSideExternal, Name: "Sarah", Email: "Sarah@Acme.com", IsPrimaryContact: true},
		},
		ProposedTimes: []time.Time{tomorrow, tomorrow.Add(2 * time.Hour), time.Now().Add(-time.Hour)},
	}
}

func TestCreateRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInitiated, req.Status)
	assert.Len(t, req.ProposedTimes, 2, "past candidates are dropped")
	assert.Equal(t, "sarah@acme.com", req.PrimaryContact().Email)

	actions, err := f.svc.ListActions(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, entities.ActionCreated, actions[0].ActionType)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := validInput()
	in.MeetingType = "brunch"
	_, err := f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, usecaseErrors.ErrInvalidInput)

	in = validInput()
	in.Attendees = append(in.Attendees, AttendeeInput{Side: entities.AttendeeSideExternal, Email: "bob@acme.com", IsPrimaryContact: true})
	_, err = f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, usecaseErrors.ErrInvalidInput)
}

func TestCreateRequestThreadClaimed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	thread := "thread-1"

	in := validInput()
	in.ExternalThreadID = &thread
	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	again := validInput()
	again.UserID = in.UserID
	again.ExternalThreadID = &thread
	_, err = f.svc.Create(ctx, again)
	assert.ErrorIs(t, err, usecaseErrors.ErrThreadClaimed)
}

func TestQueueInitialProposal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	updated, draft, err := f.svc.QueueInitialProposal(ctx, req.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusProposing, updated.Status)
	assert.Equal(t, 1, updated.AttemptCount)
	assert.Equal(t, entities.NextActionSendDraft, updated.NextActionType)
	require.Len(t, f.drafter.queued, 1)
	assert.Len(t, f.drafter.queued[0].ProposedTimes, 2)

	actions, err := f.svc.ListActions(ctx, req.ID)
	require.NoError(t, err)
	last := actions[len(actions)-1]
	assert.Equal(t, entities.StatusProposing, last.NewStatus)
	require.NotNil(t, last.DraftID)
	assert.Equal(t, draft.ID, *last.DraftID)

	_, _, err = f.svc.QueueInitialProposal(ctx, req.ID, nil)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestQueueInitialProposalNeedsContactAndTimes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := validInput()
	in.Attendees = in.Attendees[:1]
	req, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	_, _, err = f.svc.QueueInitialProposal(ctx, req.ID, nil)
	assert.ErrorIs(t, err, usecaseErrors.ErrNoPrimaryContact)

	in = validInput()
	in.ProposedTimes = nil
	req, err = f.svc.Create(ctx, in)
	require.NoError(t, err)
	_, _, err = f.svc.QueueInitialProposal(ctx, req.ID, nil)
	assert.ErrorIs(t, err, usecaseErrors.ErrNoProposedTimes)
}

func TestTransitionRejectsInvalidAndTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, req.ID, entities.StatusConfirmed, TransitionInput{})
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	_, err = f.svc.Cancel(ctx, req.ID, "")
	require.NoError(t, err)
	for _, to := range entities.AllStatuses {
		_, err = f.svc.Transition(ctx, req.ID, to, TransitionInput{})
		assert.ErrorIs(t, err, entities.ErrRequestTerminal, "cancelled -> %s", to)
	}
}

func advance(t *testing.T, f *fixture, id uuid.UUID, to entities.RequestStatus, confirmed *time.Time) *entities.SchedulingRequest {
	t.Helper()
	req, err := f.svc.Transition(context.Background(), id, to, TransitionInput{ConfirmedTime: confirmed})
	require.NoError(t, err)
	return req
}

func TestLifecycleSetsSLAAndNextAction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, _, err = f.svc.QueueInitialProposal(ctx, req.ID, nil)
	require.NoError(t, err)

	awaiting := advance(t, f, req.ID, entities.StatusAwaitingResponse, nil)
	require.NotNil(t, awaiting.AwaitingSince)
	require.NotNil(t, awaiting.SLADueAt)
	assert.Equal(t, 48*time.Hour, awaiting.SLADueAt.Sub(*awaiting.AwaitingSince))
	assert.Equal(t, entities.SLAStatusOnTrack, awaiting.SLAStatus)

	confirming := advance(t, f, req.ID, entities.StatusConfirming, nil)
	assert.Nil(t, confirming.SLADueAt)
	assert.Equal(t, entities.SLAStatusNone, confirming.SLAStatus)

	start := time.Now().Add(72 * time.Hour).Truncate(time.Minute)
	confirmed := advance(t, f, req.ID, entities.StatusConfirmed, &start)
	require.NotNil(t, confirmed.ConfirmedTime)
	assert.Equal(t, entities.NextActionReminder, confirmed.NextActionType)
	require.NotNil(t, confirmed.NextActionDue)
	assert.True(t, confirmed.NextActionDue.Equal(start.Add(-24*time.Hour)))
}

func TestPauseResumeKeepsConfirmedTime(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, _, err = f.svc.QueueInitialProposal(ctx, req.ID, nil)
	require.NoError(t, err)
	advance(t, f, req.ID, entities.StatusAwaitingResponse, nil)
	advance(t, f, req.ID, entities.StatusConfirming, nil)
	start := time.Now().Add(72 * time.Hour).Truncate(time.Minute)
	advance(t, f, req.ID, entities.StatusConfirmed, &start)

	paused, err := f.svc.Pause(ctx, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPaused, paused.Status)
	assert.Nil(t, paused.ConfirmedTime)
	require.NoError(t, paused.CheckInvariant())

	resumed, err := f.svc.Resume(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusConfirmed, resumed.Status)
	require.NotNil(t, resumed.ConfirmedTime)
	assert.True(t, resumed.ConfirmedTime.Equal(start))

	_, err = f.svc.Resume(ctx, req.ID)
	assert.ErrorIs(t, err, usecaseErrors.ErrRequestNotPaused)
}

func confirmedRequest(t *testing.T, f *fixture, start time.Time) *entities.SchedulingRequest {
	t.Helper()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, _, err = f.svc.QueueInitialProposal(ctx, req.ID, nil)
	require.NoError(t, err)
	advance(t, f, req.ID, entities.StatusAwaitingResponse, nil)
	advance(t, f, req.ID, entities.StatusConfirming, nil)
	return advance(t, f, req.ID, entities.StatusConfirmed, &start)
}

func TestNoShowAndRecovery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := confirmedRequest(t, f, time.Now().Add(-2*time.Hour))

	reported, err := f.svc.ReportNoShow(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, reported.NoShowReportedAt)
	assert.Equal(t, entities.StatusConfirmed, reported.Status)

	require.NoError(t, f.svc.SettleMeeting(ctx, reported))
	assert.Equal(t, entities.StatusNoShow, reported.Status)
	assert.Equal(t, 1, reported.NoShowCount)
	assert.Nil(t, reported.ConfirmedTime)

	next := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	recovered, draft, err := f.svc.RecoverNoShow(ctx, req.ID, []time.Time{next})
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, entities.StatusProposing, recovered.Status)
	assert.Equal(t, 2, recovered.AttemptCount)
	require.Len(t, recovered.ProposedTimes, 1)
	assert.Equal(t, entities.TimeSourceManual, recovered.ProposedTimes[0].Source)
}

func TestSettleWithoutReportCompletes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := confirmedRequest(t, f, time.Now().Add(-2*time.Hour))

	require.NoError(t, f.svc.SettleMeeting(ctx, req))
	assert.Equal(t, entities.StatusCompleted, req.Status)
	require.NoError(t, req.CheckInvariant())

	_, err := f.svc.ReportNoShow(ctx, req.ID)
	assert.ErrorIs(t, err, entities.ErrRequestTerminal)
	_, _, err = f.svc.RecoverNoShow(ctx, req.ID, nil)
	assert.ErrorIs(t, err, usecaseErrors.ErrRequestNotNoShow)
}

func TestStaleCopyLosesRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	stale, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, req.ID, "changed plans")
	require.NoError(t, err)

	err = f.svc.transitioner.Apply(ctx, stale, entities.StatusProposing, Change{})
	assert.ErrorIs(t, err, usecaseErrors.ErrConcurrentUpdate)
	assert.Equal(t, entities.StatusInitiated, stale.Status)
}

type failingActions struct {
	repositories.ActionRepository
	err error
}

func (f failingActions) Append(context.Context, *entities.SchedulingAction) error {
	return f.err
}

func TestMoveWithoutAuditRowIsReverted(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	appendErr := errors.New("audit log unavailable")
	tr := NewTransitioner(store.Requests(), failingActions{ActionRepository: store.Actions(), err: appendErr},
		fixedDue{hours: 48}, config.DefaultRules().Reminders, zap.NewNop())

	req := entities.NewSchedulingRequest(uuid.New(), "Acme demo", entities.MeetingTypeDemo, 30, "America/New_York")
	require.NoError(t, store.Requests().Create(ctx, req))

	err := tr.Apply(ctx, req, entities.StatusProposing, Change{Reasoning: "proposal queued"})
	assert.ErrorIs(t, err, appendErr)
	assert.Equal(t, entities.StatusInitiated, req.Status)

	stored, err := store.Requests().FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInitiated, stored.Status)
	assert.Equal(t, req.Version, stored.Version, "the caller's copy matches the stored row")

	err = tr.Update(ctx, req, Change{
		ActionType: entities.ActionLinkApplied,
		Mutate:     func(r *entities.SchedulingRequest) { r.Title = "Renamed" },
	})
	assert.ErrorIs(t, err, appendErr)
	stored, err = store.Requests().FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme demo", stored.Title)

	healthy := NewTransitioner(store.Requests(), store.Actions(), fixedDue{hours: 48}, config.DefaultRules().Reminders, zap.NewNop())
	require.NoError(t, healthy.Apply(ctx, req, entities.StatusProposing, Change{}), "the reverted copy is current")
}
