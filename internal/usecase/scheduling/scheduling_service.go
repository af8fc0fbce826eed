package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
)

const displayLayout = "Mon Jan 2, 3:04 PM MST"

// SchedulingService handles scheduling request business logic
type SchedulingService struct {
	requests     repositories.SchedulingRequestRepository
	actions      repositories.ActionRepository
	transitioner *Transitioner
	drafter      ProposalDrafter
	pauser       Pauser
	logger       *zap.Logger
	now          func() time.Time
}

// NewSchedulingService creates a new scheduling service
func NewSchedulingService(
	requests repositories.SchedulingRequestRepository,
	actions repositories.ActionRepository,
	transitioner *Transitioner,
	drafter ProposalDrafter,
	pauser Pauser,
	logger *zap.Logger,
) *SchedulingService {
	return &SchedulingService{
		requests:     requests,
		actions:      actions,
		transitioner: transitioner,
		drafter:      drafter,
		pauser:       pauser,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// AttendeeInput represents one participant on a new request
type AttendeeInput struct {
	Side             entities.AttendeeSide
	Name             string
	Email            string
	Title            string
	IsPrimaryContact bool
	IsOrganizer      bool
}

// CreateRequestInput represents input for creating a request
type CreateRequestInput struct {
	UserID           uuid.UUID
	Title            string
	MeetingType      entities.MeetingType
	DurationMinutes  int
	Timezone         string
	DateRangeStart   *time.Time
	DateRangeEnd     *time.Time
	Urgency          entities.Urgency
	Attendees        []AttendeeInput
	ProposedTimes    []time.Time
	ExternalThreadID *string
	SourceMessageID  *string
	CompanyID        *uuid.UUID
	ContactID        *uuid.UUID
	DealID           *uuid.UUID
	DealStage        string
	ContactPersona   string
}

// TransitionInput represents a manual state change
type TransitionInput struct {
	Actor         entities.Actor
	Reasoning     string
	ConfirmedTime *time.Time
}

// Create validates and stores a new request
func (s *SchedulingService) Create(ctx context.Context, input CreateRequestInput) (*entities.SchedulingRequest, error) {
	req := entities.NewSchedulingRequest(input.UserID, strings.TrimSpace(input.Title), input.MeetingType, input.DurationMinutes, input.Timezone)
	req.DateRangeStart = input.DateRangeStart
	req.DateRangeEnd = input.DateRangeEnd
	if input.Urgency != "" {
		req.Urgency = input.Urgency
	}
	req.ExternalThreadID = input.ExternalThreadID
	req.SourceMessageID = input.SourceMessageID
	req.DealStage = input.DealStage
	req.ContactPersona = input.ContactPersona

	if input.CompanyID != nil || input.ContactID != nil || input.DealID != nil {
		req.CompanyID = input.CompanyID
		req.ContactID = input.ContactID
		req.DealID = input.DealID
		req.LinkMethod = entities.LinkMethodManual
		req.LinkConfidence = 100
		req.LinkReasoning = "linked on creation"
	}

	for _, a := range input.Attendees {
		req.Attendees = append(req.Attendees, entities.Attendee{
			ID:               uuid.New(),
			RequestID:        req.ID,
			Side:             a.Side,
			Name:             a.Name,
			Email:            strings.ToLower(strings.TrimSpace(a.Email)),
			Title:            a.Title,
			IsPrimaryContact: a.IsPrimaryContact,
			IsOrganizer:      a.IsOrganizer,
			InviteStatus:     entities.InviteStatusPending,
		})
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", usecaseErrors.ErrInvalidInput, err)
	}
	req.ProposedTimes = s.proposedTimes(req, input.ProposedTimes, entities.TimeSourceInitialProposal)

	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, usecaseErrors.ErrThreadClaimed
		}
		return nil, fmt.Errorf("failed to create scheduling request: %w", err)
	}

	action := entities.NewAction(req.ID, entities.ActionCreated, entities.ActorHuman, fmt.Sprintf("%s request %q created", req.MeetingType, req.Title)).
		WithStatuses("", entities.StatusInitiated)
	if err := s.actions.Append(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to append action: %w", err)
	}

	s.logger.Info("✅ Scheduling request created",
		zap.String("request_id", req.ID.String()),
		zap.String("meeting_type", string(req.MeetingType)),
	)
	return req, nil
}

// Get retrieves a request by ID
func (s *SchedulingService) Get(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduling request: %w", err)
	}
	if req == nil {
		return nil, usecaseErrors.ErrRequestNotFound
	}
	return req, nil
}

// List retrieves requests with filters
func (s *SchedulingService) List(ctx context.Context, filters repositories.RequestFilters) ([]*entities.SchedulingRequest, error) {
	reqs, err := s.requests.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduling requests: %w", err)
	}
	return reqs, nil
}

// Transition moves a request through the state machine
func (s *SchedulingService) Transition(ctx context.Context, id uuid.UUID, to entities.RequestStatus, input TransitionInput) (*entities.SchedulingRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transitioner.Apply(ctx, req, to, Change{
		Actor:         input.Actor,
		Reasoning:     input.Reasoning,
		ConfirmedTime: input.ConfirmedTime,
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// Cancel moves a request to cancelled
func (s *SchedulingService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*entities.SchedulingRequest, error) {
	if reason == "" {
		reason = "cancelled by user"
	}
	return s.Transition(ctx, id, entities.StatusCancelled, TransitionInput{Actor: entities.ActorHuman, Reasoning: reason})
}

// Pause hands a request to a human
func (s *SchedulingService) Pause(ctx context.Context, id uuid.UUID, reason string) (*entities.SchedulingRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.pauser.Pause(ctx, req, reason); err != nil {
		return nil, err
	}
	return req, nil
}

// Resume returns a paused request to its previous status
func (s *SchedulingService) Resume(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != entities.StatusPaused {
		return nil, usecaseErrors.ErrRequestNotPaused
	}
	reasoning := fmt.Sprintf("resumed by human after %s", req.PausedReason)
	if err := s.transitioner.Apply(ctx, req, req.PausedFrom, Change{Actor: entities.ActorHuman, Reasoning: reasoning}); err != nil {
		return nil, err
	}
	return req, nil
}

// ReportNoShow marks the confirmed meeting as missed. The no-show checker
// settles the request once the meeting window has passed.
func (s *SchedulingService) ReportNoShow(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, entities.ErrRequestTerminal
	}
	if req.Status != entities.StatusConfirmed && req.Status != entities.StatusReminderSent {
		return nil, usecaseErrors.ErrNoConfirmedMeeting
	}
	if req.NoShowReportedAt != nil {
		return req, nil
	}
	now := s.now()
	err = s.transitioner.Update(ctx, req, Change{
		Actor:      entities.ActorHuman,
		ActionType: entities.ActionNoShowReported,
		Reasoning:  "external party reported as no-show",
		Mutate: func(r *entities.SchedulingRequest) {
			r.NoShowReportedAt = &now
		},
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// SettleMeeting closes out a meeting whose window has passed
func (s *SchedulingService) SettleMeeting(ctx context.Context, req *entities.SchedulingRequest) error {
	if req.NoShowReportedAt != nil {
		return s.transitioner.Apply(ctx, req, entities.StatusNoShow, Change{
			Reasoning: "meeting ended with a reported no-show",
			Mutate: func(r *entities.SchedulingRequest) {
				r.NoShowCount++
			},
		})
	}
	return s.transitioner.Apply(ctx, req, entities.StatusCompleted, Change{
		Reasoning: "meeting window elapsed without a no-show report",
	})
}

// RecoverNoShow restarts negotiation after a no-show
func (s *SchedulingService) RecoverNoShow(ctx context.Context, id uuid.UUID, times []time.Time) (*entities.SchedulingRequest, *entities.Draft, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != entities.StatusNoShow {
		return nil, nil, usecaseErrors.ErrRequestNotNoShow
	}
	return s.propose(ctx, req, times, entities.TimeSourceManual, entities.ActorHuman, "recovering after no-show")
}

// ListActions returns the audit trail in causal order
func (s *SchedulingService) ListActions(ctx context.Context, id uuid.UUID) ([]*entities.SchedulingAction, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	actions, err := s.actions.ListByRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return actions, nil
}

// QueueInitialProposal creates the first proposal draft for an initiated request
func (s *SchedulingService) QueueInitialProposal(ctx context.Context, id uuid.UUID, times []time.Time) (*entities.SchedulingRequest, *entities.Draft, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.IsTerminal() {
		return nil, nil, entities.ErrRequestTerminal
	}
	if req.Status != entities.StatusInitiated {
		return nil, nil, entities.ErrInvalidTransition
	}
	return s.propose(ctx, req, times, entities.TimeSourceInitialProposal, entities.ActorAutomation, "initial proposal queued")
}

// propose queues a proposal draft and moves the request to proposing. The
// draft key includes the attempt number, so a retry after a lost update
// finds the same draft.
func (s *SchedulingService) propose(ctx context.Context, req *entities.SchedulingRequest, times []time.Time, source entities.TimeSource, actor entities.Actor, reasoning string) (*entities.SchedulingRequest, *entities.Draft, error) {
	if req.PrimaryContact() == nil {
		return nil, nil, usecaseErrors.ErrNoPrimaryContact
	}
	proposed := s.proposedTimes(req, times, source)
	if len(times) == 0 {
		proposed = s.upcoming(req.ProposedTimes)
	}
	if len(proposed) == 0 {
		return nil, nil, usecaseErrors.ErrNoProposedTimes
	}

	next := *req
	next.ProposedTimes = proposed
	draft, err := s.drafter.QueueProposal(ctx, &next)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to queue proposal: %w", err)
	}

	err = s.transitioner.Apply(ctx, req, entities.StatusProposing, Change{
		Actor:     actor,
		Reasoning: fmt.Sprintf("%s with %d time(s)", reasoning, len(proposed)),
		DraftID:   &draft.ID,
		Mutate: func(r *entities.SchedulingRequest) {
			r.ProposedTimes = proposed
			r.IncrementAttempt()
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return req, draft, nil
}

// proposedTimes converts future instants into display-ready candidates
func (s *SchedulingService) proposedTimes(req *entities.SchedulingRequest, times []time.Time, source entities.TimeSource) []entities.ProposedTime {
	loc := req.Location()
	now := s.now()
	var out []entities.ProposedTime
	for _, t := range times {
		if !t.After(now) {
			continue
		}
		out = append(out, entities.ProposedTime{
			Instant: t.UTC(),
			Display: t.In(loc).Format(displayLayout),
			Source:  source,
		})
	}
	return out
}

func (s *SchedulingService) upcoming(times []entities.ProposedTime) []entities.ProposedTime {
	now := s.now()
	var out []entities.ProposedTime
	for _, p := range times {
		if p.Instant.After(now) {
			out = append(out, p)
		}
	}
	return out
}
