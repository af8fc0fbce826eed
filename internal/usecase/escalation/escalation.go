package escalation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
)

// Reasons a request is handed to a human
const (
	ReasonLowConfidence     = "low_confidence"
	ReasonConfused          = "confused"
	ReasonUnclearIntent     = "unclear_intent"
	ReasonAcceptTimeUnclear = "accepted_but_time_unclear"
	ReasonAmbiguousCounter  = "ambiguous_counter_proposal"
	ReasonDelegation        = "delegation"
	ReasonDeclinedNotNow    = "declined_not_now"
	ReasonBookingConflict   = "booking_conflict"
	ReasonSLAExhausted      = "sla_exhausted"
	ReasonOutOfOffice       = "out_of_office"
	ReasonManual            = "manual_pause"
)

const maxAttempts = 3

// Escalator pauses requests and surfaces them for human review
type Escalator struct {
	requests repositories.SchedulingRequestRepository
	actions  repositories.ActionRepository
	sink     repositories.WorkItemSink
	logger   *zap.Logger
	now      func() time.Time
}

// NewEscalator creates a new escalator
func NewEscalator(
	requests repositories.SchedulingRequestRepository,
	actions repositories.ActionRepository,
	sink repositories.WorkItemSink,
	logger *zap.Logger,
) *Escalator {
	return &Escalator{
		requests: requests,
		actions:  actions,
		sink:     sink,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EscalateToHumanReview pauses the request, remembering its status for resume,
// and opens a work item. A request that is already paused only gets a new
// work item and action. On return req holds the stored state.
func (e *Escalator) EscalateToHumanReview(ctx context.Context, req *entities.SchedulingRequest, reason string, details map[string]string) error {
	return e.escalate(ctx, req, reason, details, entities.ActorAutomation)
}

// Pause is a human-initiated escalation
func (e *Escalator) Pause(ctx context.Context, req *entities.SchedulingRequest, reason string) error {
	if reason == "" {
		reason = ReasonManual
	}
	return e.escalate(ctx, req, reason, nil, entities.ActorHuman)
}

func (e *Escalator) escalate(ctx context.Context, req *entities.SchedulingRequest, reason string, details map[string]string, actor entities.Actor) error {
	var prev entities.RequestStatus
	for attempt := 0; ; attempt++ {
		if req.IsTerminal() {
			return entities.ErrRequestTerminal
		}
		prev = req.Status
		if prev == entities.StatusPaused {
			break
		}

		expectedStatus, expectedVersion := req.Status, req.Version
		updated := *req
		if err := updated.ApplyTransition(entities.StatusPaused, nil, e.now()); err != nil {
			return err
		}
		updated.PausedReason = reason
		updated.PausedDetails = formatDetails(details)
		updated.NextActionType = entities.NextActionHumanReview
		updated.NextActionDue = nil

		err := e.requests.UpdateIfUnchanged(ctx, &updated, expectedStatus, expectedVersion)
		if err == nil {
			*req = updated
			break
		}
		if !errors.Is(err, usecaseErrors.ErrConcurrentUpdate) || attempt+1 >= maxAttempts {
			return fmt.Errorf("failed to pause request: %w", err)
		}
		// another writer moved the request; re-read and try again
		fresh, ferr := e.requests.FindByID(ctx, req.ID)
		if ferr != nil {
			return fmt.Errorf("failed to reload request: %w", ferr)
		}
		if fresh == nil {
			return usecaseErrors.ErrRequestNotFound
		}
		*req = *fresh
	}

	itemDetails := make(map[string]string, len(details)+1)
	for k, v := range details {
		itemDetails[k] = v
	}
	itemDetails["previous_status"] = string(prev)
	if req.PausedFrom != "" {
		itemDetails["resume_to"] = string(req.PausedFrom)
	}
	reqID := req.ID
	item := entities.NewWorkItem(entities.WorkItemEscalation, &reqID, reason, itemDetails)
	if id, err := uuid.Parse(details["draft_id"]); err == nil {
		item.DraftID = &id
	}
	if err := e.sink.Create(ctx, item); err != nil {
		return fmt.Errorf("failed to create work item: %w", err)
	}

	reasoning := reason
	if s := formatDetails(details); s != "" {
		reasoning = reason + ": " + s
	}
	action := entities.NewAction(req.ID, entities.ActionEscalated, actor, reasoning).WithStatuses(prev, entities.StatusPaused)
	if err := e.actions.Append(ctx, action); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}

	e.logger.Warn("⚠️ Request escalated to human review",
		zap.String("request_id", req.ID.String()),
		zap.String("reason", reason),
		zap.String("previous_status", string(prev)),
	)
	return nil
}

// formatDetails renders details as a stable "k=v; k=v" string
func formatDetails(details map[string]string) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+details[k])
	}
	return strings.Join(parts, "; ")
}
