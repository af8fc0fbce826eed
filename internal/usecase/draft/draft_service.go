package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

const displayLayout = "Mon Jan 2, 3:04 PM MST"

// DraftService handles the draft approval queue and its execution
type DraftService struct {
	drafts       repositories.DraftRepository
	requests     repositories.SchedulingRequestRepository
	actions      repositories.ActionRepository
	sink         repositories.WorkItemSink
	transitioner *scheduling.Transitioner
	templates    *Templates
	mailer       providers.Mailer
	calendar     providers.Calendar
	archive      providers.BodyArchive
	rules        config.DraftRules
	logger       *zap.Logger
	now          func() time.Time
}

// NewDraftService creates a new draft service. archive may be nil, in which
// case bodies stay inline on the draft.
func NewDraftService(
	drafts repositories.DraftRepository,
	requests repositories.SchedulingRequestRepository,
	actions repositories.ActionRepository,
	sink repositories.WorkItemSink,
	transitioner *scheduling.Transitioner,
	templates *Templates,
	mailer providers.Mailer,
	calendar providers.Calendar,
	archive providers.BodyArchive,
	rules config.DraftRules,
	logger *zap.Logger,
) *DraftService {
	return &DraftService{
		drafts:       drafts,
		requests:     requests,
		actions:      actions,
		sink:         sink,
		transitioner: transitioner,
		templates:    templates,
		mailer:       mailer,
		calendar:     calendar,
		archive:      archive,
		rules:        rules,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput represents input for creating a draft
type CreateInput struct {
	RequestID      uuid.UUID
	Type           entities.DraftType
	Payload        entities.DraftPayload
	Confidence     entities.ConfidenceTier
	Reasoning      string
	IdempotencyKey string
}

// Create stores a pending draft, or returns the draft already holding the key
func (s *DraftService) Create(ctx context.Context, input CreateInput) (*entities.Draft, error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		return nil, entities.ErrMissingIdempotencyKey
	}
	if !input.Type.IsValid() {
		return nil, entities.ErrInvalidDraftType
	}

	existing, err := s.drafts.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up draft: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	confidence := input.Confidence
	if confidence == "" {
		confidence = entities.ConfidenceMedium
	}
	now := s.now()
	expires := now.Add(s.rules.Expiry())
	d := &entities.Draft{
		ID:             uuid.New(),
		RequestID:      input.RequestID,
		Type:           input.Type,
		Status:         entities.DraftStatusPending,
		Payload:        input.Payload,
		Confidence:     confidence,
		Reasoning:      input.Reasoning,
		IdempotencyKey: key,
		ExpiresAt:      &expires,
		MaxRetries:     s.rules.MaxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.drafts.Create(ctx, d); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// lost the insert race; the winner's row is the draft
			if winner, ferr := s.drafts.FindByIdempotencyKey(ctx, key); ferr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	actionType := entities.ActionEmailQueued
	if !d.Type.IsEmail() {
		actionType = entities.ActionBookingQueued
	}
	action := entities.NewAction(d.RequestID, actionType, entities.ActorAutomation, d.Reasoning)
	action.DraftID = &d.ID
	action.MessageSubject = d.Payload.Subject
	if err := s.actions.Append(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to append action: %w", err)
	}

	reqID := d.RequestID
	item := entities.NewWorkItem(entities.WorkItemDraftApproval, &reqID, string(d.Type), map[string]string{
		"confidence": string(d.Confidence),
		"subject":    d.Payload.Subject,
	})
	item.DraftID = &d.ID
	if err := s.sink.Create(ctx, item); err != nil {
		// the draft is still listed under GET /v1/drafts
		s.logger.Warn("⚠️ Failed to publish draft approval work item",
			zap.String("draft_id", d.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("📝 Draft queued for approval",
		zap.String("draft_id", d.ID.String()),
		zap.String("request_id", d.RequestID.String()),
		zap.String("type", string(d.Type)),
		zap.String("confidence", string(d.Confidence)),
	)
	return d, nil
}

// Get retrieves a draft by ID
func (s *DraftService) Get(ctx context.Context, id uuid.UUID) (*entities.Draft, error) {
	d, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if d == nil {
		return nil, usecaseErrors.ErrDraftNotFound
	}
	return d, nil
}

// List retrieves drafts in a status
func (s *DraftService) List(ctx context.Context, status entities.DraftStatus, limit int) ([]*entities.Draft, error) {
	drafts, err := s.drafts.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}

// ListByRequest retrieves the drafts of one request
func (s *DraftService) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entities.Draft, error) {
	drafts, err := s.drafts.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}

// Approve moves a pending draft to approved. The edit overlay is applied at
// execution time and never rewrites the stored payload.
func (s *DraftService) Approve(ctx context.Context, id uuid.UUID, approvedBy string, edits *entities.DraftEdits) (*entities.Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entities.DraftStatusPending {
		return nil, entities.ErrDraftNotPending
	}
	now := s.now()
	if d.IsExpired(now) {
		if err := s.expire(ctx, d); err != nil && !usecaseErrors.IsConcurrencyConflict(err) {
			return nil, err
		}
		return nil, entities.ErrDraftExpired
	}

	d.Status = entities.DraftStatusApproved
	d.ApprovedBy = approvedBy
	d.ApprovedAt = &now
	d.UserEdits = edits
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusPending); err != nil {
		return nil, err
	}

	reasoning := fmt.Sprintf("%s approved by %s", d.Type, approvedBy)
	if edits != nil {
		reasoning += " with edits"
	}
	s.appendDraftAction(ctx, d, entities.ActionDraftApproved, entities.ActorHuman, reasoning)
	return d, nil
}

// Reject closes a pending draft. Rejecting a booking sends a confirming
// request back to negotiating.
func (s *DraftService) Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string) (*entities.Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entities.DraftStatusPending {
		return nil, entities.ErrDraftNotPending
	}
	d.Status = entities.DraftStatusRejected
	d.RejectedBy = rejectedBy
	d.RejectionReason = reason
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusPending); err != nil {
		return nil, err
	}
	s.appendDraftAction(ctx, d, entities.ActionDraftRejected, entities.ActorHuman, fmt.Sprintf("%s rejected by %s: %s", d.Type, rejectedBy, reason))

	if d.Type == entities.DraftTypeCalendarBook || d.Type == entities.DraftTypeCalendarUpdate {
		req, err := s.requests.FindByID(ctx, d.RequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scheduling request: %w", err)
		}
		if req != nil && req.Status == entities.StatusConfirming {
			err := s.transitioner.Apply(ctx, req, entities.StatusNegotiating, scheduling.Change{
				Actor:     entities.ActorHuman,
				Reasoning: "booking rejected: " + reason,
				DraftID:   &d.ID,
			})
			if err != nil && !usecaseErrors.IsConcurrencyConflict(err) {
				return nil, err
			}
		}
	}
	return d, nil
}

// Reapprove returns a failed draft to approved while retries remain
func (s *DraftService) Reapprove(ctx context.Context, id uuid.UUID, approvedBy string) (*entities.Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entities.DraftStatusFailed {
		return nil, entities.ErrDraftNotFailed
	}
	if !d.CanRetry() {
		return nil, entities.ErrDraftRetriesExhausted
	}
	now := s.now()
	d.Status = entities.DraftStatusApproved
	d.ApprovedBy = approvedBy
	d.ApprovedAt = &now
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusFailed); err != nil {
		return nil, err
	}
	s.appendDraftAction(ctx, d, entities.ActionDraftApproved, entities.ActorHuman,
		fmt.Sprintf("%s re-approved by %s after failure %d/%d", d.Type, approvedBy, d.RetryCount, d.MaxRetries))
	return d, nil
}

// ExpireStale marks pending drafts past their expiry as expired
func (s *DraftService) ExpireStale(ctx context.Context, limit int) (int, error) {
	stale, err := s.drafts.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired drafts: %w", err)
	}
	expired := 0
	for _, d := range stale {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if err := s.expire(ctx, d); err != nil {
			if usecaseErrors.IsConcurrencyConflict(err) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *DraftService) expire(ctx context.Context, d *entities.Draft) error {
	d.Status = entities.DraftStatusExpired
	if err := s.drafts.SaveIfStatus(ctx, d, entities.DraftStatusPending); err != nil {
		return err
	}
	s.appendDraftAction(ctx, d, entities.ActionDraftExpired, entities.ActorAutomation, fmt.Sprintf("%s expired without approval", d.Type))
	s.logger.Info("⏰ Draft expired",
		zap.String("draft_id", d.ID.String()),
		zap.String("request_id", d.RequestID.String()),
	)
	return nil
}

// appendDraftAction records a draft lifecycle event. The draft row is the
// source of truth, so a failed audit write is logged rather than returned.
func (s *DraftService) appendDraftAction(ctx context.Context, d *entities.Draft, actionType entities.ActionType, actor entities.Actor, reasoning string) {
	action := entities.NewAction(d.RequestID, actionType, actor, reasoning)
	action.DraftID = &d.ID
	action.MessageSubject = d.Payload.Subject
	if err := s.actions.Append(ctx, action); err != nil {
		s.logger.Error("❌ Failed to append draft action",
			zap.String("draft_id", d.ID.String()),
			zap.String("action_type", string(actionType)),
			zap.Error(err),
		)
	}
}
