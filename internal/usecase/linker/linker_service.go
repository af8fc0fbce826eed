package linker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
)

// LinkerService attaches company, contact and deal records to requests
type LinkerService struct {
	scorer    *Scorer
	directory repositories.DirectoryRepository
	requests  repositories.SchedulingRequestRepository
	actions   repositories.ActionRepository
	workItems repositories.WorkItemRepository
	sink      repositories.WorkItemSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewLinkerService creates a new linker service
func NewLinkerService(
	scorer *Scorer,
	directory repositories.DirectoryRepository,
	requests repositories.SchedulingRequestRepository,
	actions repositories.ActionRepository,
	workItems repositories.WorkItemRepository,
	sink repositories.WorkItemSink,
	logger *zap.Logger,
) *LinkerService {
	return &LinkerService{
		scorer:    scorer,
		directory: directory,
		requests:  requests,
		actions:   actions,
		workItems: workItems,
		sink:      sink,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Link scores the message and applies the decision
func (s *LinkerService) Link(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (*Score, error) {
	// human links and earlier automatic links are never replaced
	if req.LinkMethod == entities.LinkMethodManual || req.LinkMethod == entities.LinkMethodAuto {
		return nil, nil
	}

	in, err := s.gather(ctx, req, msg)
	if err != nil {
		return nil, err
	}
	score := s.scorer.Score(in)

	switch score.Decision {
	case DecisionAutoLink:
		if err := s.applyAuto(ctx, req, &score); err != nil {
			return nil, err
		}
	case DecisionSuggest:
		if err := s.suggest(ctx, req, &score); err != nil {
			return nil, err
		}
		msg.LinkSuggestion = score.Reasoning
	default:
		s.logger.Debug("no link",
			zap.String("request_id", req.ID.String()),
			zap.Int("score", score.Total),
		)
	}
	return &score, nil
}

func (s *LinkerService) gather(ctx context.Context, req *entities.SchedulingRequest, msg *entities.InboundMessage) (Input, error) {
	in := Input{
		SenderEmail:     strings.ToLower(strings.TrimSpace(msg.FromEmail)),
		Subject:         msg.Subject,
		Now:             msg.ReceivedAt,
		ThreadDealID:    req.DealID,
		ThreadCompanyID: req.CompanyID,
	}
	if in.Now.IsZero() {
		in.Now = s.now()
	}

	emails := []string{in.SenderEmail}
	for _, p := range msg.Participants {
		emails = append(emails, strings.ToLower(strings.TrimSpace(p)))
	}
	contacts, err := s.directory.FindContactsByEmails(ctx, emails)
	if err != nil {
		return in, fmt.Errorf("failed to find contacts: %w", err)
	}
	for _, c := range contacts {
		if strings.EqualFold(c.Email, in.SenderEmail) {
			in.SenderContact = c
			break
		}
	}

	if domain := domainOf(in.SenderEmail); domain != "" && !s.scorer.IsFreeMail(domain) {
		company, err := s.directory.FindCompanyByDomain(ctx, domain)
		if err != nil {
			return in, fmt.Errorf("failed to find company: %w", err)
		}
		in.DomainCompany = company
	}

	var companyID *uuid.UUID
	switch {
	case in.SenderContact != nil && in.SenderContact.CompanyID != nil:
		companyID = in.SenderContact.CompanyID
	case in.DomainCompany != nil:
		companyID = &in.DomainCompany.ID
	}
	if companyID != nil {
		deals, err := s.directory.FindActiveDeals(ctx, *companyID)
		if err != nil {
			return in, fmt.Errorf("failed to find deals: %w", err)
		}
		for _, d := range deals {
			// deals owned by another contact at the company are not the sender's
			if d.ContactID != nil && (in.SenderContact == nil || *d.ContactID != in.SenderContact.ID) {
				continue
			}
			in.Deals = append(in.Deals, d)
		}
	}
	return in, nil
}

func (s *LinkerService) applyAuto(ctx context.Context, req *entities.SchedulingRequest, score *Score) error {
	expectedStatus, expectedVersion := req.Status, req.Version
	req.CompanyID = score.CompanyID
	req.ContactID = score.ContactID
	req.DealID = score.DealID
	req.LinkConfidence = score.Total
	req.LinkMethod = entities.LinkMethodAuto
	req.LinkReasoning = score.Reasoning
	if err := s.fillStage(ctx, req); err != nil {
		return err
	}
	if err := s.requests.UpdateIfUnchanged(ctx, req, expectedStatus, expectedVersion); err != nil {
		return err
	}

	reasoning := fmt.Sprintf("auto-linked at %d: %s (undo: POST /v1/scheduling-requests/%s/unlink)", score.Total, score.Reasoning, req.ID)
	if err := s.actions.Append(ctx, entities.NewAction(req.ID, entities.ActionLinkApplied, entities.ActorAutomation, reasoning)); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	s.logger.Info("🔗 Request auto-linked",
		zap.String("request_id", req.ID.String()),
		zap.Int("score", score.Total),
	)
	return nil
}

func (s *LinkerService) suggest(ctx context.Context, req *entities.SchedulingRequest, score *Score) error {
	details := map[string]string{
		"score":     strconv.Itoa(score.Total),
		"reasoning": score.Reasoning,
	}
	if score.CompanyID != nil {
		details["company_id"] = score.CompanyID.String()
	}
	if score.ContactID != nil {
		details["contact_id"] = score.ContactID.String()
	}
	if score.DealID != nil {
		details["deal_id"] = score.DealID.String()
	}
	reqID := req.ID
	item := entities.NewWorkItem(entities.WorkItemLinkSuggestion, &reqID, "link_suggestion", details)
	if err := s.sink.Create(ctx, item); err != nil {
		return fmt.Errorf("failed to create work item: %w", err)
	}
	reasoning := fmt.Sprintf("suggested link at %d: %s", score.Total, score.Reasoning)
	if err := s.actions.Append(ctx, entities.NewAction(req.ID, entities.ActionLinkSuggested, entities.ActorAutomation, reasoning)); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

// AcceptSuggestion applies the links stored on a suggestion work item
func (s *LinkerService) AcceptSuggestion(ctx context.Context, workItemID uuid.UUID, resolvedBy string) (*entities.SchedulingRequest, error) {
	item, err := s.workItems.FindByID(ctx, workItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get work item: %w", err)
	}
	if item == nil {
		return nil, usecaseErrors.ErrWorkItemNotFound
	}
	if item.Kind != entities.WorkItemLinkSuggestion || item.RequestID == nil {
		return nil, usecaseErrors.ErrNotLinkSuggestion
	}
	if item.Status == entities.WorkItemResolved {
		return nil, usecaseErrors.ErrWorkItemResolved
	}

	req, err := s.load(ctx, *item.RequestID)
	if err != nil {
		return nil, err
	}
	expectedStatus, expectedVersion := req.Status, req.Version
	req.CompanyID = parseID(item.Details["company_id"])
	req.ContactID = parseID(item.Details["contact_id"])
	req.DealID = parseID(item.Details["deal_id"])
	req.LinkMethod = entities.LinkMethodSuggested
	req.LinkReasoning = item.Details["reasoning"]
	if n, err := strconv.Atoi(item.Details["score"]); err == nil {
		req.LinkConfidence = n
	}
	if err := s.fillStage(ctx, req); err != nil {
		return nil, err
	}
	if err := s.requests.UpdateIfUnchanged(ctx, req, expectedStatus, expectedVersion); err != nil {
		return nil, err
	}
	if err := s.workItems.Resolve(ctx, item.ID, resolvedBy, s.now()); err != nil {
		return nil, err
	}
	reasoning := fmt.Sprintf("suggested link accepted by %s", resolvedBy)
	if err := s.actions.Append(ctx, entities.NewAction(req.ID, entities.ActionLinkApplied, entities.ActorHuman, reasoning)); err != nil {
		return nil, fmt.Errorf("failed to append action: %w", err)
	}
	return req, nil
}

// Undo clears the request's links
func (s *LinkerService) Undo(ctx context.Context, requestID uuid.UUID) (*entities.SchedulingRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, entities.ErrRequestTerminal
	}
	expectedStatus, expectedVersion := req.Status, req.Version
	req.CompanyID = nil
	req.ContactID = nil
	req.DealID = nil
	req.LinkConfidence = 0
	req.LinkMethod = entities.LinkMethodManual
	req.LinkReasoning = "links removed by a human"
	if err := s.requests.UpdateIfUnchanged(ctx, req, expectedStatus, expectedVersion); err != nil {
		return nil, err
	}
	if err := s.actions.Append(ctx, entities.NewAction(req.ID, entities.ActionLinkApplied, entities.ActorHuman, req.LinkReasoning)); err != nil {
		return nil, fmt.Errorf("failed to append action: %w", err)
	}
	return req, nil
}

func (s *LinkerService) load(ctx context.Context, id uuid.UUID) (*entities.SchedulingRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduling request: %w", err)
	}
	if req == nil {
		return nil, usecaseErrors.ErrRequestNotFound
	}
	return req, nil
}

// fillStage copies the linked deal's stage so the SLA rule table can use it
func (s *LinkerService) fillStage(ctx context.Context, req *entities.SchedulingRequest) error {
	if req.DealID == nil {
		return nil
	}
	deal, err := s.directory.FindDealByID(ctx, *req.DealID)
	if err != nil {
		return fmt.Errorf("failed to get deal: %w", err)
	}
	if deal != nil {
		req.DealStage = deal.Stage
	}
	return nil
}

func parseID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
