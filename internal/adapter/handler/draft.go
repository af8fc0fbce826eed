package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	dto "github.com/johnquangdev/meeting-scheduler/internal/adapter/dto/draft"
	"github.com/johnquangdev/meeting-scheduler/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/draft"
)

// Draft handles the approval queue
type Draft struct {
	svc    draft.Service
	logger *zap.Logger
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(svc draft.Service, logger *zap.Logger) *Draft {
	return &Draft{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /v1/drafts
// @Summary      List drafts
// @Description  Lists drafts in a status, pending by default
// @Tags         Drafts
// @Produce      json
// @Param        status  query     string  false  "Draft status"  Enums(pending, approved, executing, executed, rejected, expired, failed)
// @Param        limit   query     int     false  "Max rows"
// @Success      200     {object}  draft.DraftListResponse
// @Router       /v1/drafts [get]
func (h *Draft) List(c echo.Context) error {
	var req dto.ListDraftsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	status := entities.DraftStatus(req.Status)
	if status == "" {
		status = entities.DraftStatusPending
	}
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	drafts, err := h.svc.List(c.Request().Context(), status, limit)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, ""))
	}
	return HandleSuccess(h.logger, c, presenter.ToDraftListResponse(drafts))
}

// Get handles GET /v1/drafts/:id
// @Summary      Get a draft
// @Tags         Drafts
// @Produce      json
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  draft.DraftResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /v1/drafts/{id} [get]
func (h *Draft) Get(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToDraftResponse(d))
}

// Approve handles POST /v1/drafts/:id/approve
// @Summary      Approve a pending draft
// @Description  Approves a draft, optionally overriding recipients, subject, body or booking start
// @Tags         Drafts
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Draft ID"
// @Param        request  body      draft.ApproveRequest  true  "Approval"
// @Success      200      {object}  draft.DraftResponse
// @Failure      409      {object}  map[string]interface{}  "Draft is not pending"
// @Failure      410      {object}  map[string]interface{}  "Draft expired"
// @Router       /v1/drafts/{id}/approve [post]
func (h *Draft) Approve(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ApproveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	var edits *entities.DraftEdits
	if len(req.To) > 0 || len(req.Cc) > 0 || req.Subject != nil || req.Body != nil || req.BookingStart != nil {
		edits = &entities.DraftEdits{
			To:           req.To,
			Cc:           req.Cc,
			Subject:      req.Subject,
			Body:         req.Body,
			BookingStart: req.BookingStart,
		}
	}

	d, err := h.svc.Approve(c.Request().Context(), id, req.ApprovedBy, edits)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToDraftResponse(d))
}

// Reject handles POST /v1/drafts/:id/reject
// @Summary      Reject a pending draft
// @Tags         Drafts
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Draft ID"
// @Param        request  body      draft.RejectRequest  true  "Rejection"
// @Success      200      {object}  draft.DraftResponse
// @Router       /v1/drafts/{id}/reject [post]
func (h *Draft) Reject(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.RejectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	d, err := h.svc.Reject(c.Request().Context(), id, req.RejectedBy, req.Reason)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToDraftResponse(d))
}

// Reapprove handles POST /v1/drafts/:id/reapprove
// @Summary      Retry a failed draft
// @Tags         Drafts
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Draft ID"
// @Param        request  body      draft.ReapproveRequest  true  "Reviewer"
// @Success      200      {object}  draft.DraftResponse
// @Failure      409      {object}  map[string]interface{}  "No retries left"
// @Router       /v1/drafts/{id}/reapprove [post]
func (h *Draft) Reapprove(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ReapproveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	d, err := h.svc.Reapprove(c.Request().Context(), id, req.ApprovedBy)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToDraftResponse(d))
}
