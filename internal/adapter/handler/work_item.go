package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	dto "github.com/johnquangdev/meeting-scheduler/internal/adapter/dto/workitem"
	"github.com/johnquangdev/meeting-scheduler/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/linker"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/workitem"
)

// WorkItem handles the human review queue
type WorkItem struct {
	svc    workitem.Service
	linker linker.Service
	logger *zap.Logger
}

// NewWorkItemHandler creates a new work item handler
func NewWorkItemHandler(svc workitem.Service, linkerSvc linker.Service, logger *zap.Logger) *WorkItem {
	return &WorkItem{
		svc:    svc,
		linker: linkerSvc,
		logger: logger,
	}
}

// List handles GET /v1/work-items
// @Summary      List work items
// @Tags         WorkItems
// @Produce      json
// @Param        status  query     string  false  "open or resolved"  Enums(open, resolved)
// @Param        limit   query     int     false  "Max rows"
// @Success      200     {object}  workitem.WorkItemListResponse
// @Router       /v1/work-items [get]
func (h *WorkItem) List(c echo.Context) error {
	var req dto.ListWorkItemsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	items, err := h.svc.List(c.Request().Context(), entities.WorkItemStatus(req.Status), req.Limit)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, ""))
	}
	return HandleSuccess(h.logger, c, &dto.WorkItemListResponse{WorkItems: items, Count: len(items)})
}

// Resolve handles POST /v1/work-items/:id/resolve
// @Summary      Resolve a work item
// @Tags         WorkItems
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Work item ID"
// @Param        request  body      workitem.ResolveRequest  true  "Reviewer"
// @Success      200      {object}  entities.WorkItem
// @Failure      409      {object}  map[string]interface{}  "Already resolved"
// @Router       /v1/work-items/{id}/resolve [post]
func (h *WorkItem) Resolve(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ResolveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	item, err := h.svc.Resolve(c.Request().Context(), id, req.ResolvedBy)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, item)
}

// AcceptLink handles POST /v1/work-items/:id/accept-link
// @Summary      Accept a link suggestion
// @Description  Applies the CRM links proposed by a link_suggestion work item and resolves it
// @Tags         WorkItems
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Work item ID"
// @Param        request  body      workitem.ResolveRequest  true  "Reviewer"
// @Success      200      {object}  scheduling.RequestResponse
// @Router       /v1/work-items/{id}/accept-link [post]
func (h *WorkItem) AcceptLink(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ResolveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.linker.AcceptSuggestion(c.Request().Context(), id, req.ResolvedBy)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestResponse(updated))
}
