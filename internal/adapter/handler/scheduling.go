package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/errors"
	dto "github.com/johnquangdev/meeting-scheduler/internal/adapter/dto/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/linker"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
)

// Scheduling handles scheduling request HTTP requests
type Scheduling struct {
	svc    scheduling.Service
	linker linker.Service
	logger *zap.Logger
}

// NewSchedulingHandler creates a new scheduling handler
func NewSchedulingHandler(svc scheduling.Service, linkerSvc linker.Service, logger *zap.Logger) *Scheduling {
	return &Scheduling{
		svc:    svc,
		linker: linkerSvc,
		logger: logger,
	}
}

// Create handles POST /v1/scheduling-requests
// @Summary      Create a scheduling request
// @Description  Starts scheduling a meeting with an external party
// @Tags         Scheduling
// @Accept       json
// @Produce      json
// @Param        request  body      scheduling.CreateRequest  true  "Scheduling request"
// @Success      201      {object}  scheduling.RequestResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      409      {object}  map[string]interface{}  "Thread already claimed"
// @Router       /v1/scheduling-requests [post]
func (h *Scheduling) Create(c echo.Context) error {
	var req dto.CreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	input, err := toCreateInput(&req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	created, err := h.svc.Create(c.Request().Context(), input)
	if err != nil {
		thread := ""
		if req.ExternalThreadID != nil {
			thread = *req.ExternalThreadID
		}
		return HandleError(h.logger, c, mapError(err, thread))
	}

	return HandleCreated(h.logger, c, presenter.ToRequestResponse(created))
}

// List handles GET /v1/scheduling-requests
// @Summary      List scheduling requests
// @Tags         Scheduling
// @Produce      json
// @Param        status   query     []string  false  "Filter by status"
// @Param        user_id  query     string    false  "Filter by owner"
// @Param        limit    query     int       false  "Page size"
// @Param        offset   query     int       false  "Offset"
// @Success      200      {object}  scheduling.RequestListResponse
// @Router       /v1/scheduling-requests [get]
func (h *Scheduling) List(c echo.Context) error {
	var req dto.ListRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	filters := repositories.RequestFilters{Limit: req.Limit, Offset: req.Offset}
	if filters.Limit == 0 {
		filters.Limit = 50
	}
	for _, s := range req.Status {
		status := entities.RequestStatus(s)
		if !status.IsValid() {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid status: "+s))
		}
		filters.Statuses = append(filters.Statuses, status)
	}
	if req.UserID != "" {
		userID := uuid.MustParse(req.UserID)
		filters.UserID = &userID
	}

	reqs, err := h.svc.List(c.Request().Context(), filters)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, ""))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestListResponse(reqs))
}

// Get handles GET /v1/scheduling-requests/:id
// @Summary      Get a scheduling request
// @Tags         Scheduling
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  scheduling.RequestResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /v1/scheduling-requests/{id} [get]
func (h *Scheduling) Get(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	req, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestResponse(req))
}

// ListActions handles GET /v1/scheduling-requests/:id/actions
// @Summary      Audit trail of a request
// @Tags         Scheduling
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {array}   scheduling.ActionResponse
// @Router       /v1/scheduling-requests/{id}/actions [get]
func (h *Scheduling) ListActions(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	actions, err := h.svc.ListActions(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToActionResponses(actions))
}

// Cancel handles POST /v1/scheduling-requests/:id/cancel
// @Summary      Cancel a request
// @Tags         Scheduling
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true   "Request ID"
// @Param        request  body      scheduling.ReasonRequest  false  "Reason"
// @Success      200      {object}  scheduling.RequestResponse
// @Failure      409      {object}  map[string]interface{}  "Request already closed"
// @Router       /v1/scheduling-requests/{id}/cancel [post]
func (h *Scheduling) Cancel(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ReasonRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.svc.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestResponse(updated))
}

// Pause handles POST /v1/scheduling-requests/:id/pause
// @Summary      Hand a request to a human
// @Tags         Scheduling
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Request ID"
// @Param        request  body      scheduling.ReasonRequest  true  "Reason"
// @Success      200      {object}  scheduling.RequestResponse
// @Router       /v1/scheduling-requests/{id}/pause [post]
func (h *Scheduling) Pause(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.ReasonRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	if req.Reason == "" {
		req.Reason = "manual_pause"
	}

	updated, err := h.svc.Pause(c.Request().Context(), id, req.Reason)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestResponse(updated))
}

// Resume handles POST /v1/scheduling-requests/:id/resume
// @Summary      Resume a paused request
// @Tags         Scheduling
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  scheduling.RequestResponse
// @Failure      409  {object}  map[string]interface{}  "Request is not paused"
// @Router       /v1/scheduling-requests/{id}/resume [post]
func (h *Scheduling) Resume(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.svc.Resume(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestResponse(updated))
}

// ReportNoShow handles POST /v1/scheduling-requests/:id/no-show
// @Summary      Report that the external party did not attend
// @Tags         Scheduling
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  scheduling.RequestResponse
// @Router       /v1/scheduling-requests/{id}/no-show [post]
func (h *Scheduling) ReportNoShow(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.svc.ReportNoShow(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestResponse(updated))
}

// Recover handles POST /v1/scheduling-requests/:id/recover
// @Summary      Restart negotiation after a no-show
// @Tags         Scheduling
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Request ID"
// @Param        request  body      scheduling.TimesRequest  true  "New times"
// @Success      200      {object}  scheduling.ProposalResponse
// @Router       /v1/scheduling-requests/{id}/recover [post]
func (h *Scheduling) Recover(c echo.Context) error {
	return h.propose(c, h.svc.RecoverNoShow)
}

// Propose handles POST /v1/scheduling-requests/:id/propose
// @Summary      Queue the first proposal for a new request
// @Tags         Scheduling
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Request ID"
// @Param        request  body      scheduling.TimesRequest  true  "Times to offer"
// @Success      200      {object}  scheduling.ProposalResponse
// @Router       /v1/scheduling-requests/{id}/propose [post]
func (h *Scheduling) Propose(c echo.Context) error {
	return h.propose(c, h.svc.QueueInitialProposal)
}

type proposeFunc func(ctx context.Context, id uuid.UUID, times []time.Time) (*entities.SchedulingRequest, *entities.Draft, error)

func (h *Scheduling) propose(c echo.Context, fn proposeFunc) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.TimesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, d, err := fn(c.Request().Context(), id, req.Times)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, &dto.ProposalResponse{
		Request: presenter.ToRequestResponse(updated),
		Draft:   d,
	})
}

// Unlink handles POST /v1/scheduling-requests/:id/unlink
// @Summary      Undo automatic CRM links
// @Description  Clears links set by the linker; the request is treated as manually linked afterwards
// @Tags         Scheduling
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  scheduling.RequestResponse
// @Router       /v1/scheduling-requests/{id}/unlink [post]
func (h *Scheduling) Unlink(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.linker.Undo(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	return HandleSuccess(h.logger, c, presenter.ToRequestResponse(updated))
}

func toCreateInput(req *dto.CreateRequest) (scheduling.CreateRequestInput, error) {
	input := scheduling.CreateRequestInput{
		UserID:           uuid.MustParse(req.UserID),
		Title:            req.Title,
		MeetingType:      entities.MeetingType(req.MeetingType),
		DurationMinutes:  req.DurationMinutes,
		Timezone:         req.Timezone,
		DateRangeStart:   req.DateRangeStart,
		DateRangeEnd:     req.DateRangeEnd,
		Urgency:          entities.Urgency(req.Urgency),
		ProposedTimes:    req.ProposedTimes,
		ExternalThreadID: req.ExternalThreadID,
		SourceMessageID:  req.SourceMessageID,
		DealStage:        req.DealStage,
		ContactPersona:   req.ContactPersona,
	}
	for _, a := range req.Attendees {
		input.Attendees = append(input.Attendees, scheduling.AttendeeInput{
			Side:             entities.AttendeeSide(a.Side),
			Name:             a.Name,
			Email:            a.Email,
			Title:            a.Title,
			IsPrimaryContact: a.IsPrimaryContact,
			IsOrganizer:      a.IsOrganizer,
		})
	}

	var err error
	if input.CompanyID, err = optionalUUID(req.CompanyID, "company_id"); err != nil {
		return input, err
	}
	if input.ContactID, err = optionalUUID(req.ContactID, "contact_id"); err != nil {
		return input, err
	}
	if input.DealID, err = optionalUUID(req.DealID, "deal_id"); err != nil {
		return input, err
	}
	return input, nil
}

func optionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, errors.ErrInvalidArgument("invalid " + field)
	}
	return &id, nil
}
