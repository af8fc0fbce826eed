package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	dto "github.com/johnquangdev/meeting-scheduler/internal/adapter/dto/inbound"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/response"
)

// Inbound receives replies pushed by the mail provider
type Inbound struct {
	svc    response.Service
	logger *zap.Logger
}

// NewInboundHandler creates a new inbound handler
func NewInboundHandler(svc response.Service, logger *zap.Logger) *Inbound {
	return &Inbound{
		svc:    svc,
		logger: logger,
	}
}

// Receive handles POST /v1/inbound
// @Summary      Receive a reply
// @Description  Stores a reply and binds it to its scheduling request. With process=true the automation runs inline.
// @Tags         Inbound
// @Accept       json
// @Produce      json
// @Param        request  body      inbound.ReceiveRequest  true  "Reply"
// @Success      201      {object}  inbound.ReceiveResponse
// @Failure      409      {object}  map[string]interface{}  "Message already received"
// @Router       /v1/inbound [post]
func (h *Inbound) Receive(c echo.Context) error {
	var req dto.ReceiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	ctx := c.Request().Context()
	msg, err := h.svc.Receive(ctx, response.ReceiveInput{
		UserID:            uuid.MustParse(req.UserID),
		ProviderMessageID: req.ProviderMessageID,
		ThreadID:          req.ThreadID,
		InReplyTo:         req.InReplyTo,
		FromEmail:         req.FromEmail,
		FromName:          req.FromName,
		Participants:      req.Participants,
		Subject:           req.Subject,
		Body:              req.Body,
		ReceivedAt:        req.ReceivedAt,
	})
	if err != nil {
		return HandleError(h.logger, c, mapError(err, req.ProviderMessageID))
	}

	resp := &dto.ReceiveResponse{Message: msg}
	if req.Process {
		outcome, err := h.svc.Process(ctx, msg.ID)
		if err != nil {
			// stored; the process-responses job picks it up again
			h.logger.Warn("⚠️ Inline processing failed",
				zap.String("message_id", msg.ID.String()),
				zap.Error(err),
			)
		}
		resp.Outcome = outcome
	}
	return HandleCreated(h.logger, c, resp)
}
