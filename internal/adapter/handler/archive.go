package handler

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/storage"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
)

// BodyReader reads archived message bodies
type BodyReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Archive serves sent message bodies kept in object storage
type Archive struct {
	svc    scheduling.Service
	bodies BodyReader
	logger *zap.Logger
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(svc scheduling.Service, bodies BodyReader, logger *zap.Logger) *Archive {
	return &Archive{
		svc:    svc,
		bodies: bodies,
		logger: logger,
	}
}

// GetBody handles GET /v1/scheduling-requests/:id/actions/:seq/body
// @Summary      Archived body of a sent message
// @Tags         Scheduling
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Param        seq  path      int     true  "Action sequence"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /v1/scheduling-requests/{id}/actions/{seq}/body [get]
func (h *Archive) GetBody(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	seq, err := strconv.ParseInt(c.Param("seq"), 10, 64)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid seq"))
	}

	ctx := c.Request().Context()
	actions, err := h.svc.ListActions(ctx, id)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, id.String()))
	}
	for _, a := range actions {
		if a.Sequence != seq {
			continue
		}
		key, ok := storage.KeyFromRef(a.BodyRef)
		if !ok {
			break
		}
		body, err := h.bodies.Get(ctx, key)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrStorageFailed("get body", err))
		}
		return HandleSuccess(h.logger, c, map[string]interface{}{
			"sequence": a.Sequence,
			"body_ref": a.BodyRef,
			"subject":  a.MessageSubject,
			"body":     body,
		})
	}
	return HandleError(h.logger, c, errors.ErrNotFound("Archived body"))
}
