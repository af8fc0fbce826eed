package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/usecase/jobs"
)

// Job exposes the background job registry
type Job struct {
	svc    jobs.Service
	logger *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(svc jobs.Service, logger *zap.Logger) *Job {
	return &Job{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /v1/jobs
// @Summary      List jobs
// @Description  Registered jobs with their schedule and last run
// @Tags         Jobs
// @Produce      json
// @Success      200  {array}  jobs.JobStatus
// @Router       /v1/jobs [get]
func (h *Job) List(c echo.Context) error {
	status, err := h.svc.Status(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, mapError(err, ""))
	}
	return HandleSuccess(h.logger, c, status)
}

// Run handles POST /v1/jobs/:name/run
// @Summary      Run a job now
// @Tags         Jobs
// @Produce      json
// @Param        name  path      string  true  "Job name"
// @Success      200   {object}  entities.JobRun
// @Failure      404   {object}  map[string]interface{}  "Unknown job"
// @Failure      409   {object}  map[string]interface{}  "Job already running"
// @Router       /v1/jobs/{name}/run [post]
func (h *Job) Run(c echo.Context) error {
	name := c.Param("name")
	run, err := h.svc.Trigger(c.Request().Context(), name)
	if err != nil {
		return HandleError(h.logger, c, mapError(err, name))
	}
	return HandleSuccess(h.logger, c, run)
}
