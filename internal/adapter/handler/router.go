package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/errors"
	httpmw "github.com/johnquangdev/meeting-scheduler/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/health"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// Handlers groups the route handlers. Mailbox is nil when no Google client
// is configured, Archive when object storage is disabled.
type Handlers struct {
	Scheduling *Scheduling
	Drafts     *Draft
	Inbound    *Inbound
	WorkItems  *WorkItem
	Jobs       *Job
	Mailbox    *Mailbox
	Archive    *Archive
}

// Router holds all handlers
type Router struct {
	cfg      *config.Config
	health   health.Service
	handlers Handlers
	logger   *zap.Logger
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, checker health.Service, handlers Handlers, logger *zap.Logger) *Router {
	return &Router{
		cfg:      cfg,
		health:   checker,
		handlers: handlers,
		logger:   logger,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	v1 := e.Group("/v1")

	rt.setupSchedulingRoutes(v1)
	rt.setupDraftRoutes(v1)
	rt.setupWorkItemRoutes(v1)
	rt.setupJobRoutes(v1)
	rt.setupInboundRoutes(v1)

	if rt.handlers.Mailbox != nil {
		rt.setupMailboxRoutes(v1)
	}
}

func (rt *Router) setupInboundRoutes(g *echo.Group) {
	var mw []echo.MiddlewareFunc
	if rt.cfg.Server.InboundSecret != "" {
		mw = append(mw, httpmw.EchoSignature(rt.cfg.Server.InboundSecret))
	}
	g.POST("/inbound", rt.handlers.Inbound.Receive, mw...)
}

func (rt *Router) setupSchedulingRoutes(g *echo.Group) {
	h := rt.handlers.Scheduling
	requests := g.Group("/scheduling-requests")

	requests.POST("", h.Create)
	requests.GET("", h.List)
	requests.GET("/:id", h.Get)
	requests.GET("/:id/actions", h.ListActions)
	requests.POST("/:id/cancel", h.Cancel)
	requests.POST("/:id/pause", h.Pause)
	requests.POST("/:id/resume", h.Resume)
	requests.POST("/:id/no-show", h.ReportNoShow)
	requests.POST("/:id/recover", h.Recover)
	requests.POST("/:id/propose", h.Propose)
	requests.POST("/:id/unlink", h.Unlink)
	if rt.handlers.Archive != nil {
		requests.GET("/:id/actions/:seq/body", rt.handlers.Archive.GetBody)
	}
}

func (rt *Router) setupDraftRoutes(g *echo.Group) {
	h := rt.handlers.Drafts
	drafts := g.Group("/drafts")

	drafts.GET("", h.List)
	drafts.GET("/:id", h.Get)
	drafts.POST("/:id/approve", h.Approve)
	drafts.POST("/:id/reject", h.Reject)
	drafts.POST("/:id/reapprove", h.Reapprove)
}

func (rt *Router) setupWorkItemRoutes(g *echo.Group) {
	h := rt.handlers.WorkItems
	items := g.Group("/work-items")

	items.GET("", h.List)
	items.POST("/:id/resolve", h.Resolve)
	items.POST("/:id/accept-link", h.AcceptLink)
}

func (rt *Router) setupJobRoutes(g *echo.Group) {
	h := rt.handlers.Jobs
	jobs := g.Group("/jobs")

	jobs.GET("", h.List)
	jobs.POST("/:name/run", h.Run)
}

func (rt *Router) setupMailboxRoutes(g *echo.Group) {
	h := rt.handlers.Mailbox
	mailbox := g.Group("/mailbox")

	mailbox.GET("/status", h.Status)
	// the callback hands out a refresh token, keep the flow off production
	if rt.cfg.Server.Environment != "production" {
		mailbox.GET("/connect", h.Connect)
		mailbox.GET("/callback", h.Callback)
	}
}

// healthCheck returns the health report; unhealthy answers 503
func (rt *Router) healthCheck(c echo.Context) error {
	report, err := rt.health.Check(c.Request().Context())
	if err != nil {
		return HandleError(rt.logger, c, errors.ErrInternal(err))
	}

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]interface{}{
		"status":      report.Status,
		"environment": rt.cfg.Server.Environment,
		"report":      report,
	})
}
