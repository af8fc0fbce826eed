package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"

	pkgvalidator "github.com/johnquangdev/meeting-scheduler/pkg/validator"

	"github.com/johnquangdev/meeting-scheduler/internal/adapter/handler"
	"github.com/johnquangdev/meeting-scheduler/internal/adapter/repository"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/external/google"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/external/mail"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/external/oauth"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/memstore"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/messaging"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/storage"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/draft"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/escalation"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/health"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/intent"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/jobs"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/linker"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/response"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/sla"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/timeparser"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/workitem"
	pkgai "github.com/johnquangdev/meeting-scheduler/pkg/ai"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
	"github.com/johnquangdev/meeting-scheduler/pkg/distlock"
)

// @title           Meeting Scheduler API
// @version         1.0
// @description     Scheduling automation: requests, draft approval queue, human work items and background jobs
// @BasePath        /

// stores is the persistence backend selected by STORE_DRIVER
type stores struct {
	requests  repositories.SchedulingRequestRepository
	actions   repositories.ActionRepository
	drafts    repositories.DraftRepository
	patterns  repositories.PatternRepository
	inbound   repositories.InboundRepository
	workItems repositories.WorkItemRepository
	jobRuns   repositories.JobRunRepository
	directory repositories.DirectoryRepository
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))

	log.Println("🔧 Initializing dependencies...")
	ctx := context.Background()

	// Persistence
	var (
		st    stores
		sqlDB *sql.DB
	)
	switch cfg.Database.Driver {
	case "memory":
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		mem := memstore.New()
		st = stores{
			requests:  mem.Requests(),
			actions:   mem.Actions(),
			drafts:    mem.Drafts(),
			patterns:  mem.Patterns(),
			inbound:   mem.Inbound(),
			workItems: mem.WorkItems(),
			jobRuns:   mem.JobRuns(),
			directory: mem.Directory(),
		}
	default:
		log.Println("📦 Connecting to database...")
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.CloseDB(db)

		// Production deployments manage schema via sql-migrate.
		if cfg.Database.AutoMigrate {
			if cfg.Server.Environment == "production" {
				log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
			}
			n, err := database.Migrate(db, migrate.Up, 0)
			if err != nil {
				log.Fatalf("Failed to run AutoMigrate: %v", err)
			}
			log.Printf("✅ Applied %d migrations", n)
		}

		if sqlDB, err = db.DB(); err != nil {
			log.Fatalf("Failed to get database handle: %v", err)
		}
		st = stores{
			requests:  repository.NewSchedulingRequestRepository(db),
			actions:   repository.NewActionRepository(db),
			drafts:    repository.NewDraftRepository(db),
			patterns:  repository.NewPatternRepository(db),
			inbound:   repository.NewInboundRepository(db),
			workItems: repository.NewWorkItemRepository(db),
			jobRuns:   repository.NewJobRunRepository(db),
			directory: repository.NewDirectoryRepository(db),
		}
	}

	// Redis backs the job lock, the intent cache and OAuth state
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis...")
		if redisClient, err = cache.NewRedisClient(cfg); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}
	var kv oauth.Store
	if redisClient != nil {
		kv = cache.NewRedisStore(redisClient, "scheduler:")
	} else {
		mem := cache.NewMemoryStore()
		defer mem.Close()
		kv = mem
	}
	locker := distlock.NewLocker(redisClient, sqlDB, cfg.Redis.LockTTL)

	// AI completion backend
	log.Println("🤖 Initializing AI components...")
	completer, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	var (
		classifier intent.Classifier
		extractor  timeparser.Extractor
	)
	if completer != nil {
		classifier, extractor = completer, completer
	}

	// Outbound providers
	log.Println("📨 Initializing mail and calendar providers...")
	googleProvider := oauth.NewGoogleProvider(
		cfg.OAuth.Google.ClientID,
		cfg.OAuth.Google.ClientSecret,
		cfg.OAuth.Google.RedirectURL,
	)
	mailer, calendar, err := newProviders(ctx, cfg, googleProvider, logger)
	if err != nil {
		log.Fatalf("Failed to initialize providers: %v", err)
	}

	var (
		archive     providers.BodyArchive
		minioClient *storage.MinIOClient
	)
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		if minioClient, err = storage.NewMinIOClient(&cfg.Storage); err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		archive = minioClient
	}

	var sink repositories.WorkItemSink = st.workItems
	if cfg.Kafka.Enabled {
		log.Println("📡 Connecting work-item stream...")
		kafkaSink, err := messaging.NewKafkaSink(st.workItems, cfg.Kafka, logger)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka sink: %v", err)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}

	// Use cases
	log.Println("⚙️  Initializing services...")
	rules := cfg.Rules
	templates, err := draft.NewTemplates()
	if err != nil {
		log.Fatalf("Failed to parse draft templates: %v", err)
	}
	parser := timeparser.NewParser(extractor, rules.BusinessHours, logger)
	detector := intent.NewDetector(classifier, kv, rules.Intent, logger)

	calc := sla.NewCalculator(rules.SLA, st.patterns)
	tr := scheduling.NewTransitioner(st.requests, st.actions, calc, rules.Reminders, logger)
	dm := draft.NewDraftService(st.drafts, st.requests, st.actions, sink, tr, templates, mailer, calendar, archive, rules.Drafts, logger)
	esc := escalation.NewEscalator(st.requests, st.actions, sink, logger)
	sched := scheduling.NewSchedulingService(st.requests, st.actions, tr, dm, esc, logger)
	monitor := sla.NewMonitor(st.requests, st.actions, tr, dm, esc, calc, parser, rules.SLA, logger)
	linkerSvc := linker.NewLinkerService(linker.NewScorer(rules.Linker), st.directory, st.requests, st.actions, st.workItems, sink, logger)
	resp := response.NewResponseService(st.requests, st.actions, st.inbound, st.patterns, detector, parser, tr, dm, esc, linkerSvc, monitor, logger)
	items := workitem.NewWorkItemService(st.workItems, logger)

	// Background jobs
	runner := jobs.NewRunner(locker, st.jobRuns, logger)
	for _, def := range jobs.Definitions(cfg.Jobs, jobs.Deps{
		Requests:  st.requests,
		Responses: resp,
		Monitor:   monitor,
		Drafts:    dm,
		Reminders: dm,
		Settler:   sched,
		Rules:     rules.Reminders,
		Logger:    logger,
	}) {
		runner.Register(def)
	}
	checker := health.NewChecker(st.requests, st.drafts, st.jobRuns, runner, rules.Drafts, logger)

	// Routes
	log.Println("🛣️  Setting up routes...")
	handlers := handler.Handlers{
		Scheduling: handler.NewSchedulingHandler(sched, linkerSvc, logger),
		Drafts:     handler.NewDraftHandler(dm, logger),
		Inbound:    handler.NewInboundHandler(resp, logger),
		WorkItems:  handler.NewWorkItemHandler(items, linkerSvc, logger),
		Jobs:       handler.NewJobHandler(runner, logger),
	}
	if cfg.OAuth.Google.ClientID != "" {
		handlers.Mailbox = handler.NewMailboxHandler(googleProvider, oauth.NewStateManager(kv), cfg.OAuth.Google.RefreshToken, logger)
	}
	if minioClient != nil {
		handlers.Archive = handler.NewArchiveHandler(sched, minioClient, logger)
	}
	handler.NewRouter(cfg, checker, handlers, logger).Setup(e)

	runCtx, stopJobs := context.WithCancel(ctx)
	if cfg.Jobs.Enabled {
		log.Println("⏱️  Starting job runner...")
		runner.Start(runCtx)
	}

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	// in-flight runs finish before the stores close
	stopJobs()
	runner.Stop()

	log.Println("✅ Server stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newCompleter returns nil when AI is disabled; callers fall back to keyword
// classification and deterministic time parsing.
func newCompleter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (pkgai.Completer, error) {
	switch cfg.AI.Provider {
	case "groq":
		return pkgai.NewGroqClient(cfg.AI.Groq, logger), nil
	case "bedrock":
		client, err := pkgai.NewBedrockClient(ctx, cfg.AI.Bedrock)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		log.Println("⚠️  AI provider disabled, using keyword detection only")
		return nil, nil
	}
}

// newProviders picks the mailer and calendar for MAIL_PROVIDER. The calendar
// is Google whenever a refresh token is configured.
func newProviders(ctx context.Context, cfg *config.Config, gp *oauth.GoogleProvider, logger *zap.Logger) (providers.Mailer, providers.Calendar, error) {
	var calendar providers.Calendar = mail.NewLogCalendar(logger)
	if cfg.OAuth.Google.RefreshToken != "" {
		client := gp.HTTPClient(ctx, cfg.OAuth.Google.RefreshToken)
		calendar = google.NewCalendar(client, cfg.OAuth.Google.CalendarID)
	}

	switch cfg.Mail.Provider {
	case "gmail":
		client := gp.HTTPClient(ctx, cfg.OAuth.Google.RefreshToken)
		return google.NewGmailMailer(client, cfg.Mail.FromName, cfg.Mail.FromAddress), calendar, nil
	case "ses":
		mailer, err := mail.NewSESMailer(ctx, cfg.Mail)
		if err != nil {
			return nil, nil, err
		}
		return mailer, calendar, nil
	default:
		log.Println("⚠️  MAIL_PROVIDER=log, outbound mail is only logged")
		return mail.NewLogMailer(logger), calendar, nil
	}
}
