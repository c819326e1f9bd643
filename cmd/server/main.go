package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventapp "github.com/finledger/backend/internal/application/event"
	financeapp "github.com/finledger/backend/internal/application/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/auth"
	"github.com/finledger/backend/internal/infrastructure/cache"
	"github.com/finledger/backend/internal/infrastructure/config"
	"github.com/finledger/backend/internal/infrastructure/event"
	"github.com/finledger/backend/internal/infrastructure/eventstore"
	"github.com/finledger/backend/internal/infrastructure/logger"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/interfaces/http/handler"
	"github.com/finledger/backend/internal/interfaces/http/middleware"
	"github.com/finledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with zap-backed SQL logging
	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Event serializer with every ledger event (and upcasters) registered
	serializer := event.NewSerializer()
	if err := event.RegisterLedgerEvents(serializer); err != nil {
		log.Fatal("Failed to register ledger events", zap.Error(err))
	}

	// Event store appends stream events and outbox entries in one transaction
	outboxSaver := event.NewOutboxSaver(serializer)
	store := eventstore.NewGormEventStore(db.DB, serializer, outboxSaver)

	invoices := eventstore.NewInvoiceRepository(store)
	payments := eventstore.NewPaymentRepository(store)
	journals := eventstore.NewJournalEntryRepository(store)

	invoiceReads := persistence.NewGormInvoiceReadRepository(db.DB)
	paymentReads := persistence.NewGormPaymentReadRepository(db.DB)
	journalReads := persistence.NewGormJournalReadRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Command services
	clock := shared.SystemClock{}
	invoiceCommands := financeapp.NewInvoiceCommandService(invoices, clock, log)
	paymentCommands := financeapp.NewPaymentCommandService(payments, clock, log)
	journalCommands := financeapp.NewJournalCommandService(journals, clock, log)

	// Query services
	invoiceQueries := financeapp.NewInvoiceQueryService(invoiceReads, log)
	paymentQueries := financeapp.NewPaymentQueryService(paymentReads, log)
	journalQueries := financeapp.NewJournalQueryService(journalReads, log)
	trialBalance := financeapp.NewTrialBalanceService(journalReads, log)

	// Projections and the payment application process handler
	invoiceProjection := financeapp.NewInvoiceProjection(invoices, invoiceReads, log)
	paymentProjection := financeapp.NewPaymentProjection(payments, paymentReads, log)
	journalProjection := financeapp.NewJournalProjection(journals, journalReads, log)
	paymentCompleted := financeapp.NewPaymentCompletedHandler(payments, invoiceCommands, log)

	rebuildService := financeapp.NewProjectionRebuildService(
		store, invoiceReads, paymentReads, journalReads,
		invoiceProjection, paymentProjection, journalProjection, log,
	)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Idempotency store guards projections against redelivered events.
	// Falls back to an in-process store when Redis is not configured.
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, log, true)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// Event bus with idempotent projection subscribers
	eventBus := event.NewInMemoryBus(log)
	subscribers := event.WrapWithIdempotency(
		[]shared.EventHandler{
			invoiceProjection,
			paymentProjection,
			journalProjection,
			paymentCompleted,
		},
		idempotencyStore,
		log,
	)
	for _, sub := range subscribers {
		eventBus.Subscribe(sub)
	}

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor delivers committed events to the bus with retry and
	// dead-lettering
	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			processorConfig.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			processorConfig.PollInterval = cfg.Event.PollInterval
		}
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			processorConfig.CleanupRetention = cfg.Event.CleanupRetention
		}

		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	// HTTP handlers
	jwtService := auth.NewJWTService(cfg.JWT)
	invoiceHandler := handler.NewInvoiceHandler(invoiceCommands, invoiceQueries)
	paymentHandler := handler.NewPaymentHandler(paymentCommands, paymentQueries)
	journalHandler := handler.NewJournalHandler(journalCommands, journalQueries, trialBalance)
	outboxHandler := handler.NewOutboxHandler(outboxService)
	adminHandler := handler.NewAdminHandler(rebuildService)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so recovery and logging carry it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (outside API versioning and authentication)
	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/api/v1/ping"},
		Logger:     log,
	}))

	r.Register(invoiceHandler)
	r.Register(paymentHandler)
	r.Register(journalHandler)
	r.Register(outboxHandler)
	r.Register(adminHandler)
	r.Setup()

	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
