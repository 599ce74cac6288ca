package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bookingcore/config"
	"bookingcore/internal/handler"
	"bookingcore/internal/httpserver"
	"bookingcore/internal/repository"
	"bookingcore/internal/service/automation"
	"bookingcore/internal/service/dispatch"
	"bookingcore/internal/service/ingest"
	"bookingcore/internal/service/resolve"
	"bookingcore/internal/service/scan"
	"bookingcore/pkg/db"
	"bookingcore/pkg/logger"
	"bookingcore/pkg/mq"
	"bookingcore/pkg/outbox"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting booking server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Outbox dispatcher
	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(1 * time.Second).
		WithBatchSize(100)

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Start(dispatcherCtx)

	// Repositories
	bookingRepo := repository.NewBookingRepository(dbConn, log)
	tenantRepo := repository.NewTenantRepository(dbConn)
	templateRepo := repository.NewTemplateRepository(dbConn)
	brandingRepo := repository.NewBrandingRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	automationRepo := repository.NewAutomationRepository(dbConn)

	// Services
	resolver := resolve.NewResolver(templateRepo, brandingRepo)
	mailer := dispatch.NewProviderClient(cfg.Mailer)
	ingestService := ingest.NewService(bookingRepo, tenantRepo, resolver, mailer, log)

	scanner := scan.NewScanner(bookingRepo, resolver, mailer, scan.Config{
		ReminderOffsetDays: cfg.Scan.ReminderOffsetDays,
		FollowupOffsetDays: cfg.Scan.FollowupOffsetDays,
		LookbackGraceDays:  cfg.Scan.LookbackGraceDays,
		MaxConcurrentSends: cfg.Scan.MaxConcurrentSends,
	}, log)

	engine := automation.NewEngine(automationRepo, automationRepo, log)
	automation.NewTriggers(tenantRepo, bookingRepo).Register(engine)
	automation.NewActions(resolver, mailer, automationRepo, publisher, log).Register(engine)

	// Handlers
	webhookHandler := handler.NewWebhookHandler(cfg.Webhook.Secret, ingestService, log)
	scanHandler := handler.NewScanHandler(cfg.Scan.Secret, scanner, engine, log)
	templateHandler := handler.NewTemplateHandler(templateRepo, log)
	notificationHandler := handler.NewNotificationHandler(notificationRepo, log)

	// HTTP server
	router := httpserver.NewRouter(
		webhookHandler,
		scanHandler,
		templateHandler,
		notificationHandler,
		cfg.JWT.Secret,
		dbConn,
		publisher,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("Booking server is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down booking server gracefully...")

	stopDispatcher()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	publisher.Close()
	dbConn.Close()

	log.Info("Booking server shutdown complete")
}
