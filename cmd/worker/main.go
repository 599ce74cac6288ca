package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookingcore/config"
	"bookingcore/internal/mqhandler"
	"bookingcore/internal/repository"
	"bookingcore/pkg/db"
	"bookingcore/pkg/logger"
	"bookingcore/pkg/mq"
	redisclient "bookingcore/pkg/redis"
	"bookingcore/pkg/util"
)

const healthPort = "8091"

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting booking worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis (MQ redelivery dedup)
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, 24*time.Hour, log)

	// Repositories and handlers
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	bookingCreatedHandler := mqhandler.NewBookingCreatedHandler(notificationRepo, deduper, log)
	notificationCreatedHandler := mqhandler.NewNotificationCreatedHandler(notificationRepo, deduper, log)

	// Consumers
	bookingConsumer, err := mq.NewConsumer(cfg.MQ.URL, "booking.created.q", "booking.created", log)
	if err != nil {
		log.Fatal("Failed to init booking consumer", zap.Error(err))
	}
	defer bookingConsumer.Close()
	bookingConsumer.SetHandler(bookingCreatedHandler.Handle)

	notificationConsumer, err := mq.NewConsumer(cfg.MQ.URL, "notification.created.q", "notification.created", log)
	if err != nil {
		log.Fatal("Failed to init notification consumer", zap.Error(err))
	}
	defer notificationConsumer.Close()
	notificationConsumer.SetHandler(notificationCreatedHandler.Handle)

	go func() {
		log.Info("Starting booking.created consumer...")
		if err := bookingConsumer.StartConsuming(); err != nil {
			log.Fatal("Booking consumer failed", zap.Error(err))
		}
	}()
	go func() {
		log.Info("Starting notification.created consumer...")
		if err := notificationConsumer.StartConsuming(); err != nil {
			log.Fatal("Notification consumer failed", zap.Error(err))
		}
	}()

	// Health endpoint only; the worker has no API surface.
	r := gin.Default()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()
		if err := dbConn.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})

	srv := &http.Server{
		Addr:    ":" + healthPort,
		Handler: r,
	}
	go func() {
		log.Info("Health server starting", zap.String("port", healthPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Health server failed", zap.Error(err))
		}
	}()

	log.Info("Booking worker is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down booking worker gracefully...")

	bookingConsumer.Close()
	notificationConsumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}

	dbConn.Close()

	log.Info("Booking worker shutdown complete")
}
