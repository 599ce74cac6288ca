package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookingcore/internal/handler"
	"bookingcore/pkg/metrics"
	"bookingcore/pkg/mq"
	"bookingcore/pkg/trace"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	webhookHandler *handler.WebhookHandler,
	scanHandler *handler.ScanHandler,
	templateHandler *handler.TemplateHandler,
	notificationHandler *handler.NotificationHandler,
	jwtSecret string,
	db *pgxpool.Pool,
	publisher *mq.Publisher,
) *Router {
	r := gin.Default()
	r.Use(traceMiddleware())
	r.Use(metricsMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Payment processor webhook (signature-authenticated)
	r.POST("/webhooks/payment", webhookHandler.HandlePaymentEvent)

	// Scheduler entry point (shared-secret authenticated)
	r.GET("/internal/scan", scanHandler.HandleScan)

	// Tenant-scoped API (JWT authenticated)
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.GET("/templates", templateHandler.List)
		api.POST("/templates", templateHandler.Create)
		api.PUT("/templates/:id", templateHandler.Update)
		api.DELETE("/templates/:id", templateHandler.Deactivate)

		api.GET("/notifications", notificationHandler.List)
		api.GET("/notifications/unread", notificationHandler.UnreadCount)
		api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}

// traceMiddleware propagates the caller's trace id, or mints one, so the
// provider client and logs can correlate a dispatch back to its request.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// metricsMiddleware records request duration per route. The route template,
// not the raw path, keeps label cardinality bounded.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
