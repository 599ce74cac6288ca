package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookingcore/internal/webhook"
	"bookingcore/pkg/metrics"
)

// SignatureHeader carries the payment processor's HMAC over the raw body.
const SignatureHeader = "X-Payment-Signature"

type EventProcessor interface {
	HandleEvent(ctx context.Context, ev *webhook.Event) error
}

// WebhookHandler receives signed payment-processor events. The only client
// error is a bad signature; every other outcome acknowledges the delivery so
// the processor does not retry events we have already recorded or cannot act
// on.
type WebhookHandler struct {
	secret string
	ingest EventProcessor
	logger *zap.Logger
}

func NewWebhookHandler(secret string, ingest EventProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: secret,
		ingest: ingest,
		logger: logger,
	}
}

// HandlePaymentEvent handles POST /webhooks/payment.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if !webhook.VerifySignature(h.secret, body, c.GetHeader(SignatureHeader)) {
		h.logger.Warn("Rejected webhook with invalid signature")
		metrics.RecordWebhookEvent("unknown", "invalid_signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	event, err := webhook.Parse(body)
	if err != nil {
		// Malformed but authentically signed: acknowledge so the processor
		// stops redelivering a payload we will never be able to parse.
		h.logger.Error("Failed to parse webhook payload", zap.Error(err))
		metrics.RecordWebhookEvent("unknown", "parse_error")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.ingest.HandleEvent(c.Request.Context(), event); err != nil {
		// Money was captured with no durable record. Acknowledge anyway to
		// stop uncontrolled retries, but make this the loudest log line the
		// service produces.
		h.logger.Error("ALERT: failed to persist payment event",
			zap.String("type", event.Type),
			zap.Bool("alert", true),
			zap.Error(err),
		)
		metrics.BookingPersistFailuresTotal.Inc()
		metrics.RecordWebhookEvent(event.Type, "persist_error")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	metrics.RecordWebhookEvent(event.Type, "ok")
	c.JSON(http.StatusOK, gin.H{"received": true})
}
