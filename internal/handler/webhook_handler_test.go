package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"bookingcore/internal/webhook"
)

type fakeProcessor struct {
	events []*webhook.Event
	err    error
}

func (f *fakeProcessor) HandleEvent(ctx context.Context, ev *webhook.Event) error {
	f.events = append(f.events, ev)
	return f.err
}

const testSecret = "whsec_test"

func validBody() []byte {
	return []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"amount_total": 100000,
			"currency": "eur",
			"customer_details": {"name": "Ana", "email": "ana@example.com"},
			"metadata": {
				"kind": "booking",
				"tenant_id": "7",
				"destination": "Rome",
				"departure_date": "2026-10-01",
				"return_date": "2026-10-08",
				"persons": "2"
			}
		}}
	}`)
}

func postWebhook(h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/payment", h.HandlePaymentEvent)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookValidSignatureProcessed(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhookHandler(testSecret, processor, zap.NewNop())

	body := validBody()
	w := postWebhook(h, body, webhook.Sign(testSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, processor.events, 1)
	assert.NotNil(t, processor.events[0].Booking)
}

func TestWebhookInvalidSignatureRejected(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhookHandler(testSecret, processor, zap.NewNop())

	w := postWebhook(h, validBody(), "deadbeef")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, processor.events)
}

func TestWebhookMissingSignatureRejected(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhookHandler(testSecret, processor, zap.NewNop())

	w := postWebhook(h, validBody(), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, processor.events)
}

func TestWebhookMalformedPayloadStillAcknowledged(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhookHandler(testSecret, processor, zap.NewNop())

	body := []byte(`{"type": "checkout.session.completed", "data": {"object": {"metadata": {"kind": "booking"}}}}`)
	w := postWebhook(h, body, webhook.Sign(testSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, processor.events)
}

func TestWebhookPersistFailureStillAcknowledged(t *testing.T) {
	processor := &fakeProcessor{err: errors.New("db down")}
	h := NewWebhookHandler(testSecret, processor, zap.NewNop())

	body := validBody()
	w := postWebhook(h, body, webhook.Sign(testSecret, body))

	// The processor must not retry forever; the failure surfaces through
	// alerting, not the response code.
	assert.Equal(t, http.StatusOK, w.Code)
}
