package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bookingcore/config"
	"bookingcore/pkg/circuitbreaker"
	"bookingcore/pkg/metrics"
	"bookingcore/pkg/trace"
)

// ProviderClient talks to the transactional-email provider's HTTP API. A
// circuit breaker keeps a dead provider from stalling scans; the per-request
// timeout caps how long any single dispatch can block.
type ProviderClient struct {
	baseURL    string
	apiKey     string
	fromEmail  string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewProviderClient(cfg config.MailerConfig) *ProviderClient {
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	}

	return &ProviderClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cb: circuitbreaker.NewCircuitBreaker(cbConfig),
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	CTAText string `json:"cta_text,omitempty"`
	CTAURL  string `json:"cta_url,omitempty"`
}

// Send posts one email to the provider under circuit-breaker protection.
func (c *ProviderClient) Send(ctx context.Context, email Email) error {
	return c.cb.Execute(func() error {
		start := time.Now()

		body, err := json.Marshal(sendRequest{
			From:    c.fromEmail,
			To:      email.To,
			ToName:  email.ToName,
			Subject: email.Content.Subject,
			HTML:    email.Content.HTML,
			CTAText: email.Content.CTAText,
			CTAURL:  email.Content.CTAURL,
		})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName(), traceID)
		}

		resp, err := c.httpClient.Do(req)
		latency := time.Since(start)

		if err != nil {
			metrics.RecordDispatchLatency(string(email.Kind), "error", latency)
			return fmt.Errorf("failed to call mail provider: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			metrics.RecordDispatchLatency(string(email.Kind), "5xx", latency)
			return fmt.Errorf("mail provider 5xx: %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			metrics.RecordDispatchLatency(string(email.Kind), fmt.Sprintf("%d", resp.StatusCode), latency)
			return fmt.Errorf("mail provider error: %d", resp.StatusCode)
		}

		metrics.RecordDispatchLatency(string(email.Kind), "success", latency)
		return nil
	})
}
