package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookingcore/internal/service/scan"
)

type fakeScanner struct {
	result scan.Result
	err    error
	runs   int
}

func (f *fakeScanner) Run(ctx context.Context) (scan.Result, error) {
	f.runs++
	return f.result, f.err
}

type fakeEngine struct {
	errCount int
	err      error
	runs     int
}

func (f *fakeEngine) Run(ctx context.Context) (int, error) {
	f.runs++
	return f.errCount, f.err
}

func getScan(h *ScanHandler, authorization string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/internal/scan", h.HandleScan)

	req := httptest.NewRequest(http.MethodGet, "/internal/scan", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScanRequiresSecret(t *testing.T) {
	scanner := &fakeScanner{}
	h := NewScanHandler("s3cret", scanner, &fakeEngine{}, zap.NewNop())

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic s3cret",
		"wrong secret": "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			w := getScan(h, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Equal(t, 0, scanner.runs)
}

func TestScanEmptyConfiguredSecretAlwaysRejects(t *testing.T) {
	h := NewScanHandler("", &fakeScanner{}, &fakeEngine{}, zap.NewNop())

	w := getScan(h, "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScanReturnsAggregateCounts(t *testing.T) {
	scanner := &fakeScanner{result: scan.Result{ReminderSent: 3, FollowupSent: 1, Errors: 2}}
	engine := &fakeEngine{errCount: 1}
	h := NewScanHandler("s3cret", scanner, engine, zap.NewNop())

	w := getScan(h, "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK           bool `json:"ok"`
		ReminderSent int  `json:"reminderSent"`
		FollowupSent int  `json:"followupSent"`
		Errors       int  `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.OK)
	assert.Equal(t, 3, resp.ReminderSent)
	assert.Equal(t, 1, resp.FollowupSent)
	assert.Equal(t, 3, resp.Errors)
	assert.Equal(t, 1, scanner.runs)
	assert.Equal(t, 1, engine.runs)
}

func TestScanRunFailureReturns500(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("db down")}
	engine := &fakeEngine{}
	h := NewScanHandler("s3cret", scanner, engine, zap.NewNop())

	w := getScan(h, "Bearer s3cret")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, engine.runs)
}
