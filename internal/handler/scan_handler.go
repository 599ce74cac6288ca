package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookingcore/internal/service/scan"
)

type ScanRunner interface {
	Run(ctx context.Context) (scan.Result, error)
}

type RuleRunner interface {
	Run(ctx context.Context) (errCount int, err error)
}

// ScanHandler exposes the scheduler entry point. The external scheduler
// authenticates with a bearer shared secret; anything else is a hard 401.
type ScanHandler struct {
	secret  string
	scanner ScanRunner
	engine  RuleRunner
	logger  *zap.Logger
}

func NewScanHandler(secret string, scanner ScanRunner, engine RuleRunner, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		secret:  secret,
		scanner: scanner,
		engine:  engine,
		logger:  logger,
	}
}

// HandleScan handles GET /internal/scan.
func (h *ScanHandler) HandleScan(c *gin.Context) {
	if !h.authorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()

	result, err := h.scanner.Run(ctx)
	if err != nil {
		h.logger.Error("Scan run aborted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":           false,
			"reminderSent": result.ReminderSent,
			"followupSent": result.FollowupSent,
			"errors":       result.Errors,
		})
		return
	}

	ruleErrors, err := h.engine.Run(ctx)
	if err != nil {
		h.logger.Error("Automation run aborted", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           err == nil,
		"reminderSent": result.ReminderSent,
		"followupSent": result.FollowupSent,
		"errors":       result.Errors + ruleErrors,
	})
}

func (h *ScanHandler) authorized(header string) bool {
	if h.secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
