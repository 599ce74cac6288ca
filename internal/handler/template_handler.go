package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookingcore/internal/model"
	"bookingcore/internal/repository"
)

// TemplateHandler is the tenant-scoped template CRUD surface. The tenant id
// always comes from the authenticated JWT, never from the request body.
type TemplateHandler struct {
	templates *repository.TemplateRepository
	logger    *zap.Logger
}

func NewTemplateHandler(templates *repository.TemplateRepository, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		templates: templates,
		logger:    logger,
	}
}

type templateRequest struct {
	Kind     string `json:"kind" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	HTMLBody string `json:"html_body" binding:"required"`
	CTAText  string `json:"cta_text"`
	CTAURL   string `json:"cta_url"`
	IsActive bool   `json:"is_active"`
}

type templateResponse struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	CTAText  string `json:"cta_text,omitempty"`
	CTAURL   string `json:"cta_url,omitempty"`
	IsActive bool   `json:"is_active"`
}

// List handles GET /api/templates
func (h *TemplateHandler) List(c *gin.Context) {
	tenantID := c.GetInt64("tenant_id")

	templates, err := h.templates.ListByTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list templates", zap.Int64("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list templates"})
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for i := range templates {
		out = append(out, toTemplateResponse(&templates[i]))
	}
	c.JSON(http.StatusOK, gin.H{"templates": out})
}

// Create handles POST /api/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	tenantID := c.GetInt64("tenant_id")

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	template := &model.NotificationTemplate{
		TenantID: tenantID,
		Kind:     model.NotificationKind(req.Kind),
		Subject:  req.Subject,
		HTMLBody: req.HTMLBody,
		CTAText:  req.CTAText,
		CTAURL:   req.CTAURL,
		IsActive: req.IsActive,
	}
	if err := h.templates.Create(c.Request.Context(), template); err != nil {
		h.logger.Error("Failed to create template", zap.Int64("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, toTemplateResponse(template))
}

// Update handles PUT /api/templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	tenantID := c.GetInt64("tenant_id")

	templateID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	template := &model.NotificationTemplate{
		ID:       templateID,
		TenantID: tenantID,
		Subject:  req.Subject,
		HTMLBody: req.HTMLBody,
		CTAText:  req.CTAText,
		CTAURL:   req.CTAURL,
	}
	if err := h.templates.Update(c.Request.Context(), template); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		h.logger.Error("Failed to update template", zap.Int64("template_id", templateID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// Deactivate handles DELETE /api/templates/:id
func (h *TemplateHandler) Deactivate(c *gin.Context) {
	tenantID := c.GetInt64("tenant_id")

	templateID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}

	if err := h.templates.Deactivate(c.Request.Context(), tenantID, templateID); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		h.logger.Error("Failed to deactivate template", zap.Int64("template_id", templateID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}

func toTemplateResponse(t *model.NotificationTemplate) templateResponse {
	return templateResponse{
		ID:       t.ID,
		Kind:     string(t.Kind),
		Subject:  t.Subject,
		HTMLBody: t.HTMLBody,
		CTAText:  t.CTAText,
		CTAURL:   t.CTAURL,
		IsActive: t.IsActive,
	}
}
