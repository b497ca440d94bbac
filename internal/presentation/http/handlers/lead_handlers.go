package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/application/services"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// LeadHandlers accept contact form submissions
type LeadHandlers struct {
	leadService *services.LeadService
	logger      *logging.ChanneledLogger
}

func NewLeadHandlers(leadService *services.LeadService, logger *logging.ChanneledLogger) *LeadHandlers {
	return &LeadHandlers{leadService: leadService, logger: logger}
}

// PostLead handles POST /api/v1/leads
func (h *LeadHandlers) PostLead(c *gin.Context) {
	start := time.Now()

	var form leads.ContactFormData
	if err := c.ShouldBindJSON(&form); err != nil {
		h.logger.Leads().Debug("Lead request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	form.SessionID = middleware.GetSessionID(c)
	if form.UserAgent == "" {
		form.UserAgent = c.Request.UserAgent()
	}
	if form.PageURL == "" {
		form.PageURL = c.Request.Referer()
	}

	result, err := h.leadService.Submit(c.Request.Context(), form, c.ClientIP())
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "errors": verr.Errors})
		case errors.Is(err, services.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		default:
			h.logger.Leads().Error("Lead submission failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Submission failed"})
		}
		return
	}

	h.logger.Leads().Info("Lead submitted", "delivered", result.Delivered(), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": result,
	})
}
