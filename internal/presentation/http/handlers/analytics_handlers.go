package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/application/services"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/analytics"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandlers receive page-side tracking calls
type AnalyticsHandlers struct {
	analyticsService *services.AnalyticsService
	logger           *logging.ChanneledLogger
}

func NewAnalyticsHandlers(analyticsService *services.AnalyticsService, logger *logging.ChanneledLogger) *AnalyticsHandlers {
	return &AnalyticsHandlers{analyticsService: analyticsService, logger: logger}
}

// PostSession handles POST /api/v1/analytics/session with the client hints
func (h *AnalyticsHandlers) PostSession(c *gin.Context) {
	var hints analytics.ClientHints
	if err := c.ShouldBindJSON(&hints); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	tracker := h.analyticsService.StartSession(middleware.GetSessionID(c), c.Request.UserAgent(), hints)
	c.JSON(http.StatusOK, tracker.Session())
}

// PostEvent handles POST /api/v1/analytics/events
func (h *AnalyticsHandlers) PostEvent(c *gin.Context) {
	var req struct {
		Event string         `json:"event" binding:"required"`
		Data  map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tracker := h.analyticsService.Tracker(middleware.GetSessionID(c))
	switch req.Event {
	case services.EventExternalChat:
		platform, _ := req.Data["platform"].(string)
		tracker.TrackExternalChat(platform)
	case services.EventQuoteRequest:
		tracker.TrackQuoteRequest(req.Data)
	case services.EventQuickAction:
		action, _ := req.Data["action"].(string)
		tracker.TrackQuickAction(action)
	default:
		tracker.TrackEvent(req.Event, req.Data)
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "leadScore": tracker.LeadScore()})
}

// PostHeatmap handles POST /api/v1/analytics/heatmap
func (h *AnalyticsHandlers) PostHeatmap(c *gin.Context) {
	var req struct {
		Points []analytics.HeatmapPoint `json:"points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tracker := h.analyticsService.Tracker(middleware.GetSessionID(c))
	for _, p := range req.Points {
		tracker.TrackHeatmap(p)
	}
	c.JSON(http.StatusAccepted, gin.H{"buffered": tracker.HeatmapBuffered()})
}

// PostSessionEnd handles POST /api/v1/analytics/session/end
func (h *AnalyticsHandlers) PostSessionEnd(c *gin.Context) {
	session, ok := h.analyticsService.EndSession(middleware.GetSessionID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrUnknownSession.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "leadScore": session.LeadScore()})
}

// GetEvents handles GET /api/v1/analytics/events - the local ring buffer
func (h *AnalyticsHandlers) GetEvents(c *gin.Context) {
	events, err := h.analyticsService.RecentEvents(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.logger.Analytics().Error("Failed to read event buffer", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read events"})
		return
	}
	if events == nil {
		events = []analytics.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
