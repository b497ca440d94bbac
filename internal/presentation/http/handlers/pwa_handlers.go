package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/application/services"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/analytics"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/install"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// PWAHandlers drive the install banner of the visitor session
type PWAHandlers struct {
	installService *services.InstallService
	logger         *logging.ChanneledLogger
}

func NewPWAHandlers(installService *services.InstallService, logger *logging.ChanneledLogger) *PWAHandlers {
	return &PWAHandlers{installService: installService, logger: logger}
}

// PostInit handles POST /api/v1/pwa/init on every page load
func (h *PWAHandlers) PostInit(c *gin.Context) {
	var req struct {
		Standalone bool `json:"standalone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	platform := install.Platform{
		Standalone: req.Standalone,
		Browser:    analytics.DeriveDeviceInfo(c.Request.UserAgent(), analytics.ClientHints{}).Browser,
	}
	snap, err := h.installService.Init(c.Request.Context(), middleware.GetSessionID(c), platform)
	if err != nil {
		h.logger.PWA().Error("Install init failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Install state unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PostInstallable handles POST /api/v1/pwa/installable, sent when the page
// captured the platform's install prompt
func (h *PWAHandlers) PostInstallable(c *gin.Context) {
	snap, err := h.installService.Installable(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PostInstall handles POST /api/v1/pwa/install. It returns once the page
// reported the prompt outcome.
func (h *PWAHandlers) PostInstall(c *gin.Context) {
	outcome, err := h.installService.Install(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

// PostOutcome handles POST /api/v1/pwa/outcome
func (h *PWAHandlers) PostOutcome(c *gin.Context) {
	var req struct {
		Outcome install.Outcome `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if err := h.installService.ReportOutcome(middleware.GetSessionID(c), req.Outcome); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PostInstalled handles POST /api/v1/pwa/installed
func (h *PWAHandlers) PostInstalled(c *gin.Context) {
	snap, err := h.installService.MarkInstalled(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PostDismiss handles POST /api/v1/pwa/dismiss
func (h *PWAHandlers) PostDismiss(c *gin.Context) {
	snap, err := h.installService.Dismiss(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetState handles GET /api/v1/pwa/state
func (h *PWAHandlers) GetState(c *gin.Context) {
	snap, err := h.installService.Snapshot(middleware.GetSessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *PWAHandlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnknownSession):
		status = http.StatusNotFound
	case errors.Is(err, install.ErrNoDeferredPrompt),
		errors.Is(err, install.ErrAlreadyInstalled),
		errors.Is(err, services.ErrNoPendingPrompt):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidOutcome):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	default:
		h.logger.PWA().Error("Install request failed", "path", c.Request.URL.Path, "error", err.Error())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
