package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/application/services"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/caching/offline"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// ShellHandlers serve the offline-capable site shell and its worker controls
type ShellHandlers struct {
	shellService *services.ShellService
	logger       *logging.ChanneledLogger
}

func NewShellHandlers(shellService *services.ShellService, logger *logging.ChanneledLogger) *ShellHandlers {
	return &ShellHandlers{shellService: shellService, logger: logger}
}

// GetStatus handles GET /api/v1/sw/status
func (h *ShellHandlers) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.shellService.Status())
}

// PostMessage handles POST /api/v1/sw/message, e.g. {"type":"SKIP_WAITING"}
func (h *ShellHandlers) PostMessage(c *gin.Context) {
	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.shellService.PostMessage(c.Request.Context(), req.Type); err != nil {
		switch {
		case errors.Is(err, offline.ErrUnknownMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, offline.ErrNoWaitingWorker):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, h.shellService.Status())
}

// GetNotificationClick handles GET /api/v1/sw/notification-click?action=
func (h *ShellHandlers) GetNotificationClick(c *gin.Context) {
	target, open := offline.NotificationClick(c.Query("action"))
	c.JSON(http.StatusOK, gin.H{"open": open, "url": target})
}

// PostDeploy handles POST /api/v1/admin/cache/deploy
func (h *ShellHandlers) PostDeploy(c *gin.Context) {
	var req struct {
		Version string `json:"version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	status, err := h.shellService.Deploy(c.Request.Context(), req.Version)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, offline.ErrPrecacheFailed):
			code = http.StatusBadGateway
		case errors.Is(err, offline.ErrInstallInProgress):
			code = http.StatusConflict
		}
		c.JSON(code, gin.H{"error": err.Error(), "status": status})
		return
	}
	c.JSON(http.StatusOK, status)
}

// PostNotify handles POST /api/v1/admin/notify
func (h *ShellHandlers) PostNotify(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	c.JSON(http.StatusOK, h.shellService.Notify(req.Body))
}

// hop-by-hop headers are not forwarded
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Proxy-Connection":  true,
	"Te":                true,
	"Trailer":           true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// ProxyShell answers every unrouted request through the active worker
func (h *ShellHandlers) ProxyShell(c *gin.Context) {
	target, err := h.shellService.Resolve(c.Request.URL.RequestURI())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	for k, vv := range c.Request.Header {
		if hopHeaders[k] {
			continue
		}
		req.Header[k] = append([]string(nil), vv...)
	}

	resp, err := h.shellService.Fetch(c.Request.Context(), req)
	if err != nil {
		h.logger.Cache().Warn("Shell fetch failed", "url", target, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream unavailable"})
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		if hopHeaders[k] {
			continue
		}
		for _, v := range vv {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		h.logger.Cache().Debug("Shell response copy interrupted", "url", target, "error", err.Error())
	}
}
