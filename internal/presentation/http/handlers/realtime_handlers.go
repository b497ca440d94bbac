package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// RealtimeHandlers upgrade page connections onto the websocket hub
type RealtimeHandlers struct {
	hub      *messaging.Hub
	upgrader websocket.Upgrader
	logger   *logging.ChanneledLogger
}

// NewRealtimeHandlers only accepts upgrades from allowOrigins. An empty list
// falls back to same-origin checks.
func NewRealtimeHandlers(hub *messaging.Hub, allowOrigins []string, logger *logging.ChanneledLogger) *RealtimeHandlers {
	allowed := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[o] = true
	}
	h := &RealtimeHandlers{hub: hub, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowed) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
		}
	}
	return h
}

// GetWS handles GET /api/v1/ws
func (h *RealtimeHandlers) GetWS(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Realtime().Debug("Websocket upgrade failed", "sessionId", sessionID, "error", err.Error())
		return
	}
	h.hub.Serve(conn, sessionID)
}
