// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader   = "X-Session-ID"
	SessionCookie   = "siteshell_session"
	RequestIDHeader = "X-Request-ID"

	sessionKey = "sessionId"
)

// SessionMiddleware resolves the visitor session from the header, cookie or
// query string, minting a new one when none is present.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				sessionID = cookie
			}
		}
		if sessionID == "" {
			sessionID = c.Query("sessionId")
		}
		if !validSessionID(sessionID) {
			sessionID = security.GenerateSessionID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sessionID, 0, "/", "", false, true)
		}

		c.Set(sessionKey, sessionID)
		c.Header(SessionHeader, sessionID)
		c.Next()
	}
}

func validSessionID(id string) bool {
	if !strings.HasPrefix(id, "session_") || len(id) > 64 {
		return false
	}
	for _, r := range id[len("session_"):] {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '-' || r == '_') {
			return false
		}
	}
	return len(id) > len("session_")
}

// GetSessionID retrieves the visitor session id set by SessionMiddleware
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// RequestIDMiddleware tags every request with an id and carries it into the
// request context for channel loggers.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logging.RequestIDKey, id))
		c.Next()
	}
}
