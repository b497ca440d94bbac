package handlers

import (
	"errors"
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/content"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// ContentHandlers serve the legal policy pages
type ContentHandlers struct {
	policies *content.PolicyStore
	logger   *logging.ChanneledLogger
}

func NewContentHandlers(policies *content.PolicyStore, logger *logging.ChanneledLogger) *ContentHandlers {
	return &ContentHandlers{policies: policies, logger: logger}
}

// GetPolicies handles GET /api/v1/content/policies
func (h *ContentHandlers) GetPolicies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"policies": h.policies.Slugs()})
}

// GetPolicy handles GET /api/v1/content/policies/:slug
func (h *ContentHandlers) GetPolicy(c *gin.Context) {
	policy, err := h.policies.Get(c.Param("slug"))
	if errors.Is(err, content.ErrPolicyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	c.JSON(http.StatusOK, policy)
}

// PostReload handles POST /api/v1/admin/content/reload
func (h *ContentHandlers) PostReload(c *gin.Context) {
	if err := h.policies.Reload(); err != nil {
		h.logger.Content().Error("Policy reload failed", "error", err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	h.logger.Content().Info("Policies reloaded", "count", len(h.policies.Slugs()))
	c.JSON(http.StatusOK, gin.H{"policies": h.policies.Slugs()})
}
