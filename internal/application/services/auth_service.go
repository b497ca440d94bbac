package services

import (
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/security"
)

// AuthService handles admin login and token checks
type AuthService struct {
	adminPassword string
	jwtSecret     string
	logger        *logging.ChanneledLogger
	now           func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(adminPassword, jwtSecret string, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		adminPassword: adminPassword,
		jwtSecret:     jwtSecret,
		logger:        logger,
		now:           time.Now,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Enabled reports whether admin endpoints can be unlocked at all.
func (a *AuthService) Enabled() bool {
	return a.adminPassword != "" && a.jwtSecret != ""
}

// AuthenticateAdmin validates the admin password and issues a JWT
func (a *AuthService) AuthenticateAdmin(password string) *AuthResult {
	if !a.Enabled() {
		return &AuthResult{Success: false, Error: "Admin access is not configured"}
	}
	if err := security.CheckAdminPassword(a.adminPassword, password); err != nil {
		a.logger.Auth().Warn("Admin login rejected")
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	token, err := security.GenerateAdminToken(a.jwtSecret, a.now())
	if err != nil {
		a.logger.Auth().Error("Token generation failed", "error", err.Error())
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}
	a.logger.Auth().Info("Admin logged in")
	return &AuthResult{Token: token, Success: true}
}

// ValidateAdminToken reports whether token is a live admin token
func (a *AuthService) ValidateAdminToken(token string) bool {
	if token == "" || !a.Enabled() {
		return false
	}
	claims, err := security.ValidateJWT(token, a.jwtSecret)
	if err != nil {
		return false
	}
	return security.IsAdminClaims(claims)
}
