package services

import (
	"testing"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticateAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAuthService(string(hash), "jwt-secret", logging.NewDiscardLogger())

	bad := auth.AuthenticateAdmin("guess")
	assert.False(t, bad.Success)
	assert.Empty(t, bad.Token)

	good := auth.AuthenticateAdmin("s3cret")
	require.True(t, good.Success)
	assert.True(t, auth.ValidateAdminToken(good.Token))

	other := NewAuthService(string(hash), "different-secret", logging.NewDiscardLogger())
	assert.False(t, other.ValidateAdminToken(good.Token))
}

func TestAuthDisabledWithoutConfig(t *testing.T) {
	auth := NewAuthService("", "", logging.NewDiscardLogger())
	assert.False(t, auth.Enabled())
	assert.False(t, auth.AuthenticateAdmin("").Success)
	assert.False(t, auth.ValidateAdminToken("anything"))
}
