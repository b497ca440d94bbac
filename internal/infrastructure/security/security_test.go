package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateSessionID(t *testing.T) {
	a := GenerateSessionID()
	b := GenerateSessionID()
	assert.True(t, strings.HasPrefix(a, "session_"))
	assert.NotEqual(t, a, b)
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := GenerateSecureKey(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	_, err = GenerateSecureKey(1)
	assert.Error(t, err)
}

func TestCheckAdminPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckAdminPassword(string(hash), "hunter22"))
	assert.ErrorIs(t, CheckAdminPassword(string(hash), "wrong"), ErrInvalidCredentials)
	assert.NoError(t, CheckAdminPassword("plain", "plain"))
	assert.ErrorIs(t, CheckAdminPassword("", "anything"), ErrInvalidCredentials)
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken("secret", time.Now())
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.True(t, IsAdminClaims(claims))

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestExpiredAdminToken(t *testing.T) {
	token, err := GenerateAdminToken("secret", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)

	_, err = ValidateJWT(token, "secret")
	assert.Error(t, err)
}
