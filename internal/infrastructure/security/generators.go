// Package security provides id generation, admin credential checks and JWT helpers
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid/v2"
)

const sessionPrefix = "session_"

// GenerateULID returns a lexically sortable id. Attachments are named with it.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateSessionID returns a per-load visitor session id. It is not a stable
// user identity.
func GenerateSessionID() string {
	return sessionPrefix + GenerateULID()
}

// GenerateSecureKey returns length hex characters of crypto randomness.
// Used as an ephemeral JWT secret when none is configured.
func GenerateSecureKey(length int) (string, error) {
	if length < 2 {
		return "", fmt.Errorf("key length %d too short", length)
	}
	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
