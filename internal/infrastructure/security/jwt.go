// Package security provides JWT token utilities
package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenTTL bounds how long an admin token stays valid.
const AdminTokenTTL = 24 * time.Hour

var ErrInvalidCredentials = errors.New("invalid credentials")

// CheckAdminPassword compares a submitted password against the configured
// admin password. Bcrypt hashes are preferred; a plaintext value is accepted
// so local setups work without hashing.
func CheckAdminPassword(configured, submitted string) error {
	if configured == "" || submitted == "" {
		return ErrInvalidCredentials
	}
	if strings.HasPrefix(configured, "$2") {
		if err := bcrypt.CompareHashAndPassword([]byte(configured), []byte(submitted)); err != nil {
			return ErrInvalidCredentials
		}
		return nil
	}
	if configured != submitted {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateAdminToken signs an HS256 admin token.
func GenerateAdminToken(jwtSecret string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"role": "admin",
		"type": "admin_auth",
		"iat":  now.Unix(),
		"exp":  now.Add(AdminTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// IsAdminClaims reports whether validated claims belong to an admin token.
func IsAdminClaims(claims jwt.MapClaims) bool {
	role, _ := claims["role"].(string)
	kind, _ := claims["type"].(string)
	return role == "admin" && kind == "admin_auth"
}
