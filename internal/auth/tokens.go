// Package auth issues and verifies admin bearer tokens.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 12 * time.Hour

type Manager struct {
	secret     []byte
	adminEmail string
	adminPass  string
}

func NewManager(secret, adminEmail, adminPassword string) *Manager {
	return &Manager{
		secret:     []byte(secret),
		adminEmail: adminEmail,
		adminPass:  adminPassword,
	}
}

// Login checks the single authorized principal's credentials and returns a
// signed token with its expiry. Credential comparison is constant time.
func (m *Manager) Login(email, password string) (string, time.Time, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(m.adminEmail))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.adminPass)) == 1
	if !emailOK || !passOK {
		return "", time.Time{}, fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	expiresAt := now.Add(tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   m.adminEmail,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a bearer token and confirms it belongs to the admin.
func (m *Manager) Verify(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid token claims")
	}
	if !strings.EqualFold(claims.Subject, m.adminEmail) {
		return fmt.Errorf("token subject is not the admin principal")
	}
	return nil
}
