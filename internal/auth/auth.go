// Package auth implements dashboard authentication: the admin password is
// verified against a bcrypt hash and exchanged for a signed JWT that the
// middleware checks on mutating endpoints.
package auth

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by the auth package.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Claims carries the validated content of a dashboard token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// TokenService defines operations for managing dashboard auth tokens.
type TokenService interface {
	// GenerateToken creates a signed token for the dashboard admin.
	GenerateToken(ctx context.Context) (string, error)

	// ValidateToken validates a token string and extracts its claims.
	// Returns ErrExpiredToken or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}
