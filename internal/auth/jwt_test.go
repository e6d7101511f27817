package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mwarren/clipforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            strings.Repeat("s", 32),
		AdminPasswordHash:    "",
		TokenLifetimeMinutes: 60,
	}
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = "short"

	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	token, err := svc.GenerateToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestValidateTokenExpired(t *testing.T) {
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	impl := svc.(*hmacTokenService)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx)
	require.NoError(t, err)

	// Validate well past the lifetime plus clock skew.
	impl.timeFunc = func() time.Time {
		return time.Now().Add(2 * time.Hour)
	}

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongKey(t *testing.T) {
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	other := testAuthConfig()
	other.JWTSecret = strings.Repeat("x", 32)
	otherSvc, err := NewJWTService(other)
	require.NoError(t, err)

	ctx := context.Background()
	token, err := otherSvc.GenerateToken(ctx)
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2-but-longer")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "hunter2-but-longer"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	err := VerifyPassword("not-a-bcrypt-hash", "whatever")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
