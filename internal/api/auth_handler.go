// Package api contains the HTTP handlers for the dashboard API.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mwarren/clipforge/internal/api/shared"
	"github.com/mwarren/clipforge/internal/auth"
	"github.com/mwarren/clipforge/internal/config"
)

// AuthHandler handles dashboard login.
type AuthHandler struct {
	tokens       auth.TokenService
	passwordHash string
	logger       *slog.Logger
	tokenMinutes int
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokens auth.TokenService, cfg config.AuthConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:       tokens,
		passwordHash: cfg.AdminPasswordHash,
		logger:       logger.With("component", "auth_handler"),
		tokenMinutes: cfg.TokenLifetimeMinutes,
	}
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token for subsequent requests.
type LoginResponse struct {
	Token            string `json:"token"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// Login exchanges the admin password for a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeValid(r, &req); err != nil {
		if errors.Is(err, shared.ErrMalformedBody) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		} else {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Password is required")
		}
		return
	}

	if err := auth.VerifyPassword(h.passwordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Authentication error", err)
		return
	}

	token, err := h.tokens.GenerateToken(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate token", err)
		return
	}

	h.logger.InfoContext(r.Context(), "admin logged in")
	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{
		Token:            token,
		ExpiresInMinutes: h.tokenMinutes,
	})
}
