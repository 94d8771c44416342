package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/middleware"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
	"github.com/gin-gonic/gin"
)

const oauthStateCookieName = "oauth_state"

// GoogleOAuthHandler handles the Google sign-in redirect flow. When the
// Google client credentials are absent both endpoints answer "not configured"
// instead of half-working.
type GoogleOAuthHandler struct {
	googleOAuthService portssvc.GoogleOAuthSvcFacade
	authService        portssvc.AuthSvcFacade
	authHandler        *AuthHandler
	cfg                *config.Config
}

// NewGoogleOAuthHandler creates a new instance of GoogleOAuthHandler.
func NewGoogleOAuthHandler(googleOAuthService portssvc.GoogleOAuthSvcFacade, authService portssvc.AuthSvcFacade, authHandler *AuthHandler, cfg *config.Config) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		googleOAuthService: googleOAuthService,
		authService:        authService,
		authHandler:        authHandler,
		cfg:                cfg,
	}
}

// registerGoogleOAuthRoutes registers the Google OAuth routes.
func registerGoogleOAuthRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	authHandler := NewAuthHandler(services.Auth, services.Token, cfg)
	h := NewGoogleOAuthHandler(services.GoogleOAuth, services.Auth, authHandler, cfg)

	google := r.Group("/api/v1/auth/google")
	{
		google.GET("/start", h.Start)
		google.GET("/callback", h.Callback)
	}
}

// redirectWithError sends the browser back to the frontend with an error flag
// instead of rendering JSON it will never parse.
func (h *GoogleOAuthHandler) redirectWithError(c *gin.Context, reason string) {
	target := h.cfg.FrontendBaseURL + "/login?error=" + url.QueryEscape(reason)
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// Start godoc
// @Summary Begin Google sign-in
// @Description Redirects the browser to Google's consent screen with a CSRF state cookie.
// @Tags oauth
// @Success 307 "Redirect to Google"
// @Failure 501 {object} ErrorResponse "Google OAuth not configured"
// @Router /auth/google/start [get]
func (h *GoogleOAuthHandler) Start(c *gin.Context) {
	if !h.googleOAuthService.IsConfigured() {
		respondError(c, apperrors.ErrNotConfigured)
		return
	}

	state, err := h.googleOAuthService.GenerateStateString(c.Request.Context())
	if err != nil {
		respondError(c, apperrors.NewInternalServerError("failed to generate OAuth state"))
		return
	}

	// Ten minutes is plenty to complete the consent screen.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookieName, state, 600, "/api/v1/auth/google", "", h.cfg.IsProduction, true)

	c.Redirect(http.StatusTemporaryRedirect, h.googleOAuthService.GetLoginURL(c.Request.Context(), state))
}

// Callback godoc
// @Summary Google sign-in callback
// @Description Validates the state and code from Google, resolves the account and opens a session.
// @Tags oauth
// @Success 307 "Redirect back to the frontend"
// @Failure 501 {object} ErrorResponse "Google OAuth not configured"
// @Router /auth/google/callback [get]
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	if !h.googleOAuthService.IsConfigured() {
		respondError(c, apperrors.ErrNotConfigured)
		return
	}

	// CSRF check: the state echoed by Google must match the cookie we set.
	stateCookie, err := c.Cookie(oauthStateCookieName)
	if err != nil || stateCookie == "" || c.Query("state") != stateCookie {
		logger.Warn("OAuth state mismatch")
		h.redirectWithError(c, "oauth_state_mismatch")
		return
	}
	c.SetCookie(oauthStateCookieName, "", -1, "/api/v1/auth/google", "", h.cfg.IsProduction, true)

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("Google returned an OAuth error", slog.String("error", errParam))
		h.redirectWithError(c, "oauth_denied")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.redirectWithError(c, "oauth_missing_code")
		return
	}

	oauth2Token, err := h.googleOAuthService.ExchangeCodeForToken(ctx, code)
	if err != nil {
		logger.Error("Failed to exchange authorization code with Google", slog.String("error", err.Error()))
		h.redirectWithError(c, "oauth_exchange_failed")
		return
	}

	idTokenString, ok := oauth2Token.Extra("id_token").(string)
	if !ok || idTokenString == "" {
		logger.Error("ID token not found in Google's token response")
		h.redirectWithError(c, "oauth_exchange_failed")
		return
	}

	payload, err := h.googleOAuthService.ValidateIDToken(ctx, idTokenString)
	if err != nil {
		logger.Error("Google ID token validation failed", slog.String("error", err.Error()))
		h.redirectWithError(c, "oauth_invalid_token")
		return
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	emailVerified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || payload.Subject == "" {
		logger.Error("Essential claims missing from Google ID token payload")
		h.redirectWithError(c, "oauth_invalid_token")
		return
	}

	profile := domain.GoogleUserInfo{
		ID:            payload.Subject,
		Email:         email,
		VerifiedEmail: emailVerified,
		Name:          name,
		Picture:       picture,
	}

	user, pair, err := h.authService.FederatedLogin(ctx, profile)
	if err != nil {
		logger.Error("Federated login failed", slog.String("error", err.Error()), slog.String("google_user_id", profile.ID))
		h.redirectWithError(c, "oauth_login_failed")
		return
	}

	logger.Info("User signed in via Google", slog.String("user_id", user.UserID))
	h.authHandler.setSessionCookies(c, pair)
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.FrontendBaseURL+"/login?success=true")
}
