package handlers

import (
	"net/http"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/dto"
	"github.com/filevaulthq/filevault_app/internal/middleware"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication related requests.
type AuthHandler struct {
	authService  portssvc.AuthSvcFacade
	tokenService portssvc.TokenSvcFacade
	cfg          *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService portssvc.AuthSvcFacade, tokenService portssvc.TokenSvcFacade, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		cfg:          cfg,
	}
}

// registerAuthRoutes sets up the routes for authentication. Login and register
// are rate limited per IP to slow down credential stuffing.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	h := NewAuthHandler(services.Auth, services.Token, cfg)

	limitMiddleware := middleware.RateLimit("5-M")

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", limitMiddleware, h.Register)
		auth.POST("/login", limitMiddleware, h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", middleware.OptionalAuthenticate(cfg, services.Token, services.User), h.Logout)
	}
}

// setSessionCookies writes both token cookies for browser clients. The refresh
// cookie is scoped to the auth path so it never rides along on API calls.
func (h *AuthHandler) setSessionCookies(c *gin.Context, pair *portssvc.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	accessMaxAge := int(time.Until(pair.AccessExpiresAt).Seconds())
	c.SetCookie(h.cfg.AccessTokenCookieName, pair.AccessToken, accessMaxAge, "/", "", h.cfg.IsProduction, true)
	refreshMaxAge := int(time.Until(pair.RefreshExpiresAt).Seconds())
	c.SetCookie(h.cfg.RefreshTokenCookieName, pair.RefreshToken, refreshMaxAge, h.cfg.RefreshTokenCookiePath, "", h.cfg.IsProduction, true)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.AccessTokenCookieName, "", -1, "/", "", h.cfg.IsProduction, true)
	c.SetCookie(h.cfg.RefreshTokenCookieName, "", -1, h.cfg.RefreshTokenCookiePath, "", h.cfg.IsProduction, true)
}

// Register godoc
// @Summary Register new user
// @Description Creates a local account and opens a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param register body dto.RegisterRequest true "User Registration Info"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, pair, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusCreated, dto.ToAuthResponse(user, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken))
}

// Login godoc
// @Summary User login
// @Description Authenticates a user and returns an access/refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Login Credentials"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Account deactivated"
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, dto.ToAuthResponse(user, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken))
}

// refreshTokenFromRequest reads the refresh token from the JSON body for API
// clients, falling back to the HttpOnly cookie for browsers.
func (h *AuthHandler) refreshTokenFromRequest(c *gin.Context) string {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(h.cfg.RefreshTokenCookieName); err == nil {
		return cookie
	}
	return ""
}

// Refresh godoc
// @Summary Refresh token pair
// @Description Exchanges a valid refresh token for a new pair, rotating the stored token.
// @Tags auth
// @Accept json
// @Produce json
// @Param refresh body dto.RefreshRequest false "Refresh token (omit when using the cookie)"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} ErrorResponse "Invalid, expired or already used refresh token"
// @Failure 500 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.refreshTokenFromRequest(c)
	if refreshToken == "" {
		respondError(c, apperrors.ErrInvalidRefreshToken)
		return
	}

	user, pair, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.clearSessionCookies(c)
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, dto.ToAuthResponse(user, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken))
}

// Logout godoc
// @Summary User logout
// @Description Clears the stored refresh token and session cookies. Idempotent.
// @Tags auth
// @Produce json
// @Success 204 "Logged out"
// @Failure 500 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		// Expired access tokens must not block logout; fall back to the
		// refresh token to identify the session.
		if refreshToken := h.refreshTokenFromRequest(c); refreshToken != "" {
			userID, _ = h.tokenService.VerifyRefreshToken(refreshToken)
		}
	}

	if userID != "" {
		if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
			respondError(c, err)
			return
		}
	}

	h.clearSessionCookies(c)
	c.Status(http.StatusNoContent)
}
