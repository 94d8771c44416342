package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// extractToken pulls the access token from the request. The Authorization
// header wins over the cookie so API clients can override a stale browser
// session.
func extractToken(c *gin.Context, cookieName string) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

func abortWithAuthError(c *gin.Context, err error) {
	status, code := apperrors.StatusAndCode(err)
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": err.Error()})
}

// attachUser stores the user, its ID and an enriched logger in the request
// context for everything downstream.
func attachUser(c *gin.Context, user *domain.User) {
	logger := GetLoggerFromCtx(c.Request.Context()).With(slog.String("user_id", user.UserID))

	ctx := c.Request.Context()
	ctx = context.WithValue(ctx, userIDKey, user.UserID)
	ctx = context.WithValue(ctx, userCtxKey, user)
	ctx = context.WithValue(ctx, loggerCtxKey, logger)
	c.Request = c.Request.WithContext(ctx)
}

// Authenticate creates a Gin middleware that verifies the access token and
// loads the account it belongs to. A token for a deactivated or deleted
// account is rejected even when the signature is still valid.
func Authenticate(cfg *config.Config, tokenSvc portssvc.TokenSvcFacade, userSvc portssvc.UserReaderSvc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		tokenString := extractToken(c, cfg.AccessTokenCookieName)
		if tokenString == "" {
			abortWithAuthError(c, apperrors.ErrNoToken)
			return
		}

		userID, err := tokenSvc.VerifyAccessToken(tokenString)
		if err != nil {
			logger.Warn("Access token rejected", slog.String("error", err.Error()))
			abortWithAuthError(c, err)
			return
		}

		user, err := userSvc.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			logger.Warn("Token subject not found", slog.String("user_id", userID))
			abortWithAuthError(c, apperrors.ErrInvalidToken)
			return
		}
		if !user.CanAuthenticate() {
			abortWithAuthError(c, apperrors.ErrAccountDeactivated)
			return
		}

		attachUser(c, user)
		c.Next()
	}
}

// OptionalAuthenticate loads the user when a valid token is present and lets
// the request through anonymously otherwise. Used on endpoints whose results
// depend on who is asking but which are open to the public.
func OptionalAuthenticate(cfg *config.Config, tokenSvc portssvc.TokenSvcFacade, userSvc portssvc.UserReaderSvc) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c, cfg.AccessTokenCookieName)
		if tokenString == "" {
			c.Next()
			return
		}

		userID, err := tokenSvc.VerifyAccessToken(tokenString)
		if err != nil {
			c.Next()
			return
		}
		user, err := userSvc.GetUserByID(c.Request.Context(), userID)
		if err != nil || !user.CanAuthenticate() {
			c.Next()
			return
		}

		attachUser(c, user)
		c.Next()
	}
}

// RequireRole gates a route group behind a role. Must run after Authenticate.
func RequireRole(role domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			abortWithAuthError(c, apperrors.ErrNoToken)
			return
		}
		if user.Role != role {
			abortWithAuthError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
