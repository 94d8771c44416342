package services

import (
	"context"
	"time"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenSvcFacade defines stateless issuance and verification of signed tokens.
// Access and refresh tokens are signed with independent secrets; a token of
// one type never verifies as the other.
type TokenSvcFacade interface {
	// IssueAccessToken signs a short-lived access token for the user.
	IssueAccessToken(userID string) (string, time.Time, error)

	// IssueRefreshToken signs a long-lived refresh token for the user.
	IssueRefreshToken(userID string) (string, time.Time, error)

	// IssueTokenPair issues both tokens in one call.
	IssueTokenPair(userID string) (*TokenPair, error)

	// VerifyAccessToken returns the subject user ID. Fails with
	// apperrors.ErrTokenExpired past TTL, apperrors.ErrInvalidToken on any
	// signature/issuer/audience/type mismatch.
	VerifyAccessToken(token string) (string, error)

	// VerifyRefreshToken is VerifyAccessToken for the refresh secret and type.
	VerifyRefreshToken(token string) (string, error)
}

// SessionSvcFacade manages the single stored refresh-token slot per user.
type SessionSvcFacade interface {
	// PersistRefreshToken overwrites the stored slot (login).
	PersistRefreshToken(ctx context.Context, userID string, refreshToken string, expiresAt time.Time) error

	// ValidateAndRotate checks that presented matches the stored slot and
	// atomically replaces it with next. A token that was already rotated away
	// fails with apperrors.ErrInvalidRefreshToken even though it would still
	// pass cryptographic verification.
	ValidateAndRotate(ctx context.Context, user *domain.User, presented string, next string, nextExpiresAt time.Time) error

	// ClearRefreshToken empties the slot (logout). Idempotent.
	ClearRefreshToken(ctx context.Context, userID string) error
}

// AuthSvcFacade orchestrates the login-session state machine: registration,
// login, refresh rotation, logout and the federated callback.
type AuthSvcFacade interface {
	// Register creates a local account and opens a session.
	Register(ctx context.Context, email, password, name string) (*domain.User, *TokenPair, error)

	// Login verifies credentials and opens a session, updating last-login.
	Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error)

	// Refresh exchanges a valid refresh token for a new pair, rotating the
	// stored token. Every failure surfaces as apperrors.ErrInvalidRefreshToken
	// and is terminal for the session.
	Refresh(ctx context.Context, refreshToken string) (*domain.User, *TokenPair, error)

	// Logout clears the stored refresh token. Idempotent.
	Logout(ctx context.Context, userID string) error

	// FederatedLogin resolves a verified provider profile to a user and opens
	// a session, exactly like Login from the token side.
	FederatedLogin(ctx context.Context, profile domain.GoogleUserInfo) (*domain.User, *TokenPair, error)

	// ChangePassword delegates to the user service and ends other sessions.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// GoogleOAuthSvcFacade defines the interface for Google OAuth operations.
type GoogleOAuthSvcFacade interface {
	// IsConfigured reports whether the Google client credentials are present.
	// Handlers turn false into a "not configured" error instead of crashing.
	IsConfigured() bool

	// GenerateStateString creates a secure random string to be used as a CSRF token for OAuth flow.
	GenerateStateString(ctx context.Context) (string, error)

	// GetLoginURL returns the URL to redirect the user to for Google login.
	GetLoginURL(ctx context.Context, state string) string

	// ExchangeCodeForToken exchanges an OAuth authorization code for a token.
	ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error)

	// ValidateIDToken validates an ID token string from Google and returns its payload.
	ValidateIDToken(ctx context.Context, idTokenString string) (*idtoken.Payload, error)
}
