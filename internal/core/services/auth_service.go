package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
	"github.com/filevaulthq/filevault_app/internal/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// authService orchestrates the login-session state machine. Token, session
// and user services arrive as explicit constructor dependencies; nothing is
// resolved from globals.
type authService struct {
	userService    portssvc.UserSvcFacade
	tokenService   portssvc.TokenSvcFacade
	sessionService portssvc.SessionSvcFacade
	userRepo       portsrepo.UserRepositoryFacade
}

// NewAuthService creates the authentication gateway.
func NewAuthService(
	userService portssvc.UserSvcFacade,
	tokenService portssvc.TokenSvcFacade,
	sessionService portssvc.SessionSvcFacade,
	userRepo portsrepo.UserRepositoryFacade,
) portssvc.AuthSvcFacade {
	return &authService{
		userService:    userService,
		tokenService:   tokenService,
		sessionService: sessionService,
		userRepo:       userRepo,
	}
}

// openSession issues a pair and persists the refresh token. Shared by every
// flow that ends in an authenticated session.
func (s *authService) openSession(ctx context.Context, user *domain.User) (*portssvc.TokenPair, error) {
	pair, err := s.tokenService.IssueTokenPair(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token pair: %w", err)
	}
	if err := s.sessionService.PersistRefreshToken(ctx, user.UserID, pair.RefreshToken, pair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *authService) Register(ctx context.Context, email, password, name string) (*domain.User, *portssvc.TokenPair, error) {
	user, err := s.userService.CreateLocalUser(ctx, email, password, name)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, *portssvc.TokenPair, error) {
	user, err := s.userService.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.UserID, now); err != nil {
		return nil, nil, fmt.Errorf("failed to record login time: %w", err)
	}
	user.LastLoginAt = &now

	return user, pair, nil
}

// Refresh rotates on every call, not just near expiry. Any failure collapses
// to ErrInvalidRefreshToken: a refresh that fails with a plausible-looking
// token is treated as a possible replay, and the caller must force re-login.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *portssvc.TokenPair, error) {
	userID, err := s.tokenService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidRefreshToken
	}
	if !user.CanAuthenticate() {
		return nil, nil, apperrors.ErrInvalidRefreshToken
	}

	pair, err := s.tokenService.IssueTokenPair(user.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue token pair: %w", err)
	}

	if err := s.sessionService.ValidateAndRotate(ctx, user, refreshToken, pair.RefreshToken, pair.RefreshExpiresAt); err != nil {
		if errors.Is(err, apperrors.ErrInvalidRefreshToken) {
			return nil, nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, nil, err
	}

	return user, pair, nil
}

func (s *authService) Logout(ctx context.Context, userID string) error {
	return s.sessionService.ClearRefreshToken(ctx, userID)
}

func (s *authService) FederatedLogin(ctx context.Context, profile domain.GoogleUserInfo) (*domain.User, *portssvc.TokenPair, error) {
	user, err := s.userService.CreateOAuthUser(ctx, profile, domain.ProviderGoogle)
	if err != nil {
		return nil, nil, err
	}
	if !user.CanAuthenticate() {
		return nil, nil, apperrors.ErrAccountDeactivated
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.UserID, now); err != nil {
		return nil, nil, fmt.Errorf("failed to record login time: %w", err)
	}
	user.LastLoginAt = &now

	return user, pair, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return s.userService.ChangePassword(ctx, userID, currentPassword, newPassword)
}

// --- GoogleOAuthSvcFacade implementation ---

// googleOAuthService implements the GoogleOAuthSvcFacade.
type googleOAuthService struct {
	cfg *config.Config
	// oauth2Config is configured at initialization time
	oauth2Config *oauth2.Config
}

// NewGoogleOAuthService creates a new instance of googleOAuthService.
func NewGoogleOAuthService(cfg *config.Config) portssvc.GoogleOAuthSvcFacade {
	return &googleOAuthService{
		cfg: cfg,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint, // from "golang.org/x/oauth2/google"
		},
	}
}

// IsConfigured reports whether Google login can work at all. Handlers turn
// false into a "not configured" response instead of failing at exchange time.
func (s *googleOAuthService) IsConfigured() bool {
	return s.cfg.GoogleClientID != "" && s.cfg.GoogleClientSecret != "" && s.cfg.GoogleRedirectURL != ""
}

// GenerateStateString creates a secure random string to be used as a CSRF token for OAuth flow.
func (s *googleOAuthService) GenerateStateString(ctx context.Context) (string, error) {
	// 16 bytes -> 32 char hex string
	state, err := utils.GenerateSecureRandomString(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate state string for OAuth: %w", err)
	}
	return state, nil
}

// GetLoginURL returns the URL to redirect the user to for Google login.
func (s *googleOAuthService) GetLoginURL(ctx context.Context, state string) string {
	return s.oauth2Config.AuthCodeURL(state)
}

// ExchangeCodeForToken exchanges an OAuth authorization code for a token.
func (s *googleOAuthService) ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code for token: %w", err)
	}
	return token, nil
}

// ValidateIDToken validates an ID token received from Google and returns the payload if valid.
func (s *googleOAuthService) ValidateIDToken(ctx context.Context, idTokenString string) (*idtoken.Payload, error) {
	if s.cfg.GoogleClientID == "" {
		// This should ideally be caught at startup, but as a safeguard:
		return nil, apperrors.ErrNotConfigured
	}

	payload, err := idtoken.Validate(ctx, idTokenString, s.cfg.GoogleClientID)
	if err != nil {
		return nil, fmt.Errorf("google ID token validation failed: %w", err)
	}

	return payload, nil
}
