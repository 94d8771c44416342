package services

import (
	"time"

	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
	"github.com/filevaulthq/filevault_app/internal/utils"
)

// tokenService implements TokenSvcFacade on top of two independent signers,
// one per token type. It holds no mutable state and is safe for concurrent
// use without synchronization.
type tokenService struct {
	access  utils.Signer
	refresh utils.Signer
}

// Claim values for the "typ" claim of the two token types.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// NewTokenService creates a token service with one HMAC signer per token
// type. The two secrets must be independent: compromise of one must not allow
// forging the other token type.
func NewTokenService(cfg *config.Config) (portssvc.TokenSvcFacade, error) {
	access, err := utils.NewHMACSigner(cfg.AccessTokenSecret, TokenTypeAccess, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenExpiryDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewHMACSigner(cfg.RefreshTokenSecret, TokenTypeRefresh, cfg.JWTIssuer, cfg.JWTAudience, cfg.RefreshTokenExpiryDuration)
	if err != nil {
		return nil, err
	}
	return &tokenService{access: access, refresh: refresh}, nil
}

// NewTokenServiceWithSigners wires explicit signers. Used by tests and kept
// public so the signing primitive stays swappable for key rotation without
// touching call sites.
func NewTokenServiceWithSigners(access, refresh utils.Signer) portssvc.TokenSvcFacade {
	return &tokenService{access: access, refresh: refresh}
}

func (s *tokenService) IssueAccessToken(userID string) (string, time.Time, error) {
	return s.access.Sign(userID)
}

func (s *tokenService) IssueRefreshToken(userID string) (string, time.Time, error) {
	return s.refresh.Sign(userID)
}

func (s *tokenService) IssueTokenPair(userID string) (*portssvc.TokenPair, error) {
	accessToken, accessExpiry, err := s.access.Sign(userID)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExpiry, err := s.refresh.Sign(userID)
	if err != nil {
		return nil, err
	}
	return &portssvc.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func (s *tokenService) VerifyAccessToken(token string) (string, error) {
	return s.access.Verify(token)
}

func (s *tokenService) VerifyRefreshToken(token string) (string, error) {
	return s.refresh.Verify(token)
}
