package services

import (
	"context"
	"fmt"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/utils"
)

// sessionService manages the single refresh-token slot per user. Only the
// SHA-256 hash of a token ever reaches the repository.
type sessionService struct {
	userRepo portsrepo.UserRepositoryFacade
}

// NewSessionService creates a new session service.
func NewSessionService(userRepo portsrepo.UserRepositoryFacade) portssvc.SessionSvcFacade {
	return &sessionService{userRepo: userRepo}
}

func (s *sessionService) PersistRefreshToken(ctx context.Context, userID string, refreshToken string, expiresAt time.Time) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, utils.HashRefreshToken(refreshToken), expiresAt); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}
	return nil
}

// ValidateAndRotate is the replay guard. The presented token must match the
// stored slot, and the swap to the next token is conditioned on the stored
// hash being unchanged since this user record was read. Two refreshes racing
// on the same stale token therefore cannot both succeed: the loser's
// conditional update matches zero rows and fails.
func (s *sessionService) ValidateAndRotate(ctx context.Context, user *domain.User, presented string, next string, nextExpiresAt time.Time) error {
	if user.RefreshTokenHash == "" || user.RefreshTokenExpiryTime == nil {
		return apperrors.ErrInvalidRefreshToken
	}
	if time.Now().After(*user.RefreshTokenExpiryTime) {
		return apperrors.ErrInvalidRefreshToken
	}
	if !utils.CompareRefreshTokenHash(presented, user.RefreshTokenHash) {
		return apperrors.ErrInvalidRefreshToken
	}

	oldHash := user.RefreshTokenHash
	if err := s.userRepo.RotateRefreshToken(ctx, user.UserID, oldHash, utils.HashRefreshToken(next), nextExpiresAt); err != nil {
		return err
	}
	return nil
}

func (s *sessionService) ClearRefreshToken(ctx context.Context, userID string) error {
	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}
