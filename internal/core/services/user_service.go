package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/dto"
	"github.com/filevaulthq/filevault_app/internal/utils"
	"github.com/google/uuid"
)

// userService implements UserSvcFacade. It owns password hashing and the
// federated-identity linking rules.
type userService struct {
	userRepo portsrepo.UserRepositoryFacade
}

// NewUserService creates a new user service.
func NewUserService(userRepo portsrepo.UserRepositoryFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindUserByEmail(ctx, normalizeEmail(email))
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.userRepo.FindUsers(ctx, limit, offset)
}

// CreateLocalUser creates an email/password account. The email-verification
// token is generated here; the mail delivery itself is an external concern.
func (s *userService) CreateLocalUser(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = normalizeEmail(email)

	existing, err := s.userRepo.FindUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing account: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicate
	}

	passwordHash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := utils.GenerateSecureRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	now := time.Now()
	newUserID := uuid.NewString()
	user := domain.User{
		UserID:            newUserID,
		Email:             email,
		Name:              name,
		Role:              domain.RoleUser,
		PasswordHash:      passwordHash,
		AuthProvider:      domain.ProviderLocal,
		VerificationToken: verificationToken,
		IsActive:          true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     newUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: newUserID,
		},
	}

	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		// The unique index on email is the real guard against a concurrent
		// registration slipping past the read above.
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// CreateOAuthUser resolves a verified provider profile to exactly one user:
//  1. a user already linked to this provider identity is returned as-is
//     (name/avatar refreshed only when unset),
//  2. a user with the same email gets the identity linked and the email
//     marked verified (the provider verified it out of band),
//  3. otherwise a new passwordless, pre-verified account is created.
func (s *userService) CreateOAuthUser(ctx context.Context, profile domain.GoogleUserInfo, provider domain.AuthProvider) (*domain.User, error) {
	if profile.ID == "" || profile.Email == "" {
		return nil, apperrors.NewBadRequestError("provider profile is missing id or email")
	}
	email := normalizeEmail(profile.Email)

	linked, err := s.userRepo.FindUserByProviderID(ctx, provider, profile.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up federated identity: %w", err)
	}
	if linked != nil {
		changed := false
		if linked.Name == "" && profile.Name != "" {
			linked.Name = profile.Name
			changed = true
		}
		if linked.AvatarURL == "" && profile.Picture != "" {
			linked.AvatarURL = profile.Picture
			changed = true
		}
		if changed {
			linked.LastUpdatedAt = time.Now()
			linked.LastUpdatedBy = linked.UserID
			if err := s.userRepo.UpdateUser(ctx, *linked); err != nil {
				return nil, fmt.Errorf("failed to refresh federated profile: %w", err)
			}
		}
		return linked, nil
	}

	byEmail, err := s.userRepo.FindUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	}
	if byEmail != nil {
		byEmail.AuthProvider = provider
		byEmail.ProviderUserID = profile.ID
		byEmail.IsEmailVerified = true
		if byEmail.AvatarURL == "" && profile.Picture != "" {
			byEmail.AvatarURL = profile.Picture
		}
		byEmail.LastUpdatedAt = time.Now()
		byEmail.LastUpdatedBy = byEmail.UserID
		if err := s.userRepo.UpdateUser(ctx, *byEmail); err != nil {
			return nil, fmt.Errorf("failed to link federated identity: %w", err)
		}
		return byEmail, nil
	}

	now := time.Now()
	newUserID := uuid.NewString()
	user := domain.User{
		UserID:          newUserID,
		Email:           email,
		Name:            profile.Name,
		AvatarURL:       profile.Picture,
		Role:            domain.RoleUser,
		AuthProvider:    provider,
		ProviderUserID:  profile.ID,
		IsEmailVerified: true,
		IsActive:        true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     newUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: newUserID,
		},
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", err)
	}
	return &user, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	user.LastUpdatedAt = time.Now()
	user.LastUpdatedBy = userID

	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ChangePassword clears the stored refresh token after setting the new hash.
// Every other session's refresh token stops matching the slot and dies at its
// next refresh.
func (s *userService) ChangePassword(ctx context.Context, userID string, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash == "" || !utils.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}

	newHash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	user.PasswordHash = newHash
	user.LastUpdatedAt = time.Now()
	user.LastUpdatedBy = userID
	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate sessions after password change: %w", err)
	}
	return nil
}

// VerifyCredentials returns the same error for an unknown email and a wrong
// password so responses cannot be used to enumerate accounts. The deactivated
// state is only reported once the password has checked out; a wrong guess
// against a deactivated account looks like any other wrong guess.
func (s *userService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user for login: %w", err)
	}

	if user.PasswordHash == "" || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return nil, apperrors.ErrAccountDeactivated
	}
	return user, nil
}

func (s *userService) DeactivateUser(ctx context.Context, userID string) error {
	if err := s.userRepo.SetActive(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	// A deactivated account must not keep a live session either.
	return s.userRepo.ClearRefreshToken(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
