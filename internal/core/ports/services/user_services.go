package services

import (
	"context"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
	"github.com/filevaulthq/filevault_app/internal/dto"
)

// UserReaderSvc defines read operations for user data
type UserReaderSvc interface {
	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListUsers retrieves a paginated list of users.
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
}

// UserWriterSvc defines write operations for user data
type UserWriterSvc interface {
	// CreateLocalUser creates a new email/password account. Fails with
	// apperrors.ErrDuplicate when the email is already registered.
	CreateLocalUser(ctx context.Context, email, password, name string) (*domain.User, error)

	// CreateOAuthUser resolves a federated login: returns the user already
	// linked to this provider identity, links the identity to an existing
	// account with the same email, or creates a new passwordless account.
	CreateOAuthUser(ctx context.Context, profile domain.GoogleUserInfo, provider domain.AuthProvider) (*domain.User, error)

	// UpdateUser updates a user's own profile fields.
	UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest) (*domain.User, error)

	// ChangePassword verifies currentPassword and replaces the hash. The
	// stored refresh token is cleared as a side effect, forcing re-login on
	// every other session.
	ChangePassword(ctx context.Context, userID string, currentPassword, newPassword string) error
}

// UserAuthSvc defines credential verification for the auth gateway.
type UserAuthSvc interface {
	// VerifyCredentials checks email+password and returns the user. Unknown
	// email and wrong password both yield apperrors.ErrInvalidCredentials.
	VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error)
}

// UserLifecycleSvc defines operations for managing user lifecycle
type UserLifecycleSvc interface {
	// DeactivateUser disables an account; all auth checks fail afterwards.
	DeactivateUser(ctx context.Context, userID string) error
}

// UserSvcFacade combines all user-related service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
	UserAuthSvc
	UserLifecycleSvc
}
