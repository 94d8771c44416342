package repositories

import (
	"context"
	"time"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
)

// UserReader defines read operations for user data
type UserReader interface {
	// FindUserByID retrieves a specific user by their ID.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by their (unique) email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUserByProviderID retrieves a user by federated identity.
	FindUserByProviderID(ctx context.Context, provider domain.AuthProvider, providerUserID string) (*domain.User, error)

	// FindUsers retrieves a paginated list of users.
	FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)
}

// UserWriter defines write operations for user data
type UserWriter interface {
	// SaveUser persists a new user.
	SaveUser(ctx context.Context, user domain.User) error

	// UpdateUser updates an existing user's profile and credential details.
	UpdateUser(ctx context.Context, user domain.User) error

	// UpdateLastLogin stamps the last successful login time.
	UpdateLastLogin(ctx context.Context, userID string, loginAt time.Time) error

	// SetActive flips the active flag on an account.
	SetActive(ctx context.Context, userID string, active bool) error
}

// RefreshTokenStore defines the single-slot refresh token persistence.
// The raw token never reaches this layer; callers pass its SHA-256 hash.
type RefreshTokenStore interface {
	// UpdateRefreshToken overwrites the stored slot unconditionally (login,
	// federated login).
	UpdateRefreshToken(ctx context.Context, userID string, refreshTokenHash string, refreshTokenExpiryTime time.Time) error

	// RotateRefreshToken replaces the stored slot only if it still holds
	// oldHash. Returns apperrors.ErrInvalidRefreshToken when the slot changed
	// since it was read, so two refreshes racing on the same stale token
	// cannot both succeed.
	RotateRefreshToken(ctx context.Context, userID string, oldHash, newHash string, refreshTokenExpiryTime time.Time) error

	// ClearRefreshToken empties the stored slot (logout, password change).
	ClearRefreshToken(ctx context.Context, userID string) error
}

// UserLifecycleManager defines operations for managing user lifecycle
type UserLifecycleManager interface {
	// MarkUserDeleted marks a user as deleted (soft delete).
	MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string) error
}

// UserRepositoryFacade combines all user-related repository interfaces
// This is a facade for clients that need access to all operations
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	RefreshTokenStore
	UserLifecycleManager
}
