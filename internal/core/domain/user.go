package domain

import "time"

// UserRole determines the privilege level of an account.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// AuthProvider identifies where a federated identity came from.
type AuthProvider string

const (
	// ProviderLocal marks an email/password account with no federated link.
	ProviderLocal  AuthProvider = "LOCAL"
	ProviderGoogle AuthProvider = "GOOGLE"
)

// User represents a user of the application in the domain.
//
// A user either has a PasswordHash (local account), a ProviderUserID
// (federated account), or both once a federated identity has been linked to an
// existing local account. A user with neither cannot authenticate and must not
// be persisted.
type User struct {
	UserID    string   `json:"userID"` // Primary Key (UUID)
	Email     string   `json:"email"`  // Globally unique
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarURL,omitempty"`
	Role      UserRole `json:"role"`

	// Credentials. PasswordHash is empty for federated-only accounts.
	PasswordHash   string       `json:"-"`
	AuthProvider   AuthProvider `json:"authProvider"`
	ProviderUserID string       `json:"-"` // Globally unique when present

	// Verification / reset.
	IsEmailVerified     bool       `json:"isEmailVerified"`
	VerificationToken   string     `json:"-"`
	ResetPasswordToken  string     `json:"-"`
	ResetPasswordExpiry *time.Time `json:"-"`

	// Session. At most one live refresh token per user; the raw token is never
	// stored, only its SHA-256 hash.
	RefreshTokenHash       string     `json:"-"`
	RefreshTokenExpiryTime *time.Time `json:"-"`

	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Used for soft delete
}

// CanAuthenticate reports whether the account is usable for any auth flow.
// Deactivated accounts fail every check regardless of credentials.
func (u *User) CanAuthenticate() bool {
	return u != nil && u.IsActive && u.DeletedAt == nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
