package models

import (
	"database/sql"
	"time"
)

// User is the persistence model for a row of the users table.
type User struct {
	UserID    string `db:"user_id"`
	Email     string `db:"email"`
	Name      string `db:"name"`
	AvatarURL sql.NullString `db:"avatar_url"`
	Role      string `db:"role"`

	PasswordHash   sql.NullString `db:"password_hash"`
	AuthProvider   string         `db:"auth_provider"`
	ProviderUserID sql.NullString `db:"provider_user_id"`

	IsEmailVerified     bool           `db:"is_email_verified"`
	VerificationToken   sql.NullString `db:"verification_token"`
	ResetPasswordToken  sql.NullString `db:"reset_password_token"`
	ResetPasswordExpiry sql.NullTime   `db:"reset_password_expiry"`

	// Refresh Token Fields
	RefreshTokenHash       sql.NullString `db:"refresh_token_hash"`        // Store hash of the refresh token
	RefreshTokenExpiryTime sql.NullTime   `db:"refresh_token_expiry_time"` // Expiry of the stored refresh token

	IsActive    bool         `db:"is_active"`
	LastLoginAt sql.NullTime `db:"last_login_at"`

	AuditFields
	DeletedAt *time.Time `db:"deleted_at"`
}
