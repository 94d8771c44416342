package dto

import (
	"time"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
)

// --- Auth DTOs ---

// RegisterRequest defines the data required to create a local account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,strongpassword"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
}

// LoginRequest defines login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token in the body for non-browser clients.
// Browser clients send it via the HttpOnly cookie instead.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenPairResponse carries a freshly issued access/refresh pair.
type TokenPairResponse struct {
	AccessToken          string    `json:"accessToken"`
	AccessTokenExpiresAt time.Time `json:"accessTokenExpiresAt"`
	RefreshToken         string    `json:"refreshToken"`
}

// AuthResponse is returned by register, login and the OAuth callback.
type AuthResponse struct {
	User   UserResponse      `json:"user"`
	Tokens TokenPairResponse `json:"tokens"`
}

// ChangePasswordRequest defines the data for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,strongpassword"`
}

// ToAuthResponse assembles the auth payload from a user and an issued pair.
func ToAuthResponse(user *domain.User, access string, accessExpiry time.Time, refresh string) AuthResponse {
	return AuthResponse{
		User: ToUserResponse(user),
		Tokens: TokenPairResponse{
			AccessToken:          access,
			AccessTokenExpiresAt: accessExpiry,
			RefreshToken:         refresh,
		},
	}
}
