package dto

import (
	"time"

	"github.com/filevaulthq/filevault_app/internal/core/domain"
)

// --- User DTOs ---

// UpdateUserRequest defines the data allowed for updating a profile.
// Using pointers to differentiate between omitted fields and zero-value fields.
type UpdateUserRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatarURL" binding:"omitempty,url"`
}

// ListUsersParams defines query parameters for listing users.
type ListUsersParams struct {
	Limit  int `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"omitempty,min=0"`
}

// UserResponse defines the user data returned to clients. Credential and
// session fields never appear here.
type UserResponse struct {
	UserID          string     `json:"userID"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	AvatarURL       string     `json:"avatarURL,omitempty"`
	Role            string     `json:"role"`
	AuthProvider    string     `json:"authProvider"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsActive        bool       `json:"isActive"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ToUserResponse converts a domain.User to its response DTO.
func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		UserID:          user.UserID,
		Email:           user.Email,
		Name:            user.Name,
		AvatarURL:       user.AvatarURL,
		Role:            string(user.Role),
		AuthProvider:    string(user.AuthProvider),
		IsEmailVerified: user.IsEmailVerified,
		IsActive:        user.IsActive,
		LastLoginAt:     user.LastLoginAt,
		CreatedAt:       user.CreatedAt,
	}
}

// ListUsersResponse wraps the list of users.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// ToListUsersResponse converts a slice of domain.User to ListUsersResponse.
func ToListUsersResponse(users []domain.User) ListUsersResponse {
	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = ToUserResponse(&users[i])
	}
	return ListUsersResponse{Users: userResponses}
}
