package handlers

import (
	"net/http"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/dto"
	"github.com/filevaulthq/filevault_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// UserHandler handles user profile and administration requests.
type UserHandler struct {
	userService portssvc.UserSvcFacade
	authService portssvc.AuthSvcFacade
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService portssvc.UserSvcFacade, authService portssvc.AuthSvcFacade) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
	}
}

// registerUserRoutes sets up user profile routes plus the admin subgroup.
func registerUserRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := NewUserHandler(services.User, services.Auth)

	users := rg.Group("/users")
	{
		users.GET("/profile", h.GetProfile)
		users.PUT("/profile", h.UpdateProfile)
		users.PUT("/change-password", h.ChangePassword)
	}

	admin := rg.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/users", h.ListUsers)
		admin.PUT("/users/:id/deactivate", h.DeactivateUser)
	}
}

// GetProfile godoc
// @Summary Get own profile
// @Description Returns the authenticated user's profile.
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// UpdateProfile godoc
// @Summary Update own profile
// @Description Updates the authenticated user's name or avatar.
// @Tags users
// @Accept json
// @Produce json
// @Param profile body dto.UpdateUserRequest true "Profile fields to update"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	updated, err := h.userService.UpdateUser(c.Request.Context(), user.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(updated))
}

// ChangePassword godoc
// @Summary Change own password
// @Description Verifies the current password, sets a new one and ends other sessions.
// @Tags users
// @Accept json
// @Produce json
// @Param passwords body dto.ChangePasswordRequest true "Current and new password"
// @Success 204 "Password changed"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Current password incorrect"
// @Security BearerAuth
// @Router /users/change-password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrNoToken)
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUsers godoc
// @Summary List users
// @Description Returns a paginated list of accounts. Admin only.
// @Tags admin
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} dto.ListUsersResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var params dto.ListUsersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondValidationError(c, err)
		return
	}

	users, err := h.userService.ListUsers(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListUsersResponse(users))
}

// DeactivateUser godoc
// @Summary Deactivate a user
// @Description Disables an account; all of its tokens stop working. Admin only.
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 204 "User deactivated"
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/deactivate [put]
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	targetID := c.Param("id")
	if targetID == "" {
		respondError(c, apperrors.NewBadRequestError("user ID is required"))
		return
	}

	if err := h.userService.DeactivateUser(c.Request.Context(), targetID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
