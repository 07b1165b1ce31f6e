package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskboard/internal/model"
	"taskboard/internal/service"
)

// UserHandler bundles user HTTP handlers.
type UserHandler struct {
	users service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// EditProfileRequest is the self-edit patch body. All fields are optional.
type EditProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// UpdateRoleRequest carries the new role for a user.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

// List godoc
// @Summary List users (admin)
// @Tags users
// @Produce json
// @Param search query string false "Case-insensitive name/email filter"
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size, default 10"
// @Success 200 {object} service.UserPage
// @Failure 403 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)
	result, err := h.users.List(c.Request().Context(), actor, c.QueryParam("search"), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Delete godoc
// @Summary Delete a user (admin)
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.users.Delete(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	return ok(c, "user deleted successfully")
}

// Me godoc
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} model.UserProjection
// @Failure 401 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	profile, err := h.users.Profile(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Edit godoc
// @Summary Edit own profile
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body EditProfileRequest true "Profile patch"
// @Success 200 {object} model.UserProjection
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [patch]
func (h *UserHandler) Edit(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req EditProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	patch := service.UserPatch{Name: req.Name, Email: req.Email, Password: req.Password}
	profile, err := h.users.EditProfile(c.Request().Context(), actor, id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateRole godoc
// @Summary Update a user's role (admin, never own)
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body UpdateRoleRequest true "New role"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/role [patch]
func (h *UserHandler) UpdateRole(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req UpdateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.users.UpdateRole(c.Request().Context(), actor, id, model.Role(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
