package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cmaxbonds/internal/delivery/http/dto"
	"cmaxbonds/internal/middleware"
	"cmaxbonds/internal/usecase"
	"cmaxbonds/pkg/logger"
)

// AdminHandler handles user management requests
type AdminHandler struct {
	admin *usecase.AdminService
	log   *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *usecase.AdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

// ListUsers returns all users without their passwords
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.admin.ListUsers(c.Request().Context())
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}
	return SuccessResponse(c, map[string]interface{}{
		"users": dto.NewUserOutputs(users),
		"count": len(users),
	})
}

// AddUser creates a user from the admin form
// POST /admin/add-user
func (h *AdminHandler) AddUser(c echo.Context) error {
	var req dto.AddUserRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, "Invalid user data", errs)
	}

	actor, _ := middleware.GetUsername(c)
	user, err := h.admin.AddUser(c.Request().Context(), actor, usecase.NewUserInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		return DomainErrorResponse(c, h.log, err)
	}

	return CreatedResponse(c, "User added", dto.NewUserOutput(user))
}

// DeleteUser removes a user
// DELETE /api/admin/users/:username
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, _ := middleware.GetUsername(c)
	if err := h.admin.DeleteUser(c.Request().Context(), actor, c.Param("username")); err != nil {
		return DomainErrorResponse(c, h.log, err)
	}
	return SuccessMessageResponse(c, "User deleted", nil)
}

// DeleteUserPage removes a user and returns to the admin page
// GET /admin/delete-user/:username
func (h *AdminHandler) DeleteUserPage(c echo.Context) error {
	actor, _ := middleware.GetUsername(c)
	if err := h.admin.DeleteUser(c.Request().Context(), actor, c.Param("username")); err != nil {
		h.log.Warn("admin delete rejected",
			logger.String("actor", actor),
			logger.String("username", c.Param("username")),
			logger.Error(err),
		)
		return c.String(http.StatusBadRequest, "Cannot delete user")
	}
	return c.Redirect(http.StatusFound, "/admin/users")
}
