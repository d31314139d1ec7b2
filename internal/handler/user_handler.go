package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/middleware"
	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// UserHandler serves /users.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers handles GET /users?search=&role=&status=active|inactive
func (h *UserHandler) ListUsers(c *gin.Context) {
	filter := models.UserFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Role:   strings.TrimSpace(c.Query("role")),
	}
	switch c.Query("status") {
	case "", "all":
	case "active":
		active := true
		filter.IsActive = &active
	case "inactive":
		active := false
		filter.IsActive = &active
	default:
		utils.Error(c, http.StatusBadRequest, utils.CodeInvalidRequest, "status must be active, inactive or all")
		return
	}

	users, err := h.userService.ListUsers(c.Request.Context(), middleware.Actor(c), filter)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, "Users retrieved", gin.H{"users": users, "total": len(users)})
}

// GetUser handles GET /users/:username
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), middleware.Actor(c), c.Param("username"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "User retrieved", user)
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.userService.CreateUser(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.Success(c, http.StatusCreated, "User created. Share the generated password securely; it will not be shown again.", created)
}

// UpdateUser handles PATCH /users/:username
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), middleware.Actor(c), c.Param("username"), req)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, "User updated", user)
}

// DeleteUser handles DELETE /users/:username
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), middleware.Actor(c), c.Param("username")); err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "User deleted", nil)
}

// ResetUserPassword handles POST /users/:username/reset-password
func (h *UserHandler) ResetUserPassword(c *gin.Context) {
	result, err := h.userService.ResetUserPassword(c.Request.Context(), middleware.Actor(c), c.Param("username"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Password reset. Share the generated password securely; it will not be shown again.", result)
}
