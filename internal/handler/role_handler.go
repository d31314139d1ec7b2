package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/middleware"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// RoleHandler serves /roles.
type RoleHandler struct {
	roleService *service.RoleService
}

// NewRoleHandler constructs a RoleHandler.
func NewRoleHandler(roleService *service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// ListRoles handles GET /roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Roles retrieved", gin.H{"roles": roles})
}

// ListPermissions handles GET /roles/permissions
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Permissions retrieved", gin.H{
		"permissions": h.roleService.Policy().Permissions(),
	})
}

// GetRole handles GET /roles/:roleId
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Request.Context(), c.Param("roleId"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Role retrieved", role)
}

// CreateRole handles POST /roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Role created", role)
}

// UpdateRole handles PATCH /roles/:roleId
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.roleService.UpdateRole(c.Request.Context(), middleware.Actor(c), c.Param("roleId"), req)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Role updated", result)
}

// DeleteRole handles DELETE /roles/:roleId
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roleService.DeleteRole(c.Request.Context(), middleware.Actor(c), c.Param("roleId")); err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Role deleted", nil)
}
