package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// HasPermission reports whether u holds perm. super_admin holds every permission.
func HasPermission(u *models.User, perm models.Permission) bool {
	if u == nil {
		return false
	}
	return u.IsSuperAdmin() || u.Permissions.Has(perm)
}

// PermissionGate builds request guards over the authenticated identity. Guards
// must be registered after AuthMiddleware.
type PermissionGate struct {
	policy *models.Policy
}

// NewPermissionGate constructs a PermissionGate for policy.
func NewPermissionGate(policy *models.Policy) *PermissionGate {
	return &PermissionGate{policy: policy}
}

// RequireAuthenticated rejects requests without an attached identity.
func (g *PermissionGate) RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.identity(c) == nil {
			return
		}
		c.Next()
	}
}

// RequirePermission passes when the user holds any of oneOf.
func (g *PermissionGate) RequirePermission(oneOf ...models.Permission) gin.HandlerFunc {
	g.mustKnow(oneOf)
	return func(c *gin.Context) {
		u := g.identity(c)
		if u == nil {
			return
		}
		if !u.IsSuperAdmin() && !u.Permissions.HasAny(oneOf...) {
			insufficient(c, oneOf, "any")
			return
		}
		c.Next()
	}
}

// RequireAllPermissions passes when the user holds every one of allOf.
func (g *PermissionGate) RequireAllPermissions(allOf ...models.Permission) gin.HandlerFunc {
	g.mustKnow(allOf)
	return func(c *gin.Context) {
		u := g.identity(c)
		if u == nil {
			return
		}
		if !u.IsSuperAdmin() && !u.Permissions.HasAll(allOf...) {
			insufficient(c, allOf, "all")
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin passes only for the super_admin role.
func (g *PermissionGate) RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := g.identity(c)
		if u == nil {
			return
		}
		if !u.IsSuperAdmin() {
			utils.AbortWithAppError(c, service.ErrSuperAdminRequired)
			return
		}
		c.Next()
	}
}

// RequireAdminPanelAccess passes for super_admin or holders of admin_panel_access.
func (g *PermissionGate) RequireAdminPanelAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := g.identity(c)
		if u == nil {
			return
		}
		if !HasPermission(u, models.PermAdminPanelAccess) {
			utils.AbortWithAppError(c, utils.Forbidden(utils.CodeNoAdminPanelAccess, "Admin panel access required"))
			return
		}
		c.Next()
	}
}

// RequireCollectionPermission guards /content/:collection routes with the
// permission matching the named collection.
func (g *PermissionGate) RequireCollectionPermission(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := g.identity(c)
		if u == nil {
			return
		}
		collection, err := service.ParseCollection(c.Param(param))
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}
		perm, _ := collection.Permission()
		if !HasPermission(u, perm) {
			insufficient(c, []models.Permission{perm}, "any")
			return
		}
		c.Next()
	}
}

// identity returns the attached user or aborts with 401. Reaching a guard
// without an identity means the route was wired without AuthMiddleware.
func (g *PermissionGate) identity(c *gin.Context) *models.User {
	u := CurrentUser(c)
	if u == nil {
		log.Error().
			Str("request_id", utils.GetRequestID(c)).
			Str("path", c.FullPath()).
			Msg("Permission check reached without an authenticated identity")
		utils.Error(c, http.StatusUnauthorized, utils.CodeNotAuthenticated, "Authentication required")
		c.Abort()
	}
	return u
}

func (g *PermissionGate) mustKnow(perms []models.Permission) {
	if len(perms) == 0 {
		panic("permission guard registered without permissions")
	}
	if bad := g.policy.Unknown(perms); len(bad) > 0 {
		panic(fmt.Sprintf("permission guard uses unknown permissions: %v", bad))
	}
}

func insufficient(c *gin.Context, required []models.Permission, mode string) {
	utils.AbortWithAppError(c, utils.Forbidden(utils.CodeInsufficientPerms, "Insufficient permissions").
		With("requiredPermissions", required).
		With("match", mode))
}
