// Package router wires handlers and guards into the HTTP route table.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/handler"
	"github.com/GTDGit/cms_api/internal/middleware"
	"github.com/GTDGit/cms_api/internal/utils"
)

// Handlers groups every HTTP handler.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Role    *handler.RoleHandler
	Audit   *handler.AuditHandler
	Profile *handler.ProfileHandler
	Content *handler.ContentHandler
	Health  *handler.HealthHandler
}

// Guards groups the request guards applied by the route table.
type Guards struct {
	Auth         *middleware.AuthMiddleware
	Gate         *middleware.PermissionGate
	LoginLimiter *middleware.LoginRateLimiter
	CORSOrigins  []string
}

// New builds a gin engine with the global middleware chain and all routes.
func New(h *Handlers, g *Guards) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(g.CORSOrigins))
	r.NoRoute(func(c *gin.Context) {
		utils.Error(c, http.StatusNotFound, utils.CodeRouteNotFound, "Route not found")
	})

	SetupRoutes(r, h, g)
	return r
}

// SetupRoutes registers the route table. Authentication always runs before
// any permission guard.
func SetupRoutes(r *gin.Engine, h *Handlers, g *Guards) {
	authn := g.Auth.Handle()
	gate := g.Gate

	r.GET("/health", h.Health.GetHealth)

	r.POST("/auth/login", g.LoginLimiter.Handle(), h.Auth.Login)
	auth := r.Group("/auth", authn, gate.RequireAuthenticated())
	{
		auth.POST("/reset-password", h.Auth.ResetPassword)
		auth.GET("/me", h.Auth.Me)
		auth.GET("/verify", h.Auth.Verify)
	}

	profile := r.Group("/profile", authn, gate.RequireAuthenticated())
	{
		profile.GET("", h.Profile.GetProfile)
		profile.PATCH("", h.Profile.UpdateProfile)
		profile.POST("/change-password", h.Profile.ChangePassword)
		profile.POST("/picture", h.Profile.UploadPicture)
		profile.DELETE("/picture", h.Profile.DeletePicture)
	}

	users := r.Group("/users", authn, gate.RequireSuperAdmin())
	{
		users.GET("", h.User.ListUsers)
		users.POST("", h.User.CreateUser)
		users.GET("/:username", h.User.GetUser)
		users.PATCH("/:username", h.User.UpdateUser)
		users.DELETE("/:username", h.User.DeleteUser)
		users.POST("/:username/reset-password", h.User.ResetUserPassword)
	}

	roles := r.Group("/roles", authn, gate.RequireSuperAdmin())
	{
		roles.GET("", h.Role.ListRoles)
		roles.POST("", h.Role.CreateRole)
		roles.GET("/permissions", h.Role.ListPermissions)
		roles.GET("/:roleId", h.Role.GetRole)
		roles.PATCH("/:roleId", h.Role.UpdateRole)
		roles.DELETE("/:roleId", h.Role.DeleteRole)
	}

	audit := r.Group("/audit-logs", authn, gate.RequireSuperAdmin())
	{
		audit.GET("", h.Audit.ListAuditLogs)
		audit.GET("/event-types", h.Audit.EventTypes)
	}

	content := r.Group("/content/:collection", authn, gate.RequireAdminPanelAccess(), gate.RequireCollectionPermission("collection"))
	{
		content.GET("", h.Content.List)
		content.POST("", h.Content.Create)
		content.GET("/:id", h.Content.Get)
		content.PUT("/:id", h.Content.Update)
		content.DELETE("/:id", h.Content.Delete)
	}
}
