package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/middleware"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// AuthHandler serves /auth.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, "Login successful", result)
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		CurrentPassword *string `json:"currentPassword"`
		NewPassword     string  `json:"newPassword"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.ResetPassword(c.Request.Context(), middleware.Actor(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, "Password updated successfully", result)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Current user", middleware.CurrentUser(c))
}

// Verify handles GET /auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	data := gin.H{"valid": true, "user": middleware.CurrentUser(c)}
	if claims := middleware.TokenClaims(c); claims != nil && claims.ExpiresAt != nil {
		data["expiresAt"] = claims.ExpiresAt.Time
	}
	utils.Success(c, http.StatusOK, "Token is valid", data)
}
