package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// Context keys set by AuthMiddleware.
const (
	currentUserKey = "current_user"
	tokenClaimsKey = "token_claims"
)

// AuthMiddleware verifies the bearer token and attaches the freshly loaded user.
type AuthMiddleware struct {
	authService *service.AuthService
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Handle returns a Gin middleware function that enforces authentication.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			utils.AbortWithAppError(c, utils.Unauthorized(utils.CodeInvalidToken, "Invalid authorization header"))
			return
		}

		claims, err := m.authService.VerifyToken(token)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}

		// Authorization always uses the stored record, never the token snapshot.
		user, err := m.authService.LoadCurrentUser(c.Request.Context(), claims)
		if err != nil {
			utils.AbortWithError(c, err)
			return
		}

		c.Set(tokenClaimsKey, claims)
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header. An empty
// header yields ("", true) so that verification reports NO_TOKEN.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", true
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// TokenClaims returns the verified token claims, or nil.
func TokenClaims(c *gin.Context) *utils.Claims {
	v, ok := c.Get(tokenClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}

// Actor returns the service actor for the authenticated user.
func Actor(c *gin.Context) service.Actor {
	u := CurrentUser(c)
	if u == nil {
		return service.Actor{IPAddress: c.ClientIP()}
	}
	return service.ActorFromUser(u, c.ClientIP())
}
