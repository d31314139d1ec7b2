package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/middleware"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// ProfileHandler serves /profile for the authenticated user.
type ProfileHandler struct {
	profileService *service.ProfileService
	authService    *service.AuthService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService, authService *service.AuthService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, authService: authService}
}

// GetProfile handles GET /profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, err := h.profileService.GetProfile(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Profile retrieved", user)
}

// UpdateProfile handles PATCH /profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.profileService.UpdateProfile(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Profile updated", user)
}

// ChangePassword handles POST /profile/change-password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.ChangePassword(c.Request.Context(), middleware.Actor(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Password changed successfully", result)
}

// UploadPicture handles POST /profile/picture (multipart field "file")
func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, utils.CodeInvalidFile, "A file field is required")
		return
	}
	if fh.Size > service.MaxProfilePictureSize {
		utils.AbortWithError(c, utils.BadRequest(utils.CodeInvalidFile, "File must be 5MB or smaller").
			With("maxBytes", service.MaxProfilePictureSize))
		return
	}

	f, err := fh.Open()
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxProfilePictureSize+1))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	user, err := h.profileService.UploadPicture(c.Request.Context(), middleware.Actor(c), data)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Profile picture updated", user)
}

// DeletePicture handles DELETE /profile/picture
func (h *ProfileHandler) DeletePicture(c *gin.Context) {
	user, err := h.profileService.RemovePicture(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Profile picture removed", user)
}
