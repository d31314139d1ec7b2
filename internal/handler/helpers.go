package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/utils"
)

// bindJSON decodes the request body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.Error(c, http.StatusBadRequest, utils.CodeInvalidRequest, "Invalid request body")
		c.Abort()
		return false
	}
	return true
}
