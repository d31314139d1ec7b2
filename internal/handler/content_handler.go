package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/middleware"
	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// ContentHandler serves /content/:collection.
type ContentHandler struct {
	contentService *service.ContentService
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(contentService *service.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

func (h *ContentHandler) collection(c *gin.Context) (models.ContentCollection, bool) {
	coll, err := service.ParseCollection(c.Param("collection"))
	if err != nil {
		utils.AbortWithError(c, err)
		return "", false
	}
	return coll, true
}

// List handles GET /content/:collection?page=&limit=
func (h *ContentHandler) List(c *gin.Context) {
	coll, ok := h.collection(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.contentService.List(c.Request.Context(), coll, page, limit)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Content retrieved", result)
}

// Get handles GET /content/:collection/:id
func (h *ContentHandler) Get(c *gin.Context) {
	coll, ok := h.collection(c)
	if !ok {
		return
	}
	item, err := h.contentService.Get(c.Request.Context(), coll, c.Param("id"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Content retrieved", item)
}

// Create handles POST /content/:collection
func (h *ContentHandler) Create(c *gin.Context) {
	coll, ok := h.collection(c)
	if !ok {
		return
	}
	var data map[string]any
	if !bindJSON(c, &data) {
		return
	}
	item, err := h.contentService.Create(c.Request.Context(), middleware.Actor(c), coll, data)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Content created", item)
}

// Update handles PUT /content/:collection/:id
func (h *ContentHandler) Update(c *gin.Context) {
	coll, ok := h.collection(c)
	if !ok {
		return
	}
	var data map[string]any
	if !bindJSON(c, &data) {
		return
	}
	item, err := h.contentService.Update(c.Request.Context(), middleware.Actor(c), coll, c.Param("id"), data)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Content updated", item)
}

// Delete handles DELETE /content/:collection/:id
func (h *ContentHandler) Delete(c *gin.Context) {
	coll, ok := h.collection(c)
	if !ok {
		return
	}
	if err := h.contentService.Delete(c.Request.Context(), coll, c.Param("id")); err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Content deleted", nil)
}
