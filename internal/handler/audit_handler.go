package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

const dateOnly = "2006-01-02"

// AuditHandler serves /audit-logs.
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// ListAuditLogs handles GET /audit-logs?startDate=&endDate=&eventType=&performedBy=&targetUser=&limit=&pageKey=
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	q := service.AuditQuery{
		EventType:   c.Query("eventType"),
		PerformedBy: c.Query("performedBy"),
		TargetUser:  c.Query("targetUser"),
		PageKey:     c.Query("pageKey"),
	}

	var err error
	if q.StartDate, err = parseDate(c.Query("startDate"), false); err != nil {
		utils.AbortWithError(c, utils.BadRequest(utils.CodeInvalidDate, "Invalid startDate").With("field", "startDate"))
		return
	}
	if q.EndDate, err = parseDate(c.Query("endDate"), true); err != nil {
		utils.AbortWithError(c, utils.BadRequest(utils.CodeInvalidDate, "Invalid endDate").With("field", "endDate"))
		return
	}
	if raw := c.Query("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil || q.Limit < 1 {
			utils.Error(c, http.StatusBadRequest, utils.CodeInvalidRequest, "limit must be a positive integer")
			return
		}
	}

	page, err := h.auditService.Query(c.Request.Context(), q)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	data := gin.H{"entries": page.Entries, "count": len(page.Entries)}
	if page.NextPageKey != "" {
		data["nextPageKey"] = page.NextPageKey
	}
	utils.Success(c, http.StatusOK, "Audit logs retrieved", data)
}

// EventTypes handles GET /audit-logs/event-types
func (h *AuditHandler) EventTypes(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Event types retrieved", gin.H{"eventTypes": h.auditService.EventTypes()})
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
