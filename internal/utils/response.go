package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Response defines the standard success envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    Meta   `json:"meta"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// reservedErrorKeys cannot be overwritten by AppError details.
var reservedErrorKeys = map[string]bool{
	"success": true,
	"message": true,
	"error":   true,
	"code":    true,
	"meta":    true,
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    newMeta(c),
	})
}

// Error writes an error body of the form
// {success:false, message, error, code, ...details, meta}.
func Error(c *gin.Context, status int, errCode, message string) {
	ErrorWithDetails(c, status, errCode, message, nil)
}

// ErrorWithDetails is Error with extra context fields merged at the top level.
func ErrorWithDetails(c *gin.Context, status int, errCode, message string, details map[string]any) {
	body := gin.H{}
	for k, v := range details {
		if !reservedErrorKeys[k] {
			body[k] = v
		}
	}
	body["success"] = false
	body["message"] = message
	body["error"] = message
	body["code"] = errCode
	body["meta"] = newMeta(c)
	c.JSON(status, body)
}

// AbortWithAppError writes e and stops the handler chain.
func AbortWithAppError(c *gin.Context, e *AppError) {
	ErrorWithDetails(c, e.Status, e.Code, e.Message, e.Details)
	c.Abort()
}

// AbortWithError writes err and stops the handler chain. AppErrors are
// rendered as-is; anything else is logged and answered with a generic 500.
func AbortWithError(c *gin.Context, err error) {
	if appErr, ok := AsAppError(err); ok {
		AbortWithAppError(c, appErr)
		return
	}
	log.Error().
		Err(err).
		Str("request_id", GetRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("Request failed")
	Error(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	c.Abort()
}

func newMeta(c *gin.Context) Meta {
	return Meta{
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// GetRequestID returns the request id set by the logging middleware or a fresh one.
func GetRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}
