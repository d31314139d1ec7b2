package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a client-visible failure carrying an HTTP status, a stable
// machine-readable code and optional context merged into the response body.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// With returns a copy of e with an extra context field.
func (e *AppError) With(key string, value any) *AppError {
	c := *e
	c.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	c.Details[key] = value
	return &c
}

// NewAppError builds an AppError.
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// BadRequest builds a 400 AppError.
func BadRequest(code, message string) *AppError {
	return NewAppError(http.StatusBadRequest, code, message)
}

// Unauthorized builds a 401 AppError.
func Unauthorized(code, message string) *AppError {
	return NewAppError(http.StatusUnauthorized, code, message)
}

// Forbidden builds a 403 AppError.
func Forbidden(code, message string) *AppError {
	return NewAppError(http.StatusForbidden, code, message)
}

// NotFound builds a 404 AppError.
func NotFound(code, message string) *AppError {
	return NewAppError(http.StatusNotFound, code, message)
}

// Conflict builds a 409 AppError.
func Conflict(code, message string) *AppError {
	return NewAppError(http.StatusConflict, code, message)
}

// AsAppError unwraps err into an *AppError if it is one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Error codes shared by services, middleware and handlers.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInternal             = "INTERNAL_ERROR"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountDeactivated   = "ACCOUNT_DEACTIVATED"
	CodeNoToken              = "NO_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeNotAuthenticated     = "NOT_AUTHENTICATED"
	CodeInsufficientPerms    = "INSUFFICIENT_PERMISSIONS"
	CodeSuperAdminRequired   = "SUPER_ADMIN_REQUIRED"
	CodeNoAdminPanelAccess   = "NO_ADMIN_PANEL_ACCESS"
	CodeCurrentPwdRequired   = "CURRENT_PASSWORD_REQUIRED"
	CodeInvalidCurrentPwd    = "INVALID_CURRENT_PASSWORD"
	CodeWeakPassword         = "WEAK_PASSWORD"
	CodeSamePassword         = "SAME_PASSWORD"
	CodeInvalidUsername      = "INVALID_USERNAME"
	CodeUsernameExists       = "USERNAME_EXISTS"
	CodeInvalidEmail         = "INVALID_EMAIL"
	CodeEmailExists          = "EMAIL_EXISTS"
	CodeInvalidRole          = "INVALID_ROLE"
	CodeInvalidPermissions   = "INVALID_PERMISSIONS"
	CodeCannotDeleteSelf     = "CANNOT_DELETE_SELF"
	CodeCannotDeactivateSelf = "CANNOT_DEACTIVATE_SELF"
	CodeInvalidRoleID        = "INVALID_ROLE_ID"
	CodeReservedRoleID       = "RESERVED_ROLE_ID"
	CodeRoleExists           = "ROLE_EXISTS"
	CodeRoleNotFound         = "ROLE_NOT_FOUND"
	CodeRoleInUse            = "ROLE_IN_USE"
	CodeSystemRoleProtected  = "SYSTEM_ROLE_PROTECTED"
	CodePermissionsRequired  = "PERMISSIONS_REQUIRED"
	CodeRequiredPermsMissing = "REQUIRED_PERMISSIONS_MISSING"
	CodeInvalidDisplayName   = "INVALID_DISPLAY_NAME"
	CodeInvalidEventType     = "INVALID_EVENT_TYPE"
	CodeInvalidPageKey       = "INVALID_PAGE_KEY"
	CodeInvalidDate          = "INVALID_DATE"
	CodeUnknownCollection    = "UNKNOWN_COLLECTION"
	CodeContentNotFound      = "CONTENT_NOT_FOUND"
	CodeInvalidFile          = "INVALID_FILE"
	CodeStorageUnavailable   = "STORAGE_UNAVAILABLE"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeRouteNotFound        = "NOT_FOUND"
)
