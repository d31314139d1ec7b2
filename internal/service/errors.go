package service

import (
	"errors"

	"github.com/GTDGit/cms_api/internal/utils"
)

var errInvalidCursor = errors.New("invalid cursor")

// Errors returned by more than one flow.
var (
	ErrSuperAdminRequired = utils.Forbidden(utils.CodeSuperAdminRequired, "Super admin access required")
	ErrUserNotFound       = utils.NotFound(utils.CodeUserNotFound, "User not found")
	ErrRoleNotFound       = utils.NotFound(utils.CodeRoleNotFound, "Role not found")
)

var errStorageUnavailable = utils.NewAppError(503, utils.CodeStorageUnavailable, "File storage is unavailable")
