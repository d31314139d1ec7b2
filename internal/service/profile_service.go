package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/repository"
	"github.com/GTDGit/cms_api/internal/utils"
)

// MaxProfilePictureSize is the upload limit for profile pictures.
const MaxProfilePictureSize = 5 << 20

var pictureExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UpdateProfileRequest is the body of PATCH /profile.
type UpdateProfileRequest struct {
	FullName *string `json:"fullName"`
	Phone    *string `json:"phone"`
}

// ProfileService lets any authenticated user manage their own profile.
type ProfileService struct {
	users   UserStore
	storage ObjectStore
	audit   *AuditService
}

// NewProfileService constructs a ProfileService. storage may be nil, in which
// case picture operations report STORAGE_UNAVAILABLE.
func NewProfileService(users UserStore, storage ObjectStore, audit *AuditService) *ProfileService {
	return &ProfileService{users: users, storage: storage, audit: audit}
}

// GetProfile returns the actor's own record.
func (s *ProfileService) GetProfile(ctx context.Context, actor Actor) (*models.User, error) {
	return s.load(ctx, actor.Username)
}

// UpdateProfile changes the self-editable fields.
func (s *ProfileService) UpdateProfile(ctx context.Context, actor Actor, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.load(ctx, actor.Username)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name != user.FullName {
			changes["fullName"] = diff(user.FullName, name)
			user.FullName = name
		}
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != user.Phone {
			changes["phone"] = diff(user.Phone, phone)
			user.Phone = phone
		}
	}
	if len(changes) == 0 {
		return user, nil
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventUserUpdated,
		PerformedBy: actor.Username,
		TargetUser:  actor.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details:     map[string]any{"source": "profile", "changes": changes},
	})
	return user, nil
}

// UploadPicture stores a new profile picture and replaces the old one.
func (s *ProfileService) UploadPicture(ctx context.Context, actor Actor, data []byte) (*models.User, error) {
	if s.storage == nil {
		return nil, errStorageUnavailable
	}
	if len(data) == 0 {
		return nil, utils.BadRequest(utils.CodeInvalidFile, "File is empty")
	}
	if len(data) > MaxProfilePictureSize {
		return nil, utils.BadRequest(utils.CodeInvalidFile, "File must be 5MB or smaller").With("maxBytes", MaxProfilePictureSize)
	}
	contentType := http.DetectContentType(data)
	ext, ok := pictureExtensions[contentType]
	if !ok {
		return nil, utils.BadRequest(utils.CodeInvalidFile, "Only JPEG, PNG and WebP images are allowed").With("contentType", contentType)
	}

	user, err := s.load(ctx, actor.Username)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("profiles/%s/%s.%s", user.Username, uuid.NewString(), ext)
	url, err := s.storage.Put(ctx, key, contentType, data)
	if err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to upload profile picture")
		return nil, errStorageUnavailable
	}

	previous := user.ProfilePicture
	user.ProfilePicture = url
	if err := s.save(ctx, user); err != nil {
		s.deleteObject(ctx, url)
		return nil, err
	}
	s.deleteObject(ctx, previous)

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventUserUpdated,
		PerformedBy: actor.Username,
		TargetUser:  actor.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details:     map[string]any{"source": "profile", "changes": map[string]any{"profilePicture": diff(previous, url)}},
	})
	return user, nil
}

// RemovePicture clears the profile picture.
func (s *ProfileService) RemovePicture(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.load(ctx, actor.Username)
	if err != nil {
		return nil, err
	}
	if user.ProfilePicture == "" {
		return user, nil
	}

	previous := user.ProfilePicture
	user.ProfilePicture = ""
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.deleteObject(ctx, previous)

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventUserUpdated,
		PerformedBy: actor.Username,
		TargetUser:  actor.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details:     map[string]any{"source": "profile", "changes": map[string]any{"profilePicture": diff(previous, "")}},
	})
	return user, nil
}

// deleteObject removes a stored picture. Failures only leave an orphaned object.
func (s *ProfileService) deleteObject(ctx context.Context, url string) {
	if s.storage == nil || url == "" {
		return
	}
	key, ok := s.storage.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to delete old profile picture")
	}
}

func (s *ProfileService) load(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return user, nil
}

func (s *ProfileService) save(ctx context.Context, user *models.User) error {
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update profile %s: %w", user.Username, err)
	}
	return nil
}
