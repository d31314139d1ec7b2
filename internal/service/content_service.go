package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/repository"
	"github.com/GTDGit/cms_api/internal/utils"
)

const (
	defaultContentPageSize = 20
	maxContentPageSize     = 100
)

var errContentNotFound = utils.NotFound(utils.CodeContentNotFound, "Content not found")

// ContentPage is one page of a collection listing.
type ContentPage struct {
	Items []*models.ContentItem `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// ContentService manages the site content collections. Access control is
// applied by the HTTP layer.
type ContentService struct {
	store ContentStore
}

// NewContentService constructs a ContentService.
func NewContentService(store ContentStore) *ContentService {
	return &ContentService{store: store}
}

// ParseCollection validates a collection name from the URL.
func ParseCollection(name string) (models.ContentCollection, error) {
	c := models.ContentCollection(name)
	if _, ok := c.Permission(); !ok {
		return "", utils.NotFound(utils.CodeUnknownCollection, "Unknown collection").With("collection", name)
	}
	return c, nil
}

// List returns one page of collection, 1-indexed.
func (s *ContentService) List(ctx context.Context, collection models.ContentCollection, page, limit int) (*ContentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultContentPageSize
	}
	if limit > maxContentPageSize {
		limit = maxContentPageSize
	}

	items, total, err := s.store.List(ctx, collection, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return &ContentPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Get returns one document.
func (s *ContentService) Get(ctx context.Context, collection models.ContentCollection, id string) (*models.ContentItem, error) {
	item, err := s.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errContentNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return item, nil
}

// Create stores a new document under a generated id.
func (s *ContentService) Create(ctx context.Context, actor Actor, collection models.ContentCollection, data map[string]any) (*models.ContentItem, error) {
	if len(data) == 0 {
		return nil, utils.BadRequest(utils.CodeInvalidRequest, "Content body must be a non-empty object")
	}
	item := &models.ContentItem{
		Collection: collection,
		ID:         uuid.NewString(),
		Data:       data,
		CreatedBy:  actor.Username,
		UpdatedBy:  actor.Username,
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	return item, nil
}

// Update replaces a document's data.
func (s *ContentService) Update(ctx context.Context, actor Actor, collection models.ContentCollection, id string, data map[string]any) (*models.ContentItem, error) {
	if len(data) == 0 {
		return nil, utils.BadRequest(utils.CodeInvalidRequest, "Content body must be a non-empty object")
	}
	item, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	item.Data = data
	item.UpdatedBy = actor.Username
	if err := s.store.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errContentNotFound
		}
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return item, nil
}

// Delete removes a document.
func (s *ContentService) Delete(ctx context.Context, collection models.ContentCollection, id string) error {
	if err := s.store.Delete(ctx, collection, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errContentNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}
