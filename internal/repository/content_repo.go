package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/cms_api/internal/models"
)

const contentColumns = `collection, id, data, created_by, updated_by, created_at, updated_at`

// ContentRepository stores schemaless content documents keyed by (collection, id).
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func scanContent(row rowScanner) (*models.ContentItem, error) {
	var (
		item models.ContentItem
		data []byte
	)
	if err := row.Scan(&item.Collection, &item.ID, &data, &item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	if err := json.Unmarshal(data, &item.Data); err != nil {
		return nil, fmt.Errorf("decode content %s/%s: %w", item.Collection, item.ID, err)
	}
	return &item, nil
}

// List returns one page of a collection, newest first, and the collection size.
func (r *ContentRepository) List(ctx context.Context, collection models.ContentCollection, limit, offset int) ([]*models.ContentItem, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM content_items WHERE collection = $1`, collection); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT `+contentColumns+` FROM content_items WHERE collection = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		collection, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*models.ContentItem{}
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Get returns one document.
func (r *ContentRepository) Get(ctx context.Context, collection models.ContentCollection, id string) (*models.ContentItem, error) {
	row := r.db.QueryRowxContext(ctx,
		`SELECT `+contentColumns+` FROM content_items WHERE collection = $1 AND id = $2`, collection, id)
	return scanContent(row)
}

// Create inserts a document.
func (r *ContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	data, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO content_items (collection, id, data, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING created_at, updated_at`,
		item.Collection, item.ID, data, item.CreatedBy,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	return translate(err)
}

// Update replaces a document's data.
func (r *ContentRepository) Update(ctx context.Context, item *models.ContentItem) error {
	data, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	err = r.db.QueryRowxContext(ctx,
		`UPDATE content_items SET data = $1, updated_by = $2, updated_at = NOW()
		WHERE collection = $3 AND id = $4
		RETURNING updated_at`,
		data, item.UpdatedBy, item.Collection, item.ID,
	).Scan(&item.UpdatedAt)
	return translate(err)
}

// Delete removes a document.
func (r *ContentRepository) Delete(ctx context.Context, collection models.ContentCollection, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_items WHERE collection = $1 AND id = $2`, collection, id)
	return expectOne(res, err)
}
