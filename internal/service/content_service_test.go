package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/testutil"
)

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection("blogs")
	require.NoError(t, err)
	assert.Equal(t, models.CollectionBlogs, c)

	_, err = ParseCollection("secrets")
	assertAppError(t, err, 404, "UNKNOWN_COLLECTION")
}

func TestContentService_CRUD(t *testing.T) {
	svc := NewContentService(testutil.NewContentStore())
	ctx := context.Background()
	actor := Actor{Username: "writer"}

	_, err := svc.Create(ctx, actor, models.CollectionBlogs, nil)
	assertAppError(t, err, 400, "INVALID_REQUEST")

	item, err := svc.Create(ctx, actor, models.CollectionBlogs, map[string]any{"title": "Hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "writer", item.CreatedBy)

	got, err := svc.Get(ctx, models.CollectionBlogs, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Data["title"])

	_, err = svc.Get(ctx, models.CollectionTeam, item.ID)
	assertAppError(t, err, 404, "CONTENT_NOT_FOUND")

	updated, err := svc.Update(ctx, Actor{Username: "editor"}, models.CollectionBlogs, item.ID, map[string]any{"title": "Bye"})
	require.NoError(t, err)
	assert.Equal(t, "editor", updated.UpdatedBy)
	assert.Equal(t, "writer", updated.CreatedBy)

	page, err := svc.List(ctx, models.CollectionBlogs, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)

	require.NoError(t, svc.Delete(ctx, models.CollectionBlogs, item.ID))
	err = svc.Delete(ctx, models.CollectionBlogs, item.ID)
	assertAppError(t, err, 404, "CONTENT_NOT_FOUND")
}
