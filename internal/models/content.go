package models

import "time"

// ContentCollection names a content table managed through the admin panel.
type ContentCollection string

const (
	CollectionBlogs        ContentCollection = "blogs"
	CollectionProjects     ContentCollection = "projects"
	CollectionTestimonials ContentCollection = "testimonials"
	CollectionTeam         ContentCollection = "team"
	CollectionWhitepapers  ContentCollection = "whitepapers"
	CollectionNewsletter   ContentCollection = "newsletter"
	CollectionRequests     ContentCollection = "requests"
	CollectionAnalytics    ContentCollection = "analytics"
)

var collectionPermissions = map[ContentCollection]Permission{
	CollectionBlogs:        PermBlogs,
	CollectionProjects:     PermProjects,
	CollectionTestimonials: PermTestimonials,
	CollectionTeam:         PermTeam,
	CollectionWhitepapers:  PermWhitepapers,
	CollectionNewsletter:   PermNewsletter,
	CollectionRequests:     PermRequests,
	CollectionAnalytics:    PermAnalytics,
}

// Permission returns the permission guarding the collection and whether the
// collection is known.
func (c ContentCollection) Permission() (Permission, bool) {
	p, ok := collectionPermissions[c]
	return p, ok
}

// ContentItem is one schemaless document in a collection.
type ContentItem struct {
	Collection ContentCollection `db:"collection" json:"collection"`
	ID         string            `db:"id" json:"id"`
	Data       map[string]any    `db:"-" json:"data"`
	CreatedBy  string            `db:"created_by" json:"createdBy"`
	UpdatedBy  string            `db:"updated_by" json:"updatedBy"`
	CreatedAt  time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updatedAt"`
}
