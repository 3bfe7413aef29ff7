package types

import (
	"time"

	"github.com/lib/pq"
)

// Blog is a text post owned by a single user.
type Blog struct {
	// ID is the unique identifier of the blog.
	ID int `json:"id" db:"id"`

	// UserID identifies the owner.
	UserID int `json:"user_id" db:"user_id"`

	// Title is the post title.
	Title string `json:"title" db:"title"`

	// Content is the post body.
	Content string `json:"content" db:"content"`

	// Tags are free-form labels used for filtering.
	Tags pq.StringArray `json:"tags" db:"tags"`

	// IsPublic controls whether the post appears on public listings.
	IsPublic bool `json:"is_public" db:"is_public"`

	// CreatedAt is the timestamp at which the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PublicBlog is the view of a blog shown on public listings.
type PublicBlog struct {
	ID        int            `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Tags      pq.StringArray `json:"tags"`
	CreatedAt time.Time      `json:"created_at"`
}

// Public returns the public view of b.
func (b Blog) Public() PublicBlog {
	return PublicBlog{
		ID:        b.ID,
		Title:     b.Title,
		Content:   b.Content,
		Tags:      b.Tags,
		CreatedAt: b.CreatedAt,
	}
}
