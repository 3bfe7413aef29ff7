package types

import "time"

// MediaKind distinguishes the rated collections that share the Media shape.
type MediaKind string

const (
	MediaMovie  MediaKind = "movie"
	MediaTVShow MediaKind = "tvshow"
)

// Label returns the human-readable name used in messages.
func (k MediaKind) Label() string {
	switch k {
	case MediaMovie:
		return "movie"
	case MediaTVShow:
		return "TV show"
	default:
		return string(k)
	}
}

// Media is a rated movie or TV show record owned by a single user.
type Media struct {
	// ID is the unique identifier of the record within its collection.
	ID int `json:"id" db:"id"`

	// UserID identifies the owner.
	UserID int `json:"user_id" db:"user_id"`

	// Title is the movie or show title.
	Title string `json:"title" db:"title"`

	// Year is the 4-digit release year.
	Year int `json:"year" db:"year"`

	// Rating is the owner's score from 1 to 5.
	Rating int `json:"rating" db:"rating"`

	// Notes is free-form text.
	Notes string `json:"notes" db:"notes"`

	// IsPublic controls whether the record appears on public listings.
	IsPublic bool `json:"is_public" db:"is_public"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PublicMedia is the view of a record shown on public listings.
type PublicMedia struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Year      int       `json:"year"`
	Rating    int       `json:"rating"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the public view of m.
func (m Media) Public() PublicMedia {
	return PublicMedia{
		ID:        m.ID,
		Title:     m.Title,
		Year:      m.Year,
		Rating:    m.Rating,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
	}
}
