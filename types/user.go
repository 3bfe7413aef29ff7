package types

import "time"

// User represents an account in the system.
// It contains identity, profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// It is stored lowercased.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, stored lowercased and unique.
	Email string `json:"email" db:"email"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Bio is an optional free-form profile text.
	Bio string `json:"bio" db:"bio"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PublicProfile is the subset of a user shown to anyone, plus counts of
// the user's public items.
type PublicProfile struct {
	ID        int          `json:"id" db:"id"`
	Username  string       `json:"username" db:"username"`
	Name      string       `json:"name" db:"name"`
	Bio       string       `json:"bio" db:"bio"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	Stats     ProfileStats `json:"stats"`
}

// ProfileStats counts public items per collection.
type ProfileStats struct {
	Blogs   int `json:"blogs"`
	Movies  int `json:"movies"`
	TVShows int `json:"tvShows"`
}

// Public returns the profile view of u without stats.
func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
}
