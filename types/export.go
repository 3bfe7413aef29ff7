package types

import "time"

// LibraryExport is the document written to object storage by an export.
type LibraryExport struct {
	User       User      `json:"user"`
	ExportedAt time.Time `json:"exported_at"`
	Blogs      []Blog    `json:"blogs"`
	Movies     []Media   `json:"movies"`
	TVShows    []Media   `json:"tvshows"`
}

// ExportReceipt identifies a stored export.
type ExportReceipt struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
