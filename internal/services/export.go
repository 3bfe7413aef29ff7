package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/contentdeck/apiserver/internal/apperr"
	"github.com/contentdeck/apiserver/internal/auth"
	"github.com/contentdeck/apiserver/internal/filter"
	"github.com/contentdeck/apiserver/internal/storage"
	"github.com/contentdeck/apiserver/types"
)

const (
	msgExportNotFound = "export not found"
	exportContentType = "application/json"
)

// ObjectStore is the part of storage.Storage exports need.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ExportService snapshots a user's library into object storage.
type ExportService struct {
	users   UserRepository
	blogs   BlogRepository
	movies  MediaRepository
	tvShows MediaRepository
	objects ObjectStore
	now     func() time.Time
}

func NewExportService(users UserRepository, blogs BlogRepository, movies, tvShows MediaRepository, objects ObjectStore) *ExportService {
	return &ExportService{
		users:   users,
		blogs:   blogs,
		movies:  movies,
		tvShows: tvShows,
		objects: objects,
		now:     time.Now,
	}
}

// Create writes every blog, movie and TV show of the caller, public or not,
// as one JSON document.
func (s *ExportService) Create(ctx context.Context, claim auth.Claim) (types.ExportReceipt, error) {
	user, err := s.users.GetByID(ctx, claim.UserID)
	if err != nil {
		return types.ExportReceipt{}, classify(err, msgUserNotFound)
	}

	blogPlan, _ := filter.BuildBlogPlan(nil)
	mediaPlan, _ := filter.BuildMediaPlan(nil)

	blogs, err := s.blogs.List(ctx, filter.ForOwner(user.ID, blogPlan))
	if err != nil {
		return types.ExportReceipt{}, apperr.Dependency(err)
	}
	movies, err := s.movies.List(ctx, filter.ForOwner(user.ID, mediaPlan))
	if err != nil {
		return types.ExportReceipt{}, apperr.Dependency(err)
	}
	tvShows, err := s.tvShows.List(ctx, filter.ForOwner(user.ID, mediaPlan))
	if err != nil {
		return types.ExportReceipt{}, apperr.Dependency(err)
	}

	now := s.now().UTC()
	data, err := json.Marshal(types.LibraryExport{
		User:       user,
		ExportedAt: now,
		Blogs:      blogs,
		Movies:     movies,
		TVShows:    tvShows,
	})
	if err != nil {
		return types.ExportReceipt{}, apperr.Dependency(err)
	}

	id := uuid.NewString()
	key := exportKey(user.ID, id)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return types.ExportReceipt{}, apperr.Dependency(fmt.Errorf("store export: %w", err))
	}

	return types.ExportReceipt{
		ID:        id,
		Key:       key,
		Size:      int64(len(data)),
		CreatedAt: now,
	}, nil
}

// Open streams back one of the caller's exports. Keys are derived from the
// caller's id, so another user's export is NotFound.
func (s *ExportService) Open(ctx context.Context, claim auth.Claim, exportID string) (io.ReadCloser, error) {
	id, err := uuid.Parse(exportID)
	if err != nil {
		return nil, apperr.NotFound(msgExportNotFound)
	}
	rc, err := s.objects.Get(ctx, exportKey(claim.UserID, id.String()))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, msgExportNotFound, err)
		}
		return nil, apperr.Dependency(err)
	}
	return rc, nil
}

func exportKey(userID int, id string) string {
	return fmt.Sprintf("exports/%d/%s.json", userID, id)
}
