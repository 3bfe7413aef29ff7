package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/contentdeck/apiserver/internal/apperr"
	"github.com/contentdeck/apiserver/internal/auth"
	"github.com/contentdeck/apiserver/internal/filter"
	"github.com/contentdeck/apiserver/types"
)

// MediaRepository defines persistence operations for one rated collection.
type MediaRepository interface {
	Kind() types.MediaKind
	List(ctx context.Context, q filter.Query) ([]types.Media, error)
	Get(ctx context.Context, ownerID, id int) (types.Media, error)
	Create(ctx context.Context, item types.Media) (types.Media, error)
	Update(ctx context.Context, item types.Media) (types.Media, error)
	Delete(ctx context.Context, ownerID, id int) error
	CountPublic(ctx context.Context, ownerID int) (int, error)
}

// MediaInput is the writable field set of a movie or TV show.
type MediaInput struct {
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Rating   int    `json:"rating"`
	Notes    string `json:"notes"`
	IsPublic *bool  `json:"is_public"`
}

// MediaService encapsulates movie or TV show use-cases, depending on the
// repository it wraps.
type MediaService struct {
	repo     MediaRepository
	kind     types.MediaKind
	notFound string
	events   EventPublisher
}

func NewMediaService(repo MediaRepository, events EventPublisher) *MediaService {
	kind := repo.Kind()
	return &MediaService{
		repo:     repo,
		kind:     kind,
		notFound: kind.Label() + " not found",
		events:   eventsOrNop(events),
	}
}

// Kind reports which collection the service manages.
func (s *MediaService) Kind() types.MediaKind {
	return s.kind
}

func (s *MediaService) List(ctx context.Context, claim auth.Claim, params url.Values) ([]types.Media, error) {
	plan, err := filter.BuildMediaPlan(params)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, filter.ForOwner(claim.UserID, plan))
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return items, nil
}

func (s *MediaService) ListPublic(ctx context.Context, ownerID int, params url.Values) ([]types.PublicMedia, error) {
	plan, err := filter.BuildMediaPlan(params)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, filter.PublicFor(ownerID, plan))
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	out := make([]types.PublicMedia, 0, len(items))
	for _, m := range items {
		out = append(out, m.Public())
	}
	return out, nil
}

func (s *MediaService) Get(ctx context.Context, claim auth.Claim, id int) (types.Media, error) {
	if id < 1 {
		return types.Media{}, apperr.NotFound(s.notFound)
	}
	item, err := s.repo.Get(ctx, claim.UserID, id)
	if err != nil {
		return types.Media{}, classify(err, s.notFound)
	}
	if !auth.Owns(claim, item.UserID) {
		return types.Media{}, apperr.New(apperr.KindAuthorization, s.notFound)
	}
	return item, nil
}

func (s *MediaService) Create(ctx context.Context, claim auth.Claim, in MediaInput) (types.Media, error) {
	item, err := in.toMedia(true)
	if err != nil {
		return types.Media{}, err
	}
	item.UserID = claim.UserID

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return types.Media{}, classify(err, s.notFound)
	}
	s.publish(ctx, actionCreated, created)
	return created, nil
}

func (s *MediaService) Update(ctx context.Context, claim auth.Claim, id int, in MediaInput) (types.Media, error) {
	if id < 1 {
		return types.Media{}, apperr.NotFound(s.notFound)
	}
	item, err := in.toMedia(false)
	if err != nil {
		return types.Media{}, err
	}
	item.ID = id
	item.UserID = claim.UserID

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return types.Media{}, classify(err, s.notFound)
	}
	s.publish(ctx, actionUpdated, updated)
	return updated, nil
}

func (s *MediaService) Delete(ctx context.Context, claim auth.Claim, id int) error {
	if id < 1 {
		return apperr.NotFound(s.notFound)
	}
	if err := s.repo.Delete(ctx, claim.UserID, id); err != nil {
		return classify(err, s.notFound)
	}
	s.events.Publish(ctx, Event{Type: string(s.kind) + "." + actionDeleted, UserID: claim.UserID, ItemID: id})
	return nil
}

func (s *MediaService) CountPublic(ctx context.Context, ownerID int) (int, error) {
	return s.repo.CountPublic(ctx, ownerID)
}

func (s *MediaService) publish(ctx context.Context, action string, item types.Media) {
	s.events.Publish(ctx, Event{
		Type:   string(s.kind) + "." + action,
		UserID: item.UserID,
		ItemID: item.ID,
		Title:  item.Title,
	})
}

func (in MediaInput) toMedia(defaultPublic bool) (types.Media, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return types.Media{}, apperr.Validation(msgTitleRequired)
	}
	if tooLong(title, maxTitleLen) {
		return types.Media{}, apperr.Validation(msgTitleTooLong)
	}
	if in.Rating < filter.MinRating || in.Rating > filter.MaxRating {
		return types.Media{}, apperr.Validation(msgRatingRange)
	}
	if in.Year < filter.MinYear || in.Year > filter.MaxYear {
		return types.Media{}, apperr.Validation(msgYearRange)
	}
	isPublic := defaultPublic
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	return types.Media{
		Title:    title,
		Year:     in.Year,
		Rating:   in.Rating,
		Notes:    strings.TrimSpace(in.Notes),
		IsPublic: isPublic,
	}, nil
}
