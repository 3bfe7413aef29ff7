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

const msgBlogNotFound = "blog not found"

// BlogRepository defines persistence operations for blogs. Every method is
// scoped by owner.
type BlogRepository interface {
	List(ctx context.Context, q filter.Query) ([]types.Blog, error)
	Get(ctx context.Context, ownerID, id int) (types.Blog, error)
	Create(ctx context.Context, blog types.Blog) (types.Blog, error)
	Update(ctx context.Context, blog types.Blog) (types.Blog, error)
	Delete(ctx context.Context, ownerID, id int) error
	CountPublic(ctx context.Context, ownerID int) (int, error)
}

// BlogInput is the writable field set of a blog. IsPublic defaults to true
// on create and to false on update, which replaces every field.
type BlogInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	IsPublic *bool    `json:"is_public"`
}

// BlogService encapsulates blog use-cases.
type BlogService struct {
	repo   BlogRepository
	events EventPublisher
}

func NewBlogService(repo BlogRepository, events EventPublisher) *BlogService {
	return &BlogService{repo: repo, events: eventsOrNop(events)}
}

// List returns the caller's blogs matching the filter parameters.
func (s *BlogService) List(ctx context.Context, claim auth.Claim, params url.Values) ([]types.Blog, error) {
	plan, err := filter.BuildBlogPlan(params)
	if err != nil {
		return nil, err
	}
	blogs, err := s.repo.List(ctx, filter.ForOwner(claim.UserID, plan))
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return blogs, nil
}

// ListPublic returns the public blogs of ownerID matching the parameters.
func (s *BlogService) ListPublic(ctx context.Context, ownerID int, params url.Values) ([]types.PublicBlog, error) {
	plan, err := filter.BuildBlogPlan(params)
	if err != nil {
		return nil, err
	}
	blogs, err := s.repo.List(ctx, filter.PublicFor(ownerID, plan))
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	out := make([]types.PublicBlog, 0, len(blogs))
	for _, b := range blogs {
		out = append(out, b.Public())
	}
	return out, nil
}

func (s *BlogService) Get(ctx context.Context, claim auth.Claim, id int) (types.Blog, error) {
	if id < 1 {
		return types.Blog{}, apperr.NotFound(msgBlogNotFound)
	}
	blog, err := s.repo.Get(ctx, claim.UserID, id)
	if err != nil {
		return types.Blog{}, classify(err, msgBlogNotFound)
	}
	if !auth.Owns(claim, blog.UserID) {
		return types.Blog{}, apperr.New(apperr.KindAuthorization, msgBlogNotFound)
	}
	return blog, nil
}

func (s *BlogService) Create(ctx context.Context, claim auth.Claim, in BlogInput) (types.Blog, error) {
	blog, err := in.toBlog(true)
	if err != nil {
		return types.Blog{}, err
	}
	blog.UserID = claim.UserID

	created, err := s.repo.Create(ctx, blog)
	if err != nil {
		return types.Blog{}, classify(err, msgBlogNotFound)
	}
	s.publish(ctx, actionCreated, created)
	return created, nil
}

// Update replaces the caller's blog id. Someone else's blog is NotFound.
func (s *BlogService) Update(ctx context.Context, claim auth.Claim, id int, in BlogInput) (types.Blog, error) {
	if id < 1 {
		return types.Blog{}, apperr.NotFound(msgBlogNotFound)
	}
	blog, err := in.toBlog(false)
	if err != nil {
		return types.Blog{}, err
	}
	blog.ID = id
	blog.UserID = claim.UserID

	updated, err := s.repo.Update(ctx, blog)
	if err != nil {
		return types.Blog{}, classify(err, msgBlogNotFound)
	}
	s.publish(ctx, actionUpdated, updated)
	return updated, nil
}

func (s *BlogService) Delete(ctx context.Context, claim auth.Claim, id int) error {
	if id < 1 {
		return apperr.NotFound(msgBlogNotFound)
	}
	if err := s.repo.Delete(ctx, claim.UserID, id); err != nil {
		return classify(err, msgBlogNotFound)
	}
	s.events.Publish(ctx, Event{Type: "blog." + actionDeleted, UserID: claim.UserID, ItemID: id})
	return nil
}

// CountPublic counts the public blogs of ownerID.
func (s *BlogService) CountPublic(ctx context.Context, ownerID int) (int, error) {
	return s.repo.CountPublic(ctx, ownerID)
}

func (s *BlogService) publish(ctx context.Context, action string, blog types.Blog) {
	s.events.Publish(ctx, Event{
		Type:   "blog." + action,
		UserID: blog.UserID,
		ItemID: blog.ID,
		Title:  blog.Title,
	})
}

func (in BlogInput) toBlog(defaultPublic bool) (types.Blog, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return types.Blog{}, apperr.Validation(msgTitleRequired)
	}
	if tooLong(title, maxTitleLen) {
		return types.Blog{}, apperr.Validation(msgTitleTooLong)
	}
	isPublic := defaultPublic
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	return types.Blog{
		Title:    title,
		Content:  strings.TrimSpace(in.Content),
		Tags:     normalizeTags(in.Tags),
		IsPublic: isPublic,
	}, nil
}

// normalizeTags trims tags and drops empties. The result is never nil.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
