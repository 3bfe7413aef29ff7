package testutil

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/contentdeck/apiserver/internal/filter"
	"github.com/contentdeck/apiserver/internal/store"
	"github.com/contentdeck/apiserver/types"
)

// BlogRepo is an in-memory blog repository applying filter plans the way
// the SQL builder does.
type BlogRepo struct {
	mu     sync.Mutex
	clock  *StubClock
	nextID int
	blogs  []types.Blog
	// Err, when set, is returned by every call.
	Err error
}

func NewBlogRepo(clock *StubClock) *BlogRepo {
	return &BlogRepo{clock: clock}
}

func (r *BlogRepo) List(_ context.Context, q filter.Query) ([]types.Blog, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	plan := q.Plan()
	out := []types.Blog{}
	for _, b := range r.blogs {
		if b.UserID != q.Owner() || (q.PublicOnly() && !b.IsPublic) {
			continue
		}
		if plan.Search != "" && !containsFold(b.Title, plan.Search) && !containsFold(b.Content, plan.Search) {
			continue
		}
		if plan.Tag != "" && !slices.Contains(b.Tags, plan.Tag) {
			continue
		}
		out = append(out, b)
	}
	sortItems(out, plan.Sort, func(b types.Blog) item {
		return item{title: b.Title, createdAt: b.CreatedAt}
	})
	return out, nil
}

func (r *BlogRepo) Get(_ context.Context, ownerID, id int) (types.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.Blog{}, r.Err
	}
	i := r.index(ownerID, id)
	if i < 0 {
		return types.Blog{}, store.ErrNotFound
	}
	return r.blogs[i], nil
}

func (r *BlogRepo) Create(_ context.Context, blog types.Blog) (types.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.Blog{}, r.Err
	}
	r.nextID++
	blog.ID = r.nextID
	blog.CreatedAt = r.clock.Tick()
	blog.UpdatedAt = blog.CreatedAt
	if blog.Tags == nil {
		blog.Tags = []string{}
	}
	r.blogs = append(r.blogs, blog)
	return blog, nil
}

func (r *BlogRepo) Update(_ context.Context, blog types.Blog) (types.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.Blog{}, r.Err
	}
	i := r.index(blog.UserID, blog.ID)
	if i < 0 {
		return types.Blog{}, store.ErrNotFound
	}
	blog.CreatedAt = r.blogs[i].CreatedAt
	blog.UpdatedAt = r.clock.Tick()
	if blog.Tags == nil {
		blog.Tags = []string{}
	}
	r.blogs[i] = blog
	return blog, nil
}

func (r *BlogRepo) Delete(_ context.Context, ownerID, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	i := r.index(ownerID, id)
	if i < 0 {
		return store.ErrNotFound
	}
	r.blogs = slices.Delete(r.blogs, i, i+1)
	return nil
}

func (r *BlogRepo) CountPublic(_ context.Context, ownerID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	n := 0
	for _, b := range r.blogs {
		if b.UserID == ownerID && b.IsPublic {
			n++
		}
	}
	return n, nil
}

func (r *BlogRepo) index(ownerID, id int) int {
	return slices.IndexFunc(r.blogs, func(b types.Blog) bool {
		return b.ID == id && b.UserID == ownerID
	})
}

// MediaRepo is an in-memory movie or TV show repository.
type MediaRepo struct {
	mu     sync.Mutex
	kind   types.MediaKind
	clock  *StubClock
	nextID int
	items  []types.Media
	// Err, when set, is returned by every call.
	Err error
}

func NewMediaRepo(kind types.MediaKind, clock *StubClock) *MediaRepo {
	return &MediaRepo{kind: kind, clock: clock}
}

func (r *MediaRepo) Kind() types.MediaKind {
	return r.kind
}

func (r *MediaRepo) List(_ context.Context, q filter.Query) ([]types.Media, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	plan := q.Plan()
	out := []types.Media{}
	for _, m := range r.items {
		if m.UserID != q.Owner() || (q.PublicOnly() && !m.IsPublic) {
			continue
		}
		if plan.Search != "" && !containsFold(m.Title, plan.Search) && !containsFold(m.Notes, plan.Search) {
			continue
		}
		if plan.HasMinRating() && m.Rating < plan.MinRating {
			continue
		}
		if plan.Year != 0 && m.Year != plan.Year {
			continue
		}
		out = append(out, m)
	}
	sortItems(out, plan.Sort, func(m types.Media) item {
		return item{title: m.Title, rating: m.Rating, year: m.Year, createdAt: m.CreatedAt}
	})
	return out, nil
}

func (r *MediaRepo) Get(_ context.Context, ownerID, id int) (types.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.Media{}, r.Err
	}
	i := r.index(ownerID, id)
	if i < 0 {
		return types.Media{}, store.ErrNotFound
	}
	return r.items[i], nil
}

func (r *MediaRepo) Create(_ context.Context, m types.Media) (types.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.Media{}, r.Err
	}
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = r.clock.Tick()
	m.UpdatedAt = m.CreatedAt
	r.items = append(r.items, m)
	return m, nil
}

func (r *MediaRepo) Update(_ context.Context, m types.Media) (types.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.Media{}, r.Err
	}
	i := r.index(m.UserID, m.ID)
	if i < 0 {
		return types.Media{}, store.ErrNotFound
	}
	m.CreatedAt = r.items[i].CreatedAt
	m.UpdatedAt = r.clock.Tick()
	r.items[i] = m
	return m, nil
}

func (r *MediaRepo) Delete(_ context.Context, ownerID, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	i := r.index(ownerID, id)
	if i < 0 {
		return store.ErrNotFound
	}
	r.items = slices.Delete(r.items, i, i+1)
	return nil
}

func (r *MediaRepo) CountPublic(_ context.Context, ownerID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	n := 0
	for _, m := range r.items {
		if m.UserID == ownerID && m.IsPublic {
			n++
		}
	}
	return n, nil
}

func (r *MediaRepo) index(ownerID, id int) int {
	return slices.IndexFunc(r.items, func(m types.Media) bool {
		return m.ID == id && m.UserID == ownerID
	})
}

type item struct {
	title     string
	rating    int
	year      int
	createdAt time.Time
}

// sortItems orders by the plan's sort key. Year has no secondary key, so
// the stable sort keeps insertion order for ties.
func sortItems[T any](items []T, key filter.Sort, view func(T) item) {
	less := func(a, b item) bool { return a.createdAt.After(b.createdAt) }
	switch key {
	case filter.SortOldest:
		less = func(a, b item) bool { return a.createdAt.Before(b.createdAt) }
	case filter.SortTitle:
		less = func(a, b item) bool { return a.title < b.title }
	case filter.SortRating:
		less = func(a, b item) bool {
			if a.rating != b.rating {
				return a.rating > b.rating
			}
			return a.createdAt.After(b.createdAt)
		}
	case filter.SortYear:
		less = func(a, b item) bool { return a.year > b.year }
	}
	sort.SliceStable(items, func(i, j int) bool {
		return less(view(items[i]), view(items[j]))
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
