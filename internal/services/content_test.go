package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentdeck/apiserver/internal/apperr"
	"github.com/contentdeck/apiserver/internal/auth"
	"github.com/contentdeck/apiserver/internal/services"
	"github.com/contentdeck/apiserver/internal/store"
	"github.com/contentdeck/apiserver/types"
)

func boolPtr(b bool) *bool { return &b }

func blogTitles(blogs []types.Blog) []string {
	out := make([]string, 0, len(blogs))
	for _, b := range blogs {
		out = append(out, b.Title)
	}
	return out
}

func mediaTitles(items []types.Media) []string {
	out := make([]string, 0, len(items))
	for _, m := range items {
		out = append(out, m.Title)
	}
	return out
}

func TestBlogCreateDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	blog, err := f.blogSvc.Create(ctx, alice, services.BlogInput{
		Title:   "  First post ",
		Content: " hello ",
		Tags:    []string{" go ", "", "  ", "notes"},
	})
	require.NoError(t, err)
	assert.Equal(t, "First post", blog.Title)
	assert.Equal(t, "hello", blog.Content)
	assert.Equal(t, []string{"go", "notes"}, []string(blog.Tags))
	assert.True(t, blog.IsPublic, "is_public defaults to true on create")
	assert.Equal(t, alice.UserID, blog.UserID)

	_, err = f.blogSvc.Create(ctx, alice, services.BlogInput{Title: "   "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "title is required", apperr.Message(err))
}

func TestBlogUpdateReplacesAllFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	blog, err := f.blogSvc.Create(ctx, alice, services.BlogInput{Title: "draft", Content: "x", Tags: []string{"a"}})
	require.NoError(t, err)

	updated, err := f.blogSvc.Update(ctx, alice, blog.ID, services.BlogInput{Title: "final"})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Empty(t, updated.Content)
	assert.Empty(t, updated.Tags)
	assert.False(t, updated.IsPublic, "omitted is_public on update means private")
	assert.True(t, updated.UpdatedAt.After(blog.UpdatedAt))
	assert.Equal(t, blog.CreatedAt, updated.CreatedAt)

	assert.Equal(t, []string{"blog.created", "blog.updated"}, f.events.Types()[1:])
}

func TestOwnershipMismatchIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")
	_, bob := f.register(t, "bob")

	blog, err := f.blogSvc.Create(ctx, alice, services.BlogInput{Title: "mine"})
	require.NoError(t, err)
	movie, err := f.movieSvc.Create(ctx, alice, services.MediaInput{Title: "Dune", Year: 2021, Rating: 5})
	require.NoError(t, err)
	show, err := f.tvShowSvc.Create(ctx, alice, services.MediaInput{Title: "Severance", Year: 2022, Rating: 5})
	require.NoError(t, err)

	_, missing := f.blogSvc.Get(ctx, alice, 9999)

	_, err = f.blogSvc.Get(ctx, bob, blog.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.Message(missing), apperr.Message(err))

	_, err = f.blogSvc.Update(ctx, bob, blog.ID, services.BlogInput{Title: "stolen"})
	assert.Equal(t, "blog not found", apperr.Message(err))

	err = f.blogSvc.Delete(ctx, bob, blog.ID)
	assert.Equal(t, "blog not found", apperr.Message(err))

	_, err = f.movieSvc.Update(ctx, bob, movie.ID, services.MediaInput{Title: "x", Year: 2000, Rating: 1})
	assert.Equal(t, "movie not found", apperr.Message(err))

	err = f.tvShowSvc.Delete(ctx, bob, show.ID)
	assert.Equal(t, "TV show not found", apperr.Message(err))

	got, err := f.blogSvc.Get(ctx, alice, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title, "failed mutations leave the record untouched")

	err = f.blogSvc.Delete(ctx, alice, blog.ID)
	require.NoError(t, err)
	_, err = f.blogSvc.Get(ctx, alice, blog.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestOwnsGuardsForeignRecords(t *testing.T) {
	assert.True(t, auth.Owns(auth.Claim{UserID: 3}, 3))
	assert.False(t, auth.Owns(auth.Claim{UserID: 3}, 4))
	assert.False(t, auth.Owns(auth.Claim{}, 0))
}

func TestBlogFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")
	_, bob := f.register(t, "bob")

	for _, in := range []services.BlogInput{
		{Title: "Go generics", Content: "type params", Tags: []string{"go"}},
		{Title: "Sourdough", Content: "100% hydration", Tags: []string{"baking"}},
		{Title: "Advent", Content: "puzzles in GO", Tags: []string{"go", "puzzles"}, IsPublic: boolPtr(false)},
	} {
		_, err := f.blogSvc.Create(ctx, alice, in)
		require.NoError(t, err)
	}
	_, err := f.blogSvc.Create(ctx, bob, services.BlogInput{Title: "Go for bob", Tags: []string{"go"}})
	require.NoError(t, err)

	cases := []struct {
		name   string
		params url.Values
		want   []string
	}{
		{"default newest", nil, []string{"Advent", "Sourdough", "Go generics"}},
		{"oldest", url.Values{"sortBy": {"oldest"}}, []string{"Go generics", "Sourdough", "Advent"}},
		{"title", url.Values{"sortBy": {"TITLE"}}, []string{"Advent", "Go generics", "Sourdough"}},
		{"rating is not a blog sort", url.Values{"sortBy": {"rating"}}, []string{"Advent", "Sourdough", "Go generics"}},
		{"search title or content", url.Values{"search": {"go"}}, []string{"Advent", "Go generics"}},
		{"search is literal", url.Values{"search": {"100%"}}, []string{"Sourdough"}},
		{"tag", url.Values{"tag": {"puzzles"}}, []string{"Advent"}},
		{"unknown params ignored", url.Values{"minRating": {"abc"}, "foo": {"bar"}}, []string{"Advent", "Sourdough", "Go generics"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blogs, err := f.blogSvc.List(ctx, alice, tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, blogTitles(blogs))
		})
	}

	public, err := f.blogSvc.ListPublic(ctx, alice.UserID, url.Values{"tag": {"go"}})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Go generics", public[0].Title)
}

func TestMediaSortAndMinRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	for _, in := range []services.MediaInput{
		{Title: "X", Year: 1999, Rating: 2},
		{Title: "Y", Year: 2010, Rating: 5},
		{Title: "Z", Year: 2010, Rating: 5},
	} {
		_, err := f.movieSvc.Create(ctx, alice, in)
		require.NoError(t, err)
	}

	byRating, err := f.movieSvc.List(ctx, alice, url.Values{"sortBy": {"rating"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "Y", "X"}, mediaTitles(byRating), "equal ratings fall back to newest first")

	all, err := f.movieSvc.List(ctx, alice, url.Values{"minRating": {"1"}})
	require.NoError(t, err)
	assert.Len(t, all, 3, "minRating=1 filters nothing")

	top, err := f.movieSvc.List(ctx, alice, url.Values{"minRating": {"3"}, "sortBy": {"rating"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "Y"}, mediaTitles(top))

	byYear, err := f.movieSvc.List(ctx, alice, url.Values{"year": {"2010"}, "sortBy": {"year"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Y", "Z"}, mediaTitles(byYear))
}

func TestMediaRejectsInvalidFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	for _, params := range []url.Values{
		{"minRating": {"abc"}},
		{"minRating": {"0"}},
		{"minRating": {"6"}},
		{"year": {"20x1"}},
		{"year": {"999"}},
	} {
		_, err := f.movieSvc.List(ctx, alice, params)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), params.Encode())
	}
}

func TestMediaValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	cases := map[string]services.MediaInput{
		"title is required":              {Title: "", Year: 2020, Rating: 3},
		"rating must be between 1 and 5": {Title: "A", Year: 2020, Rating: 6},
		"year must be a 4-digit year":    {Title: "A", Year: 99, Rating: 3},
	}
	for msg, in := range cases {
		_, err := f.tvShowSvc.Create(ctx, alice, in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), msg)
		assert.Equal(t, msg, apperr.Message(err))
	}
}

func TestPublicListingFollowsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")

	dune, err := f.movieSvc.Create(ctx, alice, services.MediaInput{Title: "Dune", Year: 2021, Rating: 5, IsPublic: boolPtr(true)})
	require.NoError(t, err)

	public, err := f.movieSvc.ListPublic(ctx, alice.UserID, nil)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Dune", public[0].Title)

	_, err = f.movieSvc.Update(ctx, alice, dune.ID, services.MediaInput{Title: "Dune", Year: 2021, Rating: 5, IsPublic: boolPtr(false)})
	require.NoError(t, err)

	public, err = f.movieSvc.ListPublic(ctx, alice.UserID, nil)
	require.NoError(t, err)
	assert.Empty(t, public)

	mine, err := f.movieSvc.List(ctx, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, mediaTitles(mine))
}

func TestContentDependencyFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")
	f.blogs.Err = errors.New("pool exhausted")

	_, err := f.blogSvc.List(ctx, alice, nil)
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
	_, err = f.blogSvc.Create(ctx, alice, services.BlogInput{Title: "x"})
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
	assert.Equal(t, "server error", apperr.Message(err))
}

func TestOversizedTitlesAreValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.register(t, "alice")
	long := strings.Repeat("t", 256)

	_, err := f.blogSvc.Create(ctx, alice, services.BlogInput{Title: long})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "title must be at most 255 characters", apperr.Message(err))

	_, err = f.movieSvc.Create(ctx, alice, services.MediaInput{Title: long, Year: 2021, Rating: 4})
	assert.Equal(t, "title must be at most 255 characters", apperr.Message(err))

	show, err := f.tvShowSvc.Create(ctx, alice, services.MediaInput{Title: strings.Repeat("é", 255), Year: 2022, Rating: 5})
	require.NoError(t, err)
	_, err = f.tvShowSvc.Update(ctx, alice, show.ID, services.MediaInput{Title: long, Year: 2022, Rating: 5})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	f.blogs.Err = fmt.Errorf("%w: value too long for type character varying(255)", store.ErrTooLong)
	_, err = f.blogSvc.Create(ctx, alice, services.BlogInput{Title: "fits"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "value is too long", apperr.Message(err))
}
