package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentdeck/apiserver/internal/apperr"
)

func params(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func TestBuildBlogPlan(t *testing.T) {
	plan, err := BuildBlogPlan(params("sortBy", "title", "search", "  go  ", "tag", "tips", "minRating", "abc"))
	require.NoError(t, err, "rated-only params are ignored for blogs")
	assert.Equal(t, Plan{Family: FamilyText, Sort: SortTitle, Search: "go", Tag: "tips"}, plan)
}

func TestBuildMediaPlan(t *testing.T) {
	plan, err := BuildMediaPlan(params("sortBy", "RATING", "minRating", "4", "year", "2021", "tag", "ignored"))
	require.NoError(t, err)
	assert.Equal(t, Plan{Family: FamilyRated, Sort: SortRating, MinRating: 4, Year: 2021}, plan)
	assert.True(t, plan.HasMinRating())
}

func TestSortFallsBackToNewest(t *testing.T) {
	cases := []struct {
		family Family
		raw    string
	}{
		{FamilyText, ""},
		{FamilyText, "rating"},
		{FamilyText, "year"},
		{FamilyText, "title; DROP TABLE blogs"},
		{FamilyRated, "popularity"},
	}
	for _, tc := range cases {
		plan, err := Build(tc.family, params("sortBy", tc.raw))
		require.NoError(t, err)
		assert.Equal(t, SortNewest, plan.Sort, tc.raw)
	}
}

func TestMinRatingOneExcludesNothing(t *testing.T) {
	plan, err := BuildMediaPlan(params("minRating", "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, plan.MinRating)
	assert.False(t, plan.HasMinRating())
}

func TestInvalidNumericFiltersAreRejected(t *testing.T) {
	cases := map[string]url.Values{
		"rating not a number": params("minRating", "abc"),
		"rating too low":      params("minRating", "0"),
		"rating too high":     params("minRating", "6"),
		"year not a number":   params("year", "twenty"),
		"year too short":      params("year", "999"),
		"year too long":       params("year", "10000"),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildMediaPlan(p)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestUnknownFamily(t *testing.T) {
	_, err := Build(Family(0), url.Values{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestQueryScope(t *testing.T) {
	plan := Plan{Family: FamilyText, Sort: SortNewest}

	q := ForOwner(7, plan)
	require.NoError(t, q.Validate())
	assert.Equal(t, 7, q.Owner())
	assert.False(t, q.PublicOnly())
	assert.Equal(t, plan, q.Plan())

	pub := PublicFor(7, plan)
	assert.True(t, pub.PublicOnly())

	assert.ErrorIs(t, Query{}.Validate(), ErrUnscoped)
	assert.ErrorIs(t, ForOwner(0, plan).Validate(), ErrUnscoped)
}
