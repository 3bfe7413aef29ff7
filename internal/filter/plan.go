// Package filter turns untrusted list query parameters into validated,
// owner-scoped query plans.
package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/contentdeck/apiserver/internal/apperr"
)

// Sort is a sort key from a fixed set.
type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
	SortTitle  Sort = "title"
	SortRating Sort = "rating"
	SortYear   Sort = "year"
)

// Family identifies which parameters and sort keys a collection accepts.
type Family int

const (
	// FamilyText covers items with free text content and tags (blogs).
	FamilyText Family = iota + 1
	// FamilyRated covers items with a year and a rating (movies, TV shows).
	FamilyRated
)

// Query parameter names.
const (
	ParamSortBy    = "sortBy"
	ParamSearch    = "search"
	ParamTag       = "tag"
	ParamMinRating = "minRating"
	ParamYear      = "year"
)

const (
	MinRating = 1
	MaxRating = 5
	MinYear   = 1000
	MaxYear   = 9999
)

// Plan is a validated description of a listing's filters and order.
// Zero-valued optional fields are absent.
type Plan struct {
	Family    Family
	Search    string
	Tag       string
	MinRating int
	Year      int
	Sort      Sort
}

// HasMinRating reports whether the plan excludes any rating. A threshold of 1
// excludes nothing.
func (p Plan) HasMinRating() bool {
	return p.MinRating > MinRating
}

// BuildBlogPlan validates blog listing parameters.
func BuildBlogPlan(params url.Values) (Plan, error) {
	return Build(FamilyText, params)
}

// BuildMediaPlan validates movie and TV show listing parameters.
func BuildMediaPlan(params url.Values) (Plan, error) {
	return Build(FamilyRated, params)
}

// Build validates params for the given family. Parameters the family does
// not know are ignored.
func Build(family Family, params url.Values) (Plan, error) {
	plan := Plan{
		Family: family,
		Sort:   parseSort(family, params.Get(ParamSortBy)),
		Search: strings.TrimSpace(params.Get(ParamSearch)),
	}

	switch family {
	case FamilyText:
		plan.Tag = strings.TrimSpace(params.Get(ParamTag))
	case FamilyRated:
		minRating, err := parseRating(params.Get(ParamMinRating))
		if err != nil {
			return Plan{}, err
		}
		year, err := parseYear(params.Get(ParamYear))
		if err != nil {
			return Plan{}, err
		}
		plan.MinRating = minRating
		plan.Year = year
	default:
		return Plan{}, apperr.Validation("unknown collection")
	}

	return plan, nil
}

// Sorts returns the sort keys accepted by family, default first.
func Sorts(family Family) []Sort {
	if family == FamilyRated {
		return []Sort{SortNewest, SortOldest, SortRating, SortYear, SortTitle}
	}
	return []Sort{SortNewest, SortOldest, SortTitle}
}

func parseSort(family Family, raw string) Sort {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, s := range Sorts(family) {
		if string(s) == raw {
			return s
		}
	}
	return SortNewest
}

func parseRating(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	rating, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("minRating must be an integer")
	}
	if rating < MinRating || rating > MaxRating {
		return 0, apperr.Validation("minRating must be between 1 and 5")
	}
	return rating, nil
}

func parseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("year must be an integer")
	}
	if year < MinYear || year > MaxYear {
		return 0, apperr.Validation("year must be a 4-digit year")
	}
	return year, nil
}
