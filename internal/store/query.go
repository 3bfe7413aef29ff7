package store

import (
	"fmt"
	"strings"

	"github.com/contentdeck/apiserver/internal/filter"
)

// collection describes a per-user table the list builder may query. Every
// identifier here is a constant; request input only ever reaches the args.
type collection struct {
	table     string
	columns   string
	searchCol string
	family    filter.Family
}

var (
	blogsCollection = collection{
		table:     "blogs",
		columns:   "id, user_id, title, content, tags, is_public, created_at, updated_at",
		searchCol: "content",
		family:    filter.FamilyText,
	}
	moviesCollection = collection{
		table:     "movies",
		columns:   "id, user_id, title, year, rating, notes, is_public, created_at, updated_at",
		searchCol: "notes",
		family:    filter.FamilyRated,
	}
	tvShowsCollection = collection{
		table:     "tv_shows",
		columns:   moviesCollection.columns,
		searchCol: "notes",
		family:    filter.FamilyRated,
	}
)

var orderClauses = map[filter.Sort]string{
	filter.SortNewest: "created_at DESC",
	filter.SortOldest: "created_at ASC",
	filter.SortTitle:  "title ASC",
	filter.SortRating: "rating DESC, created_at DESC",
	// No secondary key: ties keep the database's natural order.
	filter.SortYear: "year DESC",
}

// buildList translates a scoped query into a parameterized SELECT.
func buildList(c collection, q filter.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	plan := q.Plan()

	args := []any{q.Owner()}
	where := []string{"user_id = $1"}
	if q.PublicOnly() {
		where = append(where, "is_public = true")
	}

	if plan.Search != "" {
		args = append(args, "%"+escapeLike(plan.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR %s ILIKE $%d)", n, c.searchCol, n))
	}

	switch c.family {
	case filter.FamilyText:
		if plan.Tag != "" {
			args = append(args, plan.Tag)
			where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
		}
	case filter.FamilyRated:
		if plan.HasMinRating() {
			args = append(args, plan.MinRating)
			where = append(where, fmt.Sprintf("rating >= $%d", len(args)))
		}
		if plan.Year != 0 {
			args = append(args, plan.Year)
			where = append(where, fmt.Sprintf("year = $%d", len(args)))
		}
	}

	order, ok := orderClauses[plan.Sort]
	if !ok || !sortAllowed(c.family, plan.Sort) {
		order = orderClauses[filter.SortNewest]
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY %s",
		c.columns,
		c.table,
		strings.Join(where, " AND "),
		order,
	)
	return query, args, nil
}

func sortAllowed(family filter.Family, sort filter.Sort) bool {
	for _, s := range filter.Sorts(family) {
		if s == sort {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
