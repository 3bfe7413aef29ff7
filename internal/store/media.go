package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contentdeck/apiserver/internal/filter"
	"github.com/contentdeck/apiserver/types"
	"github.com/jmoiron/sqlx"
)

// MediaRepository handles persistence for one rated collection (movies or
// TV shows). Every statement is scoped by user_id.
type MediaRepository struct {
	db   *sqlx.DB
	coll collection
	kind types.MediaKind
}

func NewMovieRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db, coll: moviesCollection, kind: types.MediaMovie}
}

func NewTVShowRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db, coll: tvShowsCollection, kind: types.MediaTVShow}
}

// Kind reports which collection the repository serves.
func (r *MediaRepository) Kind() types.MediaKind {
	return r.kind
}

func (r *MediaRepository) List(ctx context.Context, q filter.Query) ([]types.Media, error) {
	query, args, err := buildList(r.coll, q)
	if err != nil {
		return nil, err
	}
	items := []types.Media{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.coll.table, err)
	}
	return items, nil
}

func (r *MediaRepository) Get(ctx context.Context, ownerID, id int) (types.Media, error) {
	query := `SELECT ` + r.coll.columns + ` FROM ` + r.coll.table + ` WHERE id = $1 AND user_id = $2`
	var item types.Media
	if err := r.db.GetContext(ctx, &item, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Media{}, ErrNotFound
		}
		return types.Media{}, err
	}
	return item, nil
}

func (r *MediaRepository) Create(ctx context.Context, item types.Media) (types.Media, error) {
	query := `
		INSERT INTO ` + r.coll.table + ` (user_id, title, year, rating, notes, is_public)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + r.coll.columns
	var created types.Media
	err := r.db.QueryRowxContext(
		ctx,
		query,
		item.UserID,
		item.Title,
		item.Year,
		item.Rating,
		item.Notes,
		item.IsPublic,
	).StructScan(&created)
	if err != nil {
		return types.Media{}, writeError(err)
	}
	return created, nil
}

// Update replaces the mutable fields in one statement matching both id and
// owner. A record owned by someone else is ErrNotFound.
func (r *MediaRepository) Update(ctx context.Context, item types.Media) (types.Media, error) {
	query := `
		UPDATE ` + r.coll.table + `
		SET title = $1,
			year = $2,
			rating = $3,
			notes = $4,
			is_public = $5,
			updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING ` + r.coll.columns
	var updated types.Media
	err := r.db.QueryRowxContext(
		ctx,
		query,
		item.Title,
		item.Year,
		item.Rating,
		item.Notes,
		item.IsPublic,
		item.ID,
		item.UserID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Media{}, ErrNotFound
		}
		return types.Media{}, writeError(err)
	}
	return updated, nil
}

func (r *MediaRepository) Delete(ctx context.Context, ownerID, id int) error {
	return deleteOwned(ctx, r.db, r.coll.table, ownerID, id)
}

func (r *MediaRepository) CountPublic(ctx context.Context, ownerID int) (int, error) {
	return countPublic(ctx, r.db, r.coll.table, ownerID)
}
