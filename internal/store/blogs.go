package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contentdeck/apiserver/internal/filter"
	"github.com/contentdeck/apiserver/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// BlogRepository handles persistence for blogs. Every statement is scoped
// by user_id.
type BlogRepository struct {
	db *sqlx.DB
}

func NewBlogRepository(db *sqlx.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

func (r *BlogRepository) List(ctx context.Context, q filter.Query) ([]types.Blog, error) {
	query, args, err := buildList(blogsCollection, q)
	if err != nil {
		return nil, err
	}
	blogs := []types.Blog{}
	if err := r.db.SelectContext(ctx, &blogs, query, args...); err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	return blogs, nil
}

func (r *BlogRepository) Get(ctx context.Context, ownerID, id int) (types.Blog, error) {
	query := `SELECT ` + blogsCollection.columns + ` FROM blogs WHERE id = $1 AND user_id = $2`
	var blog types.Blog
	if err := r.db.GetContext(ctx, &blog, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Blog{}, ErrNotFound
		}
		return types.Blog{}, err
	}
	return blog, nil
}

func (r *BlogRepository) Create(ctx context.Context, blog types.Blog) (types.Blog, error) {
	query := `
		INSERT INTO blogs (user_id, title, content, tags, is_public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + blogsCollection.columns
	var created types.Blog
	err := r.db.QueryRowxContext(
		ctx,
		query,
		blog.UserID,
		blog.Title,
		blog.Content,
		pq.Array(tagsOrEmpty(blog.Tags)),
		blog.IsPublic,
	).StructScan(&created)
	if err != nil {
		return types.Blog{}, writeError(err)
	}
	return created, nil
}

// Update replaces the mutable fields of a blog in one statement matching
// both id and owner. A blog owned by someone else is ErrNotFound.
func (r *BlogRepository) Update(ctx context.Context, blog types.Blog) (types.Blog, error) {
	query := `
		UPDATE blogs
		SET title = $1,
			content = $2,
			tags = $3,
			is_public = $4,
			updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING ` + blogsCollection.columns
	var updated types.Blog
	err := r.db.QueryRowxContext(
		ctx,
		query,
		blog.Title,
		blog.Content,
		pq.Array(tagsOrEmpty(blog.Tags)),
		blog.IsPublic,
		blog.ID,
		blog.UserID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Blog{}, ErrNotFound
		}
		return types.Blog{}, writeError(err)
	}
	return updated, nil
}

func (r *BlogRepository) Delete(ctx context.Context, ownerID, id int) error {
	return deleteOwned(ctx, r.db, blogsCollection.table, ownerID, id)
}

func (r *BlogRepository) CountPublic(ctx context.Context, ownerID int) (int, error) {
	return countPublic(ctx, r.db, blogsCollection.table, ownerID)
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// deleteOwned and countPublic take table from the fixed collection set only.
func deleteOwned(ctx context.Context, db *sqlx.DB, table string, ownerID, id int) error {
	query := `DELETE FROM ` + table + ` WHERE id = $1 AND user_id = $2`
	result, err := db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func countPublic(ctx context.Context, db *sqlx.DB, table string, ownerID int) (int, error) {
	query := `SELECT COUNT(*) FROM ` + table + ` WHERE user_id = $1 AND is_public = true`
	var count int
	if err := db.GetContext(ctx, &count, query, ownerID); err != nil {
		return 0, err
	}
	return count, nil
}
