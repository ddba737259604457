package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

var _ repository.CollectionRepository = (*DB)(nil)

const collectionColumns = `id, user_id, name, slug, description, created_at`

// CreateCollection inserts c and fills in ID and CreatedAt. A slug the user
// already uses is reported as apperror.ErrConflict.
func (db *DB) CreateCollection(ctx context.Context, c *model.Collection) error {
	c.CreatedAt = now()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO collections (user_id, name, slug, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Slug, c.Description, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("collection slug %q already exists", c.Slug))
		}
		return fmt.Errorf("sqlite: inserting collection: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading collection id: %w", err)
	}
	return nil
}

func (db *DB) GetCollectionBySlug(ctx context.Context, userID, slug string) (*model.Collection, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE user_id = ? AND slug = ?`, userID, slug)
	c, err := scanCollection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("collection", slug)
		}
		return nil, fmt.Errorf("sqlite: getting collection %q: %w", slug, err)
	}
	return c, nil
}

// ListCollections returns the user's collections, newest first.
func (db *DB) ListCollections(ctx context.Context, userID string) ([]model.Collection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing collections for %s: %w", userID, err)
	}
	defer rows.Close()

	collections := []model.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection: %w", err)
		}
		collections = append(collections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating collections: %w", err)
	}
	return collections, nil
}

// DeleteCollection removes the collection; its repo links go with it (ON
// DELETE CASCADE), the cached repos stay.
func (db *DB) DeleteCollection(ctx context.Context, userID, slug string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM collections WHERE user_id = ? AND slug = ?`, userID, slug)
	if err != nil {
		return fmt.Errorf("sqlite: deleting collection %q: %w", slug, err)
	}
	return requireAffected(res, apperror.NotFound("collection", slug))
}

func (db *DB) CollectionSlugTaken(ctx context.Context, userID, slug string) (bool, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE user_id = ? AND slug = ?`, userID, slug,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: checking collection slug %q: %w", slug, err)
	}
	return n > 0, nil
}

func (db *DB) AddCollectionRepo(ctx context.Context, collectionID, repoID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO collection_repos (collection_id, repo_id, added_at) VALUES (?, ?, ?)`,
		collectionID, repoID, now())
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("repo is already in this collection")
		}
		return fmt.Errorf("sqlite: adding repo %d to collection %d: %w", repoID, collectionID, err)
	}
	return nil
}

func (db *DB) RemoveCollectionRepo(ctx context.Context, collectionID, repoID int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM collection_repos WHERE collection_id = ? AND repo_id = ?`, collectionID, repoID)
	if err != nil {
		return fmt.Errorf("sqlite: removing repo %d from collection %d: %w", repoID, collectionID, err)
	}
	return requireAffected(res, apperror.NotFound("collection repo", repoID))
}

// CollectionRepos returns the collection's repos in the order they were added.
func (db *DB) CollectionRepos(ctx context.Context, collectionID int64) ([]model.Repo, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+repoColumns+`
		 FROM collection_repos cr
		 JOIN repos r ON r.id = cr.repo_id
		 WHERE cr.collection_id = ?
		 ORDER BY cr.added_at ASC, r.id ASC`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing repos of collection %d: %w", collectionID, err)
	}
	defer rows.Close()

	repos := []model.Repo{}
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection repo: %w", err)
		}
		repos = append(repos, *repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating collection repos: %w", err)
	}
	return repos, nil
}

func scanCollection(s scanner) (*model.Collection, error) {
	var (
		c    model.Collection
		desc sql.NullString
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Slug, &desc, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Description = stringPtr(desc)
	return &c, nil
}
