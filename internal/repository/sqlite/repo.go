package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

var _ repository.RepoCache = (*DB)(nil)

// execer is satisfied by both *sql.DB and *sql.Tx, so the same statement
// helpers run standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// repoColumns is the column list read by scanRepo, qualified with the "r" alias.
const repoColumns = `r.id, r.name, r.full_name, r.owner_login, r.owner_avatar, r.html_url,
	r.description, r.language, r.stargazers_count, r.topics, r.repo_created_at, r.repo_updated_at`

// upsertRepoSQL overwrites every mutable column on conflict. Nullable fields
// are written as given, so a description removed upstream becomes NULL here.
const upsertRepoSQL = `
	INSERT INTO repos (id, name, full_name, owner_login, owner_avatar, html_url,
		description, language, stargazers_count, topics, repo_created_at, repo_updated_at, cached_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		full_name = excluded.full_name,
		owner_login = excluded.owner_login,
		owner_avatar = excluded.owner_avatar,
		html_url = excluded.html_url,
		description = excluded.description,
		language = excluded.language,
		stargazers_count = excluded.stargazers_count,
		topics = excluded.topics,
		repo_created_at = excluded.repo_created_at,
		repo_updated_at = excluded.repo_updated_at,
		cached_at = excluded.cached_at`

func upsertRepo(ctx context.Context, ex execer, repo *model.Repo) error {
	topics, err := encodeStrings(repo.Topics)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, upsertRepoSQL,
		repo.ID,
		repo.Name,
		repo.FullName,
		repo.OwnerLogin,
		repo.OwnerAvatar,
		repo.HTMLURL,
		repo.Description,
		repo.Language,
		repo.StargazersCount,
		topics,
		nullTime(repo.RepoCreatedAt),
		nullTime(repo.RepoUpdatedAt),
		now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting repo %d: %w", repo.ID, err)
	}
	return nil
}

// UpsertRepo writes one repo into the shared cache (last writer wins).
func (db *DB) UpsertRepo(ctx context.Context, repo *model.Repo) error {
	return upsertRepo(ctx, db.conn, repo)
}

// UpsertRepos writes a whole fetched snapshot in one transaction.
func (db *DB) UpsertRepos(ctx context.Context, repos []model.Repo) error {
	if len(repos) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning repo upsert: %w", err)
	}
	defer tx.Rollback()

	for i := range repos {
		if err := upsertRepo(ctx, tx, &repos[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing repo upsert: %w", err)
	}
	return nil
}

// GetRepo returns a cached repo or apperror.ErrNotFound.
func (db *DB) GetRepo(ctx context.Context, id int64) (*model.Repo, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+repoColumns+` FROM repos r WHERE r.id = ?`, id)

	repo, err := scanRepo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("repo", id)
		}
		return nil, fmt.Errorf("sqlite: getting repo %d: %w", id, err)
	}
	return repo, nil
}

// FindRepoIDByFullName resolves "owner/name" without a network round trip.
func (db *DB) FindRepoIDByFullName(ctx context.Context, fullName string) (int64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM repos WHERE full_name = ? COLLATE NOCASE LIMIT 1`, fullName,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("repo", fullName)
		}
		return 0, fmt.Errorf("sqlite: finding repo %s: %w", fullName, err)
	}
	return id, nil
}

// GetRepoRefs loads the short form of the given repos. Missing ids are
// simply absent from the result.
func (db *DB) GetRepoRefs(ctx context.Context, ids []int64) (map[int64]model.RepoRef, error) {
	refs := make(map[int64]model.RepoRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, full_name, description FROM repos WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading repo refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref model.RepoRef
		var desc sql.NullString
		if err := rows.Scan(&ref.ID, &ref.FullName, &desc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning repo ref: %w", err)
		}
		ref.Description = stringPtr(desc)
		refs[ref.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating repo refs: %w", err)
	}
	return refs, nil
}

// scanRepo reads the columns listed in repoColumns.
func scanRepo(s scanner, extra ...any) (*model.Repo, error) {
	var (
		r         model.Repo
		desc      sql.NullString
		lang      sql.NullString
		topics    string
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	dest := []any{
		&r.ID, &r.Name, &r.FullName, &r.OwnerLogin, &r.OwnerAvatar, &r.HTMLURL,
		&desc, &lang, &r.StargazersCount, &topics, &createdAt, &updatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	decoded, err := decodeStrings(topics)
	if err != nil {
		return nil, fmt.Errorf("sqlite: repo %d topics: %w", r.ID, err)
	}
	r.Topics = decoded
	r.Description = stringPtr(desc)
	r.Language = stringPtr(lang)
	r.RepoCreatedAt = timePtr(createdAt)
	r.RepoUpdatedAt = timePtr(updatedAt)
	return &r, nil
}
