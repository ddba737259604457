package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts or updates a user based on their GitHub ID.
//
// An existing user keeps their internal ID; only the profile fields that can
// change on GitHub (login, display name, avatar) are refreshed.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	ts := now()

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = ts
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET login = ?, name = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Login, user.Name, user.AvatarURL, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return db.conn.QueryRowContext(ctx,
			`SELECT created_at FROM users WHERE id = ?`, user.ID,
		).Scan(&user.CreatedAt)
	}

	user.ID = xid.New().String()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, name, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.GitHubID, user.Login, user.Name, user.AvatarURL,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, name, avatar_url, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.GitHubID, &u.Login, &u.Name, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &u, nil
}

// SaveCredential stores the sealed GitHub token, replacing any previous one.
func (db *DB) SaveCredential(ctx context.Context, userID string, sealed []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_credentials (user_id, sealed_token, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   sealed_token = excluded.sealed_token,
		   updated_at = excluded.updated_at`,
		userID, sealed, now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving credential for user %s: %w", userID, err)
	}
	return nil
}

func (db *DB) GetCredential(ctx context.Context, userID string) ([]byte, error) {
	var sealed []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT sealed_token FROM user_credentials WHERE user_id = ?`, userID,
	).Scan(&sealed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("credential", userID)
		}
		return nil, fmt.Errorf("sqlite: getting credential for user %s: %w", userID, err)
	}
	return sealed, nil
}
