package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

var _ repository.MembershipStore = (*DB)(nil)

// MembershipIDs returns the repo ids the user currently has starred.
func (db *DB) MembershipIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT repo_id FROM user_repos WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memberships for %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating memberships: %w", err)
	}
	return ids, nil
}

// ApplyDiff applies a membership diff and records the sync state as a single
// transaction. Readers see either the old membership set or the new one;
// any failure rolls everything back.
func (db *DB) ApplyDiff(ctx context.Context, userID string, diff model.MembershipDiff, state model.SyncState) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning membership apply: %w", err)
	}
	defer tx.Rollback()

	for _, star := range diff.Added {
		starredAt := star.StarredAt
		if starredAt.IsZero() {
			starredAt = state.SyncedAt
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_repos (user_id, repo_id, tags, starred_at)
			 VALUES (?, ?, '[]', ?)
			 ON CONFLICT(user_id, repo_id) DO NOTHING`,
			userID, star.Repo.ID, starredAt.UTC().Truncate(time.Second),
		)
		if err != nil {
			return fmt.Errorf("sqlite: adding membership %s/%d: %w", userID, star.Repo.ID, err)
		}
	}

	for _, repoID := range diff.Removed {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM user_repos WHERE user_id = ? AND repo_id = ?`, userID, repoID)
		if err != nil {
			return fmt.Errorf("sqlite: removing membership %s/%d: %w", userID, repoID, err)
		}
	}

	if err := saveSyncState(ctx, tx, userID, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing membership apply: %w", err)
	}
	return nil
}

func saveSyncState(ctx context.Context, ex execer, userID string, state model.SyncState) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO sync_state (user_id, etag, repo_count, synced_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   etag = excluded.etag,
		   repo_count = excluded.repo_count,
		   synced_at = excluded.synced_at`,
		userID, state.ETag, state.RepoCount, state.SyncedAt.UTC().Truncate(time.Second),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving sync state for %s: %w", userID, err)
	}
	return nil
}

// GetSyncState returns apperror.ErrNotFound for a user who never synced.
func (db *DB) GetSyncState(ctx context.Context, userID string) (*model.SyncState, error) {
	state := model.SyncState{UserID: userID}
	err := db.conn.QueryRowContext(ctx,
		`SELECT etag, repo_count, synced_at FROM sync_state WHERE user_id = ?`, userID,
	).Scan(&state.ETag, &state.RepoCount, &state.SyncedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("sync state", userID)
		}
		return nil, fmt.Errorf("sqlite: getting sync state for %s: %w", userID, err)
	}
	return &state, nil
}

func (db *DB) TouchSyncState(ctx context.Context, userID string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sync_state SET synced_at = ? WHERE user_id = ?`,
		at.UTC().Truncate(time.Second), userID)
	if err != nil {
		return fmt.Errorf("sqlite: touching sync state for %s: %w", userID, err)
	}
	return requireAffected(res, apperror.NotFound("sync state", userID))
}

// SetMembershipList assigns (or with nil, unassigns) the membership's list.
func (db *DB) SetMembershipList(ctx context.Context, userID string, repoID int64, listID *int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE user_repos SET list_id = ? WHERE user_id = ? AND repo_id = ?`,
		listID, userID, repoID)
	if err != nil {
		return fmt.Errorf("sqlite: setting list of %s/%d: %w", userID, repoID, err)
	}
	return requireAffected(res, apperror.NotFound("starred repo", repoID))
}

func (db *DB) GetMembershipTags(ctx context.Context, userID string, repoID int64) ([]string, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT tags FROM user_repos WHERE user_id = ? AND repo_id = ?`, userID, repoID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("starred repo", repoID)
		}
		return nil, fmt.Errorf("sqlite: getting tags of %s/%d: %w", userID, repoID, err)
	}
	return decodeStrings(raw)
}

func (db *DB) SetMembershipTags(ctx context.Context, userID string, repoID int64, tags []string) error {
	encoded, err := encodeStrings(tags)
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE user_repos SET tags = ? WHERE user_id = ? AND repo_id = ?`,
		encoded, userID, repoID)
	if err != nil {
		return fmt.Errorf("sqlite: setting tags of %s/%d: %w", userID, repoID, err)
	}
	return requireAffected(res, apperror.NotFound("starred repo", repoID))
}

func (db *DB) SetMembershipNotes(ctx context.Context, userID string, repoID int64, notes *string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE user_repos SET notes = ? WHERE user_id = ? AND repo_id = ?`,
		notes, userID, repoID)
	if err != nil {
		return fmt.Errorf("sqlite: setting notes of %s/%d: %w", userID, repoID, err)
	}
	return requireAffected(res, apperror.NotFound("starred repo", repoID))
}

// requireAffected returns notFound when an UPDATE/DELETE matched no row.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
