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

var _ repository.SocialRepository = (*DB)(nil)

// ToggleLike flips the (user, repo) like and returns the fresh count.
// Check, flip and count share one transaction.
func (db *DB) ToggleLike(ctx context.Context, userID string, repoID int64) (*model.LikeResult, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning like toggle: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE user_id = ? AND repo_id = ?`, userID, repoID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("sqlite: reading like %s/%d: %w", userID, repoID, err)
	}

	result := &model.LikeResult{Liked: exists == 0}
	if result.Liked {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO likes (user_id, repo_id, created_at) VALUES (?, ?, ?)`, userID, repoID, now())
	} else {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = ? AND repo_id = ?`, userID, repoID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: toggling like %s/%d: %w", userID, repoID, err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE repo_id = ?`, repoID,
	).Scan(&result.Count); err != nil {
		return nil, fmt.Errorf("sqlite: counting likes of %d: %w", repoID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing like toggle: %w", err)
	}
	return result, nil
}

// RepoCounters returns the like and comment totals of a repo and whether
// viewerID liked it. An empty viewerID never matches.
func (db *DB) RepoCounters(ctx context.Context, repoID int64, viewerID string) (likes, comments int, liked bool, err error) {
	err = db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM likes WHERE repo_id = ?),
			(SELECT COUNT(*) FROM comments WHERE repo_id = ?),
			EXISTS (SELECT 1 FROM likes WHERE repo_id = ? AND user_id = ?)`,
		repoID, repoID, repoID, viewerID,
	).Scan(&likes, &comments, &liked)
	if err != nil {
		return 0, 0, false, fmt.Errorf("sqlite: counters of repo %d: %w", repoID, err)
	}
	return likes, comments, liked, nil
}

const commentSelect = `
	SELECT c.id, c.repo_id, c.body, c.created_at, u.id, u.login, u.avatar_url,
		COALESCE(SUM(CASE WHEN v.value = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN v.value = -1 THEN 1 ELSE 0 END), 0),
		COALESCE(MAX(CASE WHEN v.user_id = ? THEN v.value END), 0)
	FROM comments c
	JOIN users u ON u.id = c.user_id
	LEFT JOIN comment_votes v ON v.comment_id = c.id`

// ListComments returns a repo's thread oldest first, each comment carrying
// its vote totals and viewerID's own vote.
func (db *DB) ListComments(ctx context.Context, repoID int64, viewerID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx, commentSelect+`
		WHERE c.repo_id = ?
		GROUP BY c.id
		ORDER BY c.created_at ASC, c.id ASC`, viewerID, repoID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of repo %d: %w", repoID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

// CreateComment inserts the comment and returns it with its author filled in.
func (db *DB) CreateComment(ctx context.Context, userID string, repoID int64, body string) (*model.Comment, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (repo_id, user_id, body, created_at) VALUES (?, ?, ?, ?)`,
		repoID, userID, body, now())
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting comment on %d: %w", repoID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading comment id: %w", err)
	}

	c, err := scanComment(db.conn.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = ? GROUP BY c.id`, userID, id))
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading comment %d: %w", id, err)
	}
	return c, nil
}

func (db *DB) GetCommentAuthor(ctx context.Context, commentID int64) (string, error) {
	var userID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id FROM comments WHERE id = ?`, commentID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("comment", commentID)
		}
		return "", fmt.Errorf("sqlite: getting comment %d: %w", commentID, err)
	}
	return userID, nil
}

// DeleteComment removes a comment and, through the foreign key, its votes.
func (db *DB) DeleteComment(ctx context.Context, commentID int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, commentID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", commentID, err)
	}
	return requireAffected(res, apperror.NotFound("comment", commentID))
}

// Vote records value (+1 or -1) for the user on a comment. Casting the value
// the user already holds clears the vote; the opposite value replaces it.
func (db *DB) Vote(ctx context.Context, userID string, commentID int64, value int) (*model.VoteResult, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning vote: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE id = ?`, commentID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("sqlite: checking comment %d: %w", commentID, err)
	}
	if exists == 0 {
		return nil, apperror.NotFound("comment", commentID)
	}

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM comment_votes WHERE comment_id = ? AND user_id = ?`, commentID, userID,
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: reading vote on %d: %w", commentID, err)
	}

	result := &model.VoteResult{CommentID: commentID}
	if current == value {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM comment_votes WHERE comment_id = ? AND user_id = ?`, commentID, userID)
	} else {
		result.UserVote = value
		_, err = tx.ExecContext(ctx,
			`INSERT INTO comment_votes (comment_id, user_id, value) VALUES (?, ?, ?)
			 ON CONFLICT(comment_id, user_id) DO UPDATE SET value = excluded.value`,
			commentID, userID, value)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: writing vote on %d: %w", commentID, err)
	}

	if err := tx.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0)
		FROM comment_votes WHERE comment_id = ?`, commentID,
	).Scan(&result.Upvotes, &result.Downvotes); err != nil {
		return nil, fmt.Errorf("sqlite: totalling votes on %d: %w", commentID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing vote: %w", err)
	}
	return result, nil
}

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	err := s.Scan(&c.ID, &c.RepoID, &c.Body, &c.CreatedAt,
		&c.Author.ID, &c.Author.Login, &c.Author.AvatarURL,
		&c.Upvotes, &c.Downvotes, &c.UserVote)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
