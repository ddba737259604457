package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xorm.io/builder"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

var _ repository.ListRepository = (*DB)(nil)

const listColumns = `id, user_id, name, color, icon, description, position, is_public, slug, created_at`

// CreateList appends the list after the user's last one. Reading max(position)
// and inserting happen in one transaction so two creates never share a slot.
func (db *DB) CreateList(ctx context.Context, list *model.List) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning list create: %w", err)
	}
	defer tx.Rollback()

	var maxPos sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(position) FROM user_lists WHERE user_id = ?`, list.UserID,
	).Scan(&maxPos); err != nil {
		return fmt.Errorf("sqlite: reading list positions: %w", err)
	}

	list.Position = 0
	if maxPos.Valid {
		list.Position = int(maxPos.Int64) + 1
	}
	if list.Color == "" {
		list.Color = model.DefaultListColor
	}
	list.CreatedAt = now()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO user_lists (user_id, name, color, icon, description, position, is_public, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		list.UserID, list.Name, list.Color, list.Icon, list.Description, list.Position, list.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: inserting list: %w", err)
	}
	if list.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading list id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing list create: %w", err)
	}
	return nil
}

func (db *DB) GetList(ctx context.Context, id int64) (*model.List, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM user_lists WHERE id = ?`, id)
	list, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %d: %w", id, err)
	}
	return list, nil
}

// ListLists returns the user's lists in manual order.
func (db *DB) ListLists(ctx context.Context, userID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+` FROM user_lists WHERE user_id = ? ORDER BY position ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists for %s: %w", userID, err)
	}
	defer rows.Close()

	lists := []model.List{}
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning list: %w", err)
		}
		lists = append(lists, *list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lists: %w", err)
	}
	return lists, nil
}

// UpdateList applies the non-nil fields of upd. An empty icon or description
// clears the column.
func (db *DB) UpdateList(ctx context.Context, userID string, id int64, upd model.ListUpdate) (*model.List, error) {
	set := builder.Eq{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Color != nil {
		set["color"] = *upd.Color
	}
	if upd.Icon != nil {
		set["icon"] = emptyToNull(*upd.Icon)
	}
	if upd.Description != nil {
		set["description"] = emptyToNull(*upd.Description)
	}
	if upd.Position != nil {
		set["position"] = *upd.Position
	}

	if len(set) > 0 {
		query, args, err := builder.Update(set).
			From("user_lists").
			Where(builder.Eq{"id": id, "user_id": userID}).
			ToSQL()
		if err != nil {
			return nil, fmt.Errorf("sqlite: building list update: %w", err)
		}
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating list %d: %w", id, err)
		}
		if err := requireAffected(res, apperror.NotFound("list", id)); err != nil {
			return nil, err
		}
	}

	list, err := db.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if list.UserID != userID {
		return nil, apperror.NotFound("list", id)
	}
	return list, nil
}

// ReorderLists writes position i to orderedIDs[i], all or nothing.
func (db *DB) ReorderLists(ctx context.Context, userID string, orderedIDs []int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning list reorder: %w", err)
	}
	defer tx.Rollback()

	for pos, id := range orderedIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE user_lists SET position = ? WHERE id = ? AND user_id = ?`, pos, id, userID)
		if err != nil {
			return fmt.Errorf("sqlite: moving list %d: %w", id, err)
		}
		if err := requireAffected(res, apperror.NotFound("list", id)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing list reorder: %w", err)
	}
	return nil
}

// DeleteList removes the list; repos assigned to it become unassigned.
func (db *DB) DeleteList(ctx context.Context, userID string, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning list delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_repos SET list_id = NULL WHERE list_id = ? AND user_id = ?`, id, userID,
	); err != nil {
		return fmt.Errorf("sqlite: unassigning list %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM user_lists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting list %d: %w", id, err)
	}
	if err := requireAffected(res, apperror.NotFound("list", id)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing list delete: %w", err)
	}
	return nil
}

// SetListSharing flips the public flag and stores the slug. A slug already
// held by another list is reported as a conflict.
func (db *DB) SetListSharing(ctx context.Context, userID string, id int64, public bool, slug string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE user_lists SET is_public = ?, slug = ? WHERE id = ? AND user_id = ?`,
		public, slug, id, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("slug already in use")
		}
		return fmt.Errorf("sqlite: sharing list %d: %w", id, err)
	}
	return requireAffected(res, apperror.NotFound("list", id))
}

func (db *DB) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_lists WHERE slug = ?`, slug,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: checking slug %q: %w", slug, err)
	}
	return n > 0, nil
}

// GetPublicList returns a shared list with its owner and repos. Private
// lists are indistinguishable from missing ones.
func (db *DB) GetPublicList(ctx context.Context, slug string) (*model.PublicList, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM user_lists WHERE slug = ? AND is_public = 1`, slug)
	list, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("list", slug)
		}
		return nil, fmt.Errorf("sqlite: getting public list %q: %w", slug, err)
	}

	pub := &model.PublicList{List: *list, Repos: []model.Repo{}}
	if err := db.conn.QueryRowContext(ctx,
		`SELECT id, login, avatar_url FROM users WHERE id = ?`, list.UserID,
	).Scan(&pub.Owner.ID, &pub.Owner.Login, &pub.Owner.AvatarURL); err != nil {
		return nil, fmt.Errorf("sqlite: getting owner of list %d: %w", list.ID, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+repoColumns+`
		 FROM user_repos ur
		 JOIN repos r ON r.id = ur.repo_id
		 WHERE ur.list_id = ? AND ur.user_id = ?
		 ORDER BY ur.starred_at DESC, r.id DESC`, list.ID, list.UserID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing repos of list %d: %w", list.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning list repo: %w", err)
		}
		pub.Repos = append(pub.Repos, *repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating list repos: %w", err)
	}
	return pub, nil
}

func scanList(s scanner) (*model.List, error) {
	var (
		l    model.List
		icon sql.NullString
		desc sql.NullString
		slug sql.NullString
	)
	if err := s.Scan(&l.ID, &l.UserID, &l.Name, &l.Color, &icon, &desc,
		&l.Position, &l.IsPublic, &slug, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Icon = stringPtr(icon)
	l.Description = stringPtr(desc)
	l.Slug = stringPtr(slug)
	return &l, nil
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
