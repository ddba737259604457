// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, trivial
// cross-compilation. It ships the JSON1 functions we rely on for tag facets
// (json_each) and supports multi-statement transactions, which is all the
// "atomic batch" the sync orchestrator needs.
//
// CONNECTIONS:
// sql.DB is a pool. PRAGMAs are per-connection, so for file databases they
// are passed in the DSN (_pragma=...) and applied to every new connection.
// An in-memory database exists per connection, so ":memory:" is pinned to a
// single connection; code that holds a transaction must therefore only use
// the tx, never db.conn, until it commits.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	// fold(x) lowercases with Unicode rules; NULL stays NULL.
	if err := sqlite.RegisterDeterministicScalarFunction("fold", 1, foldFunc); err != nil {
		panic(fmt.Sprintf("sqlite: registering fold: %v", err))
	}
}

func foldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return foldText(v), nil
	case []byte:
		return foldText(string(v)), nil
	default:
		return v, nil
	}
}

// foldText is the Go side of fold(): values compared against fold() output
// must be folded the same way.
func foldText(s string) string {
	return strings.ToLower(s)
}

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
//
// dbPath examples:
//   - "data/stars.db" → file-based database (persistent, WAL mode)
//   - ":memory:"      → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	memory := dbPath == ":memory:"

	dsn := dbPath
	if !memory {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate", dbPath)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if memory {
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the /healthz endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates every table. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// TABLES:
//
//	users             signed-in accounts
//	user_credentials  sealed GitHub access token per user
//	repos             global repo cache, keyed by GitHub's numeric id
//	user_lists        exclusive groupings (ordered, optionally public)
//	user_repos        membership: the "starred" relation + annotations
//	sync_state        freshness token and last sync time per user
//	collections       non-exclusive groupings
//	collection_repos  collection ↔ repo join
//	likes, comments, comment_votes  social layer
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER NOT NULL UNIQUE,
			login      TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS user_credentials (
			user_id      TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			sealed_token BLOB NOT NULL,
			updated_at   DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS repos (
			id               INTEGER PRIMARY KEY,
			name             TEXT NOT NULL,
			full_name        TEXT NOT NULL,
			owner_login      TEXT NOT NULL,
			owner_avatar     TEXT NOT NULL DEFAULT '',
			html_url         TEXT NOT NULL DEFAULT '',
			description      TEXT,
			language         TEXT,
			stargazers_count INTEGER NOT NULL DEFAULT 0,
			topics           TEXT NOT NULL DEFAULT '[]',
			repo_created_at  DATETIME,
			repo_updated_at  DATETIME,
			cached_at        DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_repos_full_name ON repos(full_name COLLATE NOCASE);

		CREATE TABLE IF NOT EXISTS user_lists (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     TEXT NOT NULL REFERENCES users(id),
			name        TEXT NOT NULL,
			color       TEXT NOT NULL DEFAULT '#6366f1',
			icon        TEXT,
			description TEXT,
			position    INTEGER NOT NULL,
			is_public   INTEGER NOT NULL DEFAULT 0,
			slug        TEXT UNIQUE,
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_user_lists_user ON user_lists(user_id, position);

		CREATE TABLE IF NOT EXISTS user_repos (
			user_id    TEXT NOT NULL REFERENCES users(id),
			repo_id    INTEGER NOT NULL REFERENCES repos(id),
			list_id    INTEGER REFERENCES user_lists(id) ON DELETE SET NULL,
			tags       TEXT NOT NULL DEFAULT '[]',
			notes      TEXT,
			starred_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, repo_id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_repos_list ON user_repos(list_id);

		CREATE TABLE IF NOT EXISTS sync_state (
			user_id    TEXT PRIMARY KEY REFERENCES users(id),
			etag       TEXT NOT NULL DEFAULT '',
			repo_count INTEGER NOT NULL DEFAULT 0,
			synced_at  DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS collections (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     TEXT NOT NULL REFERENCES users(id),
			name        TEXT NOT NULL,
			slug        TEXT NOT NULL,
			description TEXT,
			created_at  DATETIME NOT NULL,
			UNIQUE (user_id, slug)
		);

		CREATE TABLE IF NOT EXISTS collection_repos (
			collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			repo_id       INTEGER NOT NULL REFERENCES repos(id),
			added_at      DATETIME NOT NULL,
			PRIMARY KEY (collection_id, repo_id)
		);

		CREATE TABLE IF NOT EXISTS likes (
			user_id    TEXT NOT NULL REFERENCES users(id),
			repo_id    INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, repo_id)
		);
		CREATE INDEX IF NOT EXISTS idx_likes_repo ON likes(repo_id);

		CREATE TABLE IF NOT EXISTS comments (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			repo_id    INTEGER NOT NULL,
			user_id    TEXT NOT NULL REFERENCES users(id),
			body       TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_repo ON comments(repo_id, created_at);

		CREATE TABLE IF NOT EXISTS comment_votes (
			comment_id INTEGER NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id),
			value      INTEGER NOT NULL CHECK (value IN (-1, 1)),
			PRIMARY KEY (comment_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// encodeStrings stores a string slice as a JSON array; nil becomes "[]".
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encoding string array: %w", err)
	}
	return string(b), nil
}

func decodeStrings(raw string) ([]string, error) {
	values := []string{}
	if strings.TrimSpace(raw) == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decoding string array: %w", err)
	}
	return values, nil
}

// nullTime converts an optional timestamp into something database/sql can bind.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// now is the storage clock, truncated so stored timestamps sort as text.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
