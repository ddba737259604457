// Package repository declares the storage contracts used by the service layer.
//
// Services depend on these interfaces, never on a concrete database. The
// SQLite implementation lives in repository/sqlite; service tests use
// in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/starshelf/internal/model"
)

// UserRepository stores signed-in users and their delegated GitHub credential.
type UserRepository interface {
	// Upsert inserts or refreshes a user keyed by GitHub ID and fills in
	// user.ID, CreatedAt and UpdatedAt.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// SaveCredential stores the sealed (encrypted) GitHub access token.
	SaveCredential(ctx context.Context, userID string, sealed []byte) error
	GetCredential(ctx context.Context, userID string) ([]byte, error)
}

// RepoCache is the global, shared repository metadata cache.
type RepoCache interface {
	UpsertRepo(ctx context.Context, repo *model.Repo) error
	UpsertRepos(ctx context.Context, repos []model.Repo) error
	GetRepo(ctx context.Context, id int64) (*model.Repo, error)
	// FindRepoIDByFullName matches "owner/name" case-insensitively and
	// returns apperror.ErrNotFound on a miss.
	FindRepoIDByFullName(ctx context.Context, fullName string) (int64, error)
	GetRepoRefs(ctx context.Context, ids []int64) (map[int64]model.RepoRef, error)
}

// MembershipStore owns the user ↔ repo "starred" relation.
type MembershipStore interface {
	MembershipIDs(ctx context.Context, userID string) ([]int64, error)
	// ApplyDiff inserts added memberships, deletes removed ones and records the
	// sync state in one all-or-nothing transaction.
	ApplyDiff(ctx context.Context, userID string, diff model.MembershipDiff, state model.SyncState) error
	GetSyncState(ctx context.Context, userID string) (*model.SyncState, error)
	// TouchSyncState records a successful pass that changed nothing.
	TouchSyncState(ctx context.Context, userID string, at time.Time) error

	SetMembershipList(ctx context.Context, userID string, repoID int64, listID *int64) error
	GetMembershipTags(ctx context.Context, userID string, repoID int64) ([]string, error)
	SetMembershipTags(ctx context.Context, userID string, repoID int64, tags []string) error
	SetMembershipNotes(ctx context.Context, userID string, repoID int64, notes *string) error
}

// StarQueryStore runs the faceted query. The query it receives has already
// been normalized (limits clamped, sort key validated).
type StarQueryStore interface {
	QueryStars(ctx context.Context, userID string, q model.StarQuery) ([]model.StarredRepo, int, error)
	LanguageFacets(ctx context.Context, userID string) ([]model.LanguageFacet, error)
	ListFacets(ctx context.Context, userID string) ([]model.ListFacet, error)
	TagFacets(ctx context.Context, userID string) ([]model.TagFacet, error)
	// CategoryFacets returns one count per category, in order, then the
	// uncategorized count.
	CategoryFacets(ctx context.Context, userID string, categories []model.Category) ([]model.CategoryFacet, error)
}

// ListRepository stores user lists.
type ListRepository interface {
	// CreateList assigns the next position (max+1) and fills in ID.
	CreateList(ctx context.Context, list *model.List) error
	GetList(ctx context.Context, id int64) (*model.List, error)
	ListLists(ctx context.Context, userID string) ([]model.List, error)
	UpdateList(ctx context.Context, userID string, id int64, upd model.ListUpdate) (*model.List, error)
	ReorderLists(ctx context.Context, userID string, orderedIDs []int64) error
	DeleteList(ctx context.Context, userID string, id int64) error
	SetListSharing(ctx context.Context, userID string, id int64, public bool, slug string) error
	SlugTaken(ctx context.Context, slug string) (bool, error)
	GetPublicList(ctx context.Context, slug string) (*model.PublicList, error)
}

// CollectionRepository stores collections and their repo memberships.
type CollectionRepository interface {
	CreateCollection(ctx context.Context, c *model.Collection) error
	GetCollectionBySlug(ctx context.Context, userID, slug string) (*model.Collection, error)
	ListCollections(ctx context.Context, userID string) ([]model.Collection, error)
	DeleteCollection(ctx context.Context, userID, slug string) error
	CollectionSlugTaken(ctx context.Context, userID, slug string) (bool, error)
	AddCollectionRepo(ctx context.Context, collectionID, repoID int64) error
	RemoveCollectionRepo(ctx context.Context, collectionID, repoID int64) error
	CollectionRepos(ctx context.Context, collectionID int64) ([]model.Repo, error)
}

// SocialRepository stores likes, comments and comment votes.
type SocialRepository interface {
	ToggleLike(ctx context.Context, userID string, repoID int64) (*model.LikeResult, error)
	RepoCounters(ctx context.Context, repoID int64, viewerID string) (likes, comments int, liked bool, err error)
	ListComments(ctx context.Context, repoID int64, viewerID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, userID string, repoID int64, body string) (*model.Comment, error)
	GetCommentAuthor(ctx context.Context, commentID int64) (string, error)
	DeleteComment(ctx context.Context, commentID int64) error
	// Vote applies toggle semantics: the same value twice clears the vote.
	Vote(ctx context.Context, userID string, commentID int64, value int) (*model.VoteResult, error)
}
