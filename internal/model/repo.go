package model

import "time"

// Repo is one row of the global repository cache.
//
// The cache is shared by every user: one row per upstream repository, keyed
// by GitHub's immutable numeric ID. Upserts overwrite every mutable field
// (nullable fields become nil rather than keeping a stale value) and never
// touch the ID.
type Repo struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"fullName"` // "owner/name", matched case-insensitively
	OwnerLogin      string     `json:"ownerLogin"`
	OwnerAvatar     string     `json:"ownerAvatar"`
	HTMLURL         string     `json:"htmlUrl"`
	Description     *string    `json:"description"`
	Language        *string    `json:"language"`
	StargazersCount int        `json:"stargazersCount"`
	Topics          []string   `json:"topics"`
	RepoCreatedAt   *time.Time `json:"repoCreatedAt"`
	RepoUpdatedAt   *time.Time `json:"repoUpdatedAt"`
}

// StarredRepo is a repo as seen through one user's membership: the cached
// metadata plus the user's own annotations.
type StarredRepo struct {
	Repo
	ListID    *int64    `json:"listId"`
	Tags      []string  `json:"tags"`
	Notes     *string   `json:"notes"`
	StarredAt time.Time `json:"starredAt"`
}

// FetchedStar is one entry of a fresh upstream listing: the repo record and
// the time the user starred it (zero when upstream did not report it).
type FetchedStar struct {
	Repo      Repo
	StarredAt time.Time
}

// RepoDetail is the repo page payload: cached metadata plus social counters.
type RepoDetail struct {
	Repo         Repo `json:"repo"`
	LikeCount    int  `json:"likeCount"`
	CommentCount int  `json:"commentCount"`
	UserLiked    bool `json:"userLiked"`
}
