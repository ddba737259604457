package model

import "time"

// RepoRef is the short form of a repo used in sync summaries.
type RepoRef struct {
	ID          int64   `json:"id"`
	FullName    string  `json:"fullName"`
	Description *string `json:"description"`
}

// SyncSummary is the result of one synchronization pass.
//
// Unchanged is true iff both Added and Removed are empty. A failed pass never
// produces a summary, so "nothing changed" and "sync failed" stay distinct.
type SyncSummary struct {
	Added      []RepoRef `json:"added"`
	Removed    []RepoRef `json:"removed"`
	TotalRepos int       `json:"totalRepos"`
	Unchanged  bool      `json:"unchanged"`
}

// SyncState is what we remember about a user's last successful sync.
type SyncState struct {
	UserID    string
	ETag      string // freshness token of the first starred page
	RepoCount int
	SyncedAt  time.Time
}

// MembershipDiff is the symmetric difference between a fresh upstream
// snapshot and the stored membership set.
type MembershipDiff struct {
	Added   []FetchedStar
	Removed []int64
}
