package model

import "time"

// Comment is a free-text note left by a user on a repo.
type Comment struct {
	ID        int64     `json:"id"`
	RepoID    int64     `json:"repoId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Owner     `json:"author"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	UserVote  int       `json:"userVote"` // +1, -1, or 0 when the viewer has not voted
}

// LikeResult is returned by the like toggle together with the fresh count,
// so callers never need a second round trip.
type LikeResult struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// VoteResult carries a comment's fresh vote totals after a vote.
type VoteResult struct {
	CommentID int64 `json:"commentId"`
	Upvotes   int   `json:"upvotes"`
	Downvotes int   `json:"downvotes"`
	UserVote  int   `json:"userVote"`
}
