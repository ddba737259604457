// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a signed-in GitHub account.
//
// GitHub is the only identity provider, so the external identifier is the
// GitHub user ID. We still generate our own internal string ID (xid) so our
// primary keys are not tied to a third party's numbering scheme.
//
// Users are created on first sign-in and refreshed (login, name, avatar) on
// every subsequent sign-in. They are never deleted by the application.
type User struct {
	ID        string    `json:"id"`
	GitHubID  int64     `json:"githubId"`
	Login     string    `json:"login"`     // GitHub username, e.g. "octocat"
	Name      string    `json:"name"`      // Display name (may be empty)
	AvatarURL string    `json:"avatarUrl"` // Profile picture URL
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner is the public subset of a user shown next to comments and public lists.
type Owner struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
}
