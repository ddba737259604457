package model

import "time"

// List is a user-owned, exclusive grouping of starred repos.
//
// Slug is generated the first time the list is shared and kept afterwards,
// so un-sharing and re-sharing reuses the same public URL.
type List struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Icon        *string   `json:"icon"`
	Description *string   `json:"description"`
	Position    int       `json:"position"`
	IsPublic    bool      `json:"isPublic"`
	Slug        *string   `json:"slug"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListUpdate carries the fields of a partial list update; nil means "keep".
type ListUpdate struct {
	Name        *string
	Color       *string
	Icon        *string
	Description *string
	Position    *int
}

// ShareState is returned by the share toggle.
type ShareState struct {
	IsPublic bool   `json:"isPublic"`
	Slug     string `json:"slug"`
}

// PublicList is the anonymous view of a shared list.
type PublicList struct {
	List  List   `json:"list"`
	Owner Owner  `json:"owner"`
	Repos []Repo `json:"repos"`
}

// DefaultListColor is used when a list is created without a color.
const DefaultListColor = "#6366f1"

// Collection is a user-owned, non-exclusive grouping: a repo may belong to
// any number of collections.
type Collection struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
