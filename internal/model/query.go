package model

import "time"

// Sort keys accepted by the faceted query.
const (
	SortStarred = "starred" // star time, newest first (default)
	SortStars   = "stars"   // upstream star count, highest first
	SortUpdated = "updated" // upstream last update, newest first
	SortName    = "name"    // repo name, case-insensitive A→Z
)

// ListNone is the list filter value meaning "assigned to no list".
const ListNone = "none"

// CategoryUncategorized is the category filter value meaning "matches no
// category".
const CategoryUncategorized = "uncategorized"

// Category groups repos automatically: a repo belongs to it when its name,
// description or topics contain any keyword (case-insensitive).
type Category struct {
	Slug     string
	Name     string
	Keywords []string
}

// KeywordMatch is a category filter resolved to keywords. Exclude selects
// the repos that match none of them.
type KeywordMatch struct {
	Keywords []string
	Exclude  bool
}

// StarQuery is the flat parameter set of the faceted query. Every field is
// optional; the user scope is implicit.
type StarQuery struct {
	Text      string
	Languages []string
	List      string // list ID, ListNone, or empty for no list filter
	Tag       string
	Category  string // category slug or CategoryUncategorized
	Sort      string
	Limit     int
	Offset    int

	// CategoryMatch is filled in from Category by the query service.
	CategoryMatch *KeywordMatch
}

// LanguageFacet counts a user's starred repos per primary language.
type LanguageFacet struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// ListFacet counts repos assigned to one of the user's lists.
type ListFacet struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Icon  *string `json:"icon"`
	Count int     `json:"count"`
}

// TagFacet counts occurrences of one free-text tag.
type TagFacet struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CategoryFacet counts the repos one category matches.
type CategoryFacet struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Facets are computed over the user's whole membership, ignoring the
// active filters.
type Facets struct {
	Languages  []LanguageFacet `json:"languages"`
	Lists      []ListFacet     `json:"lists"`
	Tags       []TagFacet      `json:"tags"`
	Categories []CategoryFacet `json:"categories"`
}

// StarPage is one page of a faceted query.
type StarPage struct {
	Repos    []StarredRepo `json:"repos"`
	Total    int           `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
	Facets   Facets        `json:"facets"`
	SyncedAt *time.Time    `json:"syncedAt"`
}
