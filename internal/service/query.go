package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

// Pagination bounds of the faceted query.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// NormalizeQuery clamps pagination, falls back to the default sort for
// unknown keys and trims the text filters. It never fails: bad paging input
// is corrected, not rejected.
func NormalizeQuery(q model.StarQuery) model.StarQuery {
	switch {
	case q.Limit == 0:
		q.Limit = DefaultPageLimit
	case q.Limit < 1:
		q.Limit = 1
	case q.Limit > MaxPageLimit:
		q.Limit = MaxPageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	switch q.Sort {
	case model.SortStarred, model.SortStars, model.SortUpdated, model.SortName:
	default:
		q.Sort = model.SortStarred
	}

	q.Text = strings.TrimSpace(q.Text)
	q.Tag = strings.TrimSpace(q.Tag)
	q.List = strings.TrimSpace(q.List)
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	q.CategoryMatch = nil

	langs := make([]string, 0, len(q.Languages))
	seen := make(map[string]struct{}, len(q.Languages))
	for _, l := range q.Languages {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		langs = append(langs, l)
	}
	q.Languages = langs

	return q
}

// QueryService answers the faceted starred-repo query.
type QueryService struct {
	store   repository.StarQueryStore
	members repository.MembershipStore
	logger  *slog.Logger
}

func NewQueryService(store repository.StarQueryStore, members repository.MembershipStore, logger *slog.Logger) *QueryService {
	return &QueryService{store: store, members: members, logger: logger}
}

// Query returns one page of the user's stars matching q, the total match
// count, and the language/list/tag/category facets.
//
// Facets are computed over the user's whole membership and ignore q, so
// picking one filter never empties the other filter groups.
func (s *QueryService) Query(ctx context.Context, userID string, q model.StarQuery) (*model.StarPage, error) {
	q = NormalizeQuery(q)

	if q.List != "" && q.List != model.ListNone {
		if id, err := strconv.ParseInt(q.List, 10, 64); err != nil || id <= 0 {
			return nil, apperror.ValidationFailed("list", `list must be a list id or "none"`)
		}
	}
	if q.Category != "" {
		match, err := resolveCategory(q.Category)
		if err != nil {
			return nil, err
		}
		q.CategoryMatch = match
	}

	repos, total, err := s.store.QueryStars(ctx, userID, q)
	if err != nil {
		return nil, fmt.Errorf("service/query: querying stars for %s: %w", userID, err)
	}

	page := &model.StarPage{
		Repos:  repos,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	if page.Facets.Languages, err = s.store.LanguageFacets(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/query: language facets: %w", err)
	}
	if page.Facets.Lists, err = s.store.ListFacets(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/query: list facets: %w", err)
	}
	if page.Facets.Tags, err = s.store.TagFacets(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/query: tag facets: %w", err)
	}
	if page.Facets.Categories, err = s.store.CategoryFacets(ctx, userID, categories); err != nil {
		return nil, fmt.Errorf("service/query: category facets: %w", err)
	}

	state, err := s.members.GetSyncState(ctx, userID)
	switch {
	case err == nil:
		t := state.SyncedAt
		page.SyncedAt = &t
	case !isNotFound(err):
		return nil, fmt.Errorf("service/query: loading sync state: %w", err)
	}

	s.logger.Debug("star query",
		slog.String("userID", userID),
		slog.Int("total", total),
		slog.String("sort", q.Sort),
	)
	return page, nil
}
