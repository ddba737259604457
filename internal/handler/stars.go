package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/service"
)

// Syncer runs a synchronization pass. *service.SyncService implements it.
type Syncer interface {
	Sync(ctx context.Context, userID string, opts service.SyncOptions) (*model.SyncSummary, error)
}

// StarQuerier answers the faceted query. *service.QueryService implements it.
type StarQuerier interface {
	Query(ctx context.Context, userID string, q model.StarQuery) (*model.StarPage, error)
}

// StarHandler exposes sync and the faceted query over a user's stars.
type StarHandler struct {
	syncer  Syncer
	querier StarQuerier
	logger  *slog.Logger
}

func NewStarHandler(syncer Syncer, querier StarQuerier, logger *slog.Logger) *StarHandler {
	return &StarHandler{syncer: syncer, querier: querier, logger: logger}
}

// HandleSync runs one pass and returns its summary.
//
// HTTP: POST /api/stars/sync[?force=1]
//
// A pass that found nothing new is still a 200 with "unchanged": true; a
// failed pass is always an error status, never an empty summary.
func (h *StarHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	opts := service.SyncOptions{}
	switch strings.ToLower(r.URL.Query().Get("force")) {
	case "1", "true", "yes":
		opts.Force = true
	}

	summary, err := h.syncer.Sync(r.Context(), userID, opts)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleQuery returns one page of starred repos plus facets.
//
// HTTP: GET /api/stars?q=&language=Go&language=Rust&list=&tag=&category=&sort=&limit=&offset=
//
// language may be repeated or comma separated. list is a list id or
// "none" for unassigned repos.
func (h *StarHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := parseStarQuery(r)

	page, err := h.querier.Query(r.Context(), userID, q)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// parseStarQuery never fails. Paging values out of int range saturate and
// non-numeric ones count as unset; service.NormalizeQuery bounds the rest.
func parseStarQuery(r *http.Request) model.StarQuery {
	values := r.URL.Query()
	q := model.StarQuery{
		Text:     values.Get("q"),
		List:     values.Get("list"),
		Tag:      values.Get("tag"),
		Category: values.Get("category"),
		Sort:     values.Get("sort"),
		Limit:    intQuery(values.Get("limit")),
		Offset:   intQuery(values.Get("offset")),
	}
	for _, v := range values["language"] {
		q.Languages = append(q.Languages, strings.Split(v, ",")...)
	}
	return q
}

func intQuery(raw string) int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	switch {
	case err == nil:
		return n
	case errors.Is(err, strconv.ErrRange):
		if strings.HasPrefix(raw, "-") {
			return math.MinInt
		}
		return math.MaxInt
	default:
		return 0
	}
}
