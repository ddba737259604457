package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/starshelf/internal/model"
)

// Collections is *service.CollectionService.
type Collections interface {
	Create(ctx context.Context, userID, name string, description *string) (*model.Collection, error)
	List(ctx context.Context, userID string) ([]model.Collection, error)
	Get(ctx context.Context, userID, slug string) (*model.Collection, error)
	Delete(ctx context.Context, userID, slug string) error
	AddRepo(ctx context.Context, userID, slug string, repoID int64) error
	RemoveRepo(ctx context.Context, userID, slug string, repoID int64) error
	Repos(ctx context.Context, userID, slug string) ([]model.Repo, error)
}

type CollectionHandler struct {
	collections Collections
	logger      *slog.Logger
}

func NewCollectionHandler(collections Collections, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{collections: collections, logger: logger}
}

// HTTP: GET /api/collections
func (h *CollectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cs, err := h.collections.List(r.Context(), userID)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// HTTP: POST /api/collections  {"name": "...", "description": "..."}
func (h *CollectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.collections.Create(r.Context(), userID, body.Name, body.Description)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: GET /api/collections/{slug}
func (h *CollectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	c, err := h.collections.Get(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HTTP: DELETE /api/collections/{slug}
func (h *CollectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.collections.Delete(r.Context(), userID, chi.URLParam(r, "slug")); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/collections/{slug}/repos
func (h *CollectionHandler) HandleRepos(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	repos, err := h.collections.Repos(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// HandleAddRepo links a repo, fetching it from GitHub when it was never seen.
//
// HTTP: POST /api/collections/{slug}/repos  {"repoId": 42}
func (h *CollectionHandler) HandleAddRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		RepoID int64 `json:"repoId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.collections.AddRepo(r.Context(), userID, chi.URLParam(r, "slug"), body.RepoID); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: DELETE /api/collections/{slug}/repos/{repoID}
func (h *CollectionHandler) HandleRemoveRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.collections.RemoveRepo(r.Context(), userID, chi.URLParam(r, "slug"), id); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
