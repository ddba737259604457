package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
)

// RepoReader is *service.RepoService.
type RepoReader interface {
	Resolve(ctx context.Context, userID, owner, name string) (int64, error)
	Detail(ctx context.Context, userID string, id int64) (*model.RepoDetail, error)
}

// Annotator is *service.MembershipService.
type Annotator interface {
	AssignList(ctx context.Context, userID string, repoID int64, listID *int64) error
	AddTag(ctx context.Context, userID string, repoID int64, tag string) ([]string, error)
	RemoveTag(ctx context.Context, userID string, repoID int64, tag string) ([]string, error)
	SetNotes(ctx context.Context, userID string, repoID int64, notes string) error
}

// RepoHandler serves repo detail, slug lookup and the caller's own
// annotations on a starred repo.
type RepoHandler struct {
	repos   RepoReader
	members Annotator
	logger  *slog.Logger
}

func NewRepoHandler(repos RepoReader, members Annotator, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{repos: repos, members: members, logger: logger}
}

// HandleGet returns a repo with its social counters. Anonymous viewers get
// userLiked false.
//
// HTTP: GET /api/repos/{repoID}
func (h *RepoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := optionalUser(r)
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.repos.Detail(r.Context(), userID, id)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleLookup resolves owner/name and returns the repo detail.
//
// HTTP: GET /api/repos/lookup/{owner}/{name}
func (h *RepoHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	userID := optionalUser(r)
	id, err := h.repos.Resolve(r.Context(), userID, chi.URLParam(r, "owner"), chi.URLParam(r, "name"))
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	detail, err := h.repos.Detail(r.Context(), userID, id)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleAssignList moves the repo into a list, or out of any list when
// listId is null.
//
// HTTP: PUT /api/repos/{repoID}/list  {"listId": 3 | null}
func (h *RepoHandler) HandleAssignList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		ListID *int64 `json:"listId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.members.AssignList(r.Context(), userID, id, body.ListID); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repoId": id, "listId": body.ListID})
}

// HTTP: PUT /api/repos/{repoID}/notes  {"notes": "..."}
func (h *RepoHandler) HandleSetNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.members.SetNotes(r.Context(), userID, id, body.Notes); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/repos/{repoID}/tags  {"tag": "cli"}
func (h *RepoHandler) HandleAddTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Tag string `json:"tag"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	tags, err := h.members.AddTag(r.Context(), userID, id, body.Tag)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// HTTP: DELETE /api/repos/{repoID}/tags/{tag}
func (h *RepoHandler) HandleRemoveTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}

	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("tag", "malformed tag"))
		return
	}

	tags, err := h.members.RemoveTag(r.Context(), userID, id, tag)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}
