package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/service"
)

// Lists is *service.ListService.
type Lists interface {
	Create(ctx context.Context, userID string, in service.ListInput) (*model.List, error)
	List(ctx context.Context, userID string) ([]model.List, error)
	Update(ctx context.Context, userID string, id int64, upd model.ListUpdate) (*model.List, error)
	Reorder(ctx context.Context, userID string, orderedIDs []int64) error
	Delete(ctx context.Context, userID string, id int64) error
	ToggleShare(ctx context.Context, userID string, id int64) (*model.ShareState, error)
	Public(ctx context.Context, slug string) (*model.PublicList, error)
}

type ListHandler struct {
	lists  Lists
	logger *slog.Logger
}

func NewListHandler(lists Lists, logger *slog.Logger) *ListHandler {
	return &ListHandler{lists: lists, logger: logger}
}

type listRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
	Position    *int    `json:"position"`
}

// HTTP: GET /api/lists
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	lists, err := h.lists.List(r.Context(), userID)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleCreate appends a list after the caller's existing ones.
//
// HTTP: POST /api/lists  {"name": "Tools", "color": "#22c55e", "icon": "🔧"}
func (h *ListHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body listRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	in := service.ListInput{Icon: body.Icon, Description: body.Description}
	if body.Name != nil {
		in.Name = *body.Name
	}
	if body.Color != nil {
		in.Color = *body.Color
	}

	list, err := h.lists.Create(r.Context(), userID, in)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HandleUpdate applies a partial update; omitted fields are kept.
//
// HTTP: PATCH /api/lists/{listID}
func (h *ListHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body listRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	list, err := h.lists.Update(r.Context(), userID, id, model.ListUpdate{
		Name:        body.Name,
		Color:       body.Color,
		Icon:        body.Icon,
		Description: body.Description,
		Position:    body.Position,
	})
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleReorder sets the manual order of all the caller's lists at once.
//
// HTTP: PUT /api/lists/order  {"ids": [3, 1, 2]}
func (h *ListHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.lists.Reorder(r.Context(), userID, body.IDs); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: DELETE /api/lists/{listID}
func (h *ListHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.lists.Delete(r.Context(), userID, id); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/lists/{listID}/share
func (h *ListHandler) HandleToggleShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "listID")
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := h.lists.ToggleShare(r.Context(), userID, id)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandlePublic serves a shared list to anyone, signed in or not.
//
// HTTP: GET /api/public/lists/{slug}
func (h *ListHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	pub, err := h.lists.Public(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pub)
}
