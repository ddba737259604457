package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/starshelf/internal/model"
)

// Social is *service.SocialService.
type Social interface {
	ToggleLike(ctx context.Context, userID string, repoID int64) (*model.LikeResult, error)
	Comments(ctx context.Context, repoID int64, viewerID string) ([]model.Comment, error)
	AddComment(ctx context.Context, userID string, repoID int64, body string) (*model.Comment, error)
	DeleteComment(ctx context.Context, userID string, commentID int64) error
	Vote(ctx context.Context, userID string, commentID int64, value int) (*model.VoteResult, error)
}

// SocialHandler serves likes, comments and comment votes.
type SocialHandler struct {
	social Social
	logger *slog.Logger
}

func NewSocialHandler(social Social, logger *slog.Logger) *SocialHandler {
	return &SocialHandler{social: social, logger: logger}
}

// HTTP: POST /api/repos/{repoID}/likes
func (h *SocialHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.social.ToggleLike(r.Context(), userID, id)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: GET /api/repos/{repoID}/comments
func (h *SocialHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	userID := optionalUser(r)
	id, err := idParam(r, "repoID")
	if err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.social.Comments(r.Context(), id, userID)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HTTP: POST /api/repos/{repoID}/comments  {"body": "..."}
func (h *SocialHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
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
		Body string `json:"body"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.social.AddComment(r.Context(), userID, id, body.Body)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: DELETE /api/comments/{commentID}
func (h *SocialHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.social.DeleteComment(r.Context(), userID, id); err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleVote casts or withdraws a vote. Posting the current value again
// clears it.
//
// HTTP: POST /api/comments/{commentID}/vote  {"value": 1 | -1}
func (h *SocialHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Value int `json:"value"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.social.Vote(r.Context(), userID, id, body.Value)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
