package handler_test

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/handler"
	"github.com/sakif/starshelf/internal/model"
)

func TestStarHandler_HandleSync(t *testing.T) {
	t.Run("unchanged pass is a 200", func(t *testing.T) {
		mock := &MockStars{Summary: &model.SyncSummary{
			Added:      []model.RepoRef{},
			Removed:    []model.RepoRef{},
			TotalRepos: 12,
			Unchanged:  true,
		}}
		h := handler.NewStarHandler(mock, mock, testLogger)

		rr := serve(http.MethodPost, "/api/stars/sync", "/api/stars/sync", h.HandleSync, "", "user-1")

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, true, body["unchanged"])
		assert.Equal(t, float64(12), body["totalRepos"])
		assert.Equal(t, []any{}, body["added"])
		assert.Equal(t, "user-1", mock.CapturedUser)
		assert.False(t, mock.CapturedOpts.Force)
	})

	t.Run("force flag", func(t *testing.T) {
		mock := &MockStars{Summary: &model.SyncSummary{}}
		h := handler.NewStarHandler(mock, mock, testLogger)

		serve(http.MethodPost, "/api/stars/sync", "/api/stars/sync?force=1", h.HandleSync, "", "user-1")
		assert.True(t, mock.CapturedOpts.Force)
	})

	t.Run("anonymous", func(t *testing.T) {
		mock := &MockStars{}
		h := handler.NewStarHandler(mock, mock, testLogger)

		rr := serve(http.MethodPost, "/api/stars/sync", "/api/stars/sync", h.HandleSync, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("limit", "bad"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", apperror.Unauthorized("sign in"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("list", 7), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("dup"), http.StatusConflict, "conflict"},
		{"upstream", apperror.Upstream("github down", errors.New("502")), http.StatusBadGateway, "upstream_error"},
		{"wrapped", errors.Join(errors.New("ctx"), apperror.NotFound("repo", 1)), http.StatusNotFound, "not_found"},
		{"internal", errors.New("sql: near SELECT: syntax error"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockStars{Err: tt.err}
			h := handler.NewStarHandler(mock, mock, testLogger)

			rr := serve(http.MethodPost, "/api/stars/sync", "/api/stars/sync", h.HandleSync, "", "user-1")

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body handler.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.NotContains(t, body.Message, "SELECT")
		})
	}
}

func TestErrorMapping_ValidationField(t *testing.T) {
	mock := &MockStars{Err: apperror.ValidationFailed("color", "color must look like #rrggbb")}
	h := handler.NewStarHandler(mock, mock, testLogger)

	rr := serve(http.MethodGet, "/api/stars", "/api/stars", h.HandleQuery, "", "user-1")

	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "color", body.Field)
}

func TestStarHandler_HandleQuery(t *testing.T) {
	t.Run("parses parameters", func(t *testing.T) {
		mock := &MockStars{Page: &model.StarPage{Repos: []model.StarredRepo{}, Total: 0, Limit: 2}}
		h := handler.NewStarHandler(mock, mock, testLogger)

		rr := serve(http.MethodGet, "/api/stars",
			"/api/stars?q=cli&language=Go,Rust&language=Zig&list=none&tag=fav&category=devops&sort=stars&limit=2&offset=4",
			h.HandleQuery, "", "user-1")

		require.Equal(t, http.StatusOK, rr.Code)
		q := mock.CapturedQuery
		assert.Equal(t, "cli", q.Text)
		assert.Equal(t, []string{"Go", "Rust", "Zig"}, q.Languages)
		assert.Equal(t, model.ListNone, q.List)
		assert.Equal(t, "fav", q.Tag)
		assert.Equal(t, "devops", q.Category)
		assert.Equal(t, model.SortStars, q.Sort)
		assert.Equal(t, 2, q.Limit)
		assert.Equal(t, 4, q.Offset)
	})

	t.Run("malformed paging is clamped, not rejected", func(t *testing.T) {
		tests := []struct {
			query      string
			wantLimit  int
			wantOffset int
		}{
			{"limit=ten", 0, 0},
			{"limit=99999999999999999999", math.MaxInt, 0},
			{"limit=-99999999999999999999", math.MinInt, 0},
			{"offset=-99999999999999999999", 0, math.MinInt},
			{"offset=1.5&limit=", 0, 0},
		}
		for _, tt := range tests {
			t.Run(tt.query, func(t *testing.T) {
				mock := &MockStars{Page: &model.StarPage{Repos: []model.StarredRepo{}}}
				h := handler.NewStarHandler(mock, mock, testLogger)

				rr := serve(http.MethodGet, "/api/stars", "/api/stars?"+tt.query, h.HandleQuery, "", "user-1")
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, tt.wantLimit, mock.CapturedQuery.Limit)
				assert.Equal(t, tt.wantOffset, mock.CapturedQuery.Offset)
			})
		}
	})
}
