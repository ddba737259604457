package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starshelf/internal/auth"
	"github.com/sakif/starshelf/internal/handler"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/service"
)

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func callback(h *handler.AuthHandler, query string, state *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
	if state != nil {
		req.AddCookie(state)
	}
	rr := httptest.NewRecorder()
	h.HandleGitHubCallback(rr, req)
	return rr
}

func newAuthHandler(p *MockProvider, a *MockAccounts) *handler.AuthHandler {
	return handler.NewAuthHandler(p, a, handler.SessionOptions{TTL: 3600, RedirectURL: "/app"}, testLogger)
}

func TestAuthHandler_Login(t *testing.T) {
	h := newAuthHandler(&MockProvider{}, &MockAccounts{})

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	state := findCookie(rr, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "https://github.example/authorize?state="+state.Value, rr.Header().Get("Location"))
}

func TestAuthHandler_Callback(t *testing.T) {
	state := &http.Cookie{Name: "oauth_state", Value: "abc"}

	t.Run("success", func(t *testing.T) {
		p := &MockProvider{GitHubUser: &auth.GitHubUser{ID: 1, Login: "octo"}, AccessToken: "gho_x"}
		a := &MockAccounts{Result: &service.AuthResult{User: &model.User{ID: "u1"}, Token: "jwt-value"}}
		h := newAuthHandler(p, a)

		rr := callback(h, "state=abc&code=the-code", state)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/app", rr.Header().Get("Location"))
		assert.Equal(t, "the-code", p.Code)
		assert.Equal(t, "gho_x", a.CapturedToken)

		session := findCookie(rr, auth.SessionCookie)
		require.NotNil(t, session)
		assert.Equal(t, "jwt-value", session.Value)
		assert.True(t, session.HttpOnly)
		assert.Equal(t, 3600, session.MaxAge)
	})

	t.Run("missing state cookie", func(t *testing.T) {
		rr := callback(newAuthHandler(&MockProvider{}, &MockAccounts{}), "state=abc&code=x", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		p := &MockProvider{}
		rr := callback(newAuthHandler(p, &MockAccounts{}), "state=evil&code=x", state)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, p.Code, "code must not be exchanged")
	})

	t.Run("denied", func(t *testing.T) {
		rr := callback(newAuthHandler(&MockProvider{}, &MockAccounts{}), "state=abc&error=access_denied", state)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.True(t, strings.HasSuffix(rr.Header().Get("Location"), "auth=denied"))
	})

	t.Run("missing code", func(t *testing.T) {
		rr := callback(newAuthHandler(&MockProvider{}, &MockAccounts{}), "state=abc", state)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("exchange failure", func(t *testing.T) {
		p := &MockProvider{Err: errors.New("bad code")}
		rr := callback(newAuthHandler(p, &MockAccounts{}), "state=abc&code=x", state)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Nil(t, findCookie(rr, auth.SessionCookie))
	})

	t.Run("login failure", func(t *testing.T) {
		p := &MockProvider{GitHubUser: &auth.GitHubUser{ID: 1}, AccessToken: "t"}
		a := &MockAccounts{Err: errors.New("db down")}
		rr := callback(newAuthHandler(p, a), "state=abc&code=x", state)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	h := newAuthHandler(&MockProvider{}, &MockAccounts{})

	rr := httptest.NewRecorder()
	h.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	session := findCookie(rr, auth.SessionCookie)
	require.NotNil(t, session)
	assert.Equal(t, -1, session.MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	a := &MockAccounts{User: &model.User{ID: "u1", Login: "octo"}}
	h := newAuthHandler(&MockProvider{}, a)

	rr := serve(http.MethodGet, "/api/me", "/api/me", h.HandleMe, "", "u1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"login":"octo"`)

	rr = serve(http.MethodGet, "/api/me", "/api/me", h.HandleMe, "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
