package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/starshelf/internal/auth"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/service"
)

const stateCookie = "oauth_state"

// OAuthProvider is the GitHub side of sign-in. *auth.GitHubProvider
// implements it.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, string, error)
}

// Accounts is the account logic behind sign-in. *service.AuthService
// implements it.
type Accounts interface {
	LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser, accessToken string) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// SessionOptions shape the session cookie and the post-login redirect.
type SessionOptions struct {
	TTL         int    // cookie Max-Age in seconds
	Secure      bool   // set when served over HTTPS
	RedirectURL string // where the browser lands after sign-in
}

// AuthHandler runs the GitHub OAuth login flow and the session endpoints.
//
//   - HandleGitHubLogin    → redirect to GitHub with a CSRF state cookie
//   - HandleGitHubCallback → check state, exchange code, issue session cookie
//   - HandleLogout         → clear the session cookie
//   - HandleMe             → current user's profile
type AuthHandler struct {
	provider OAuthProvider
	accounts Accounts
	session  SessionOptions
	logger   *slog.Logger
}

func NewAuthHandler(provider OAuthProvider, accounts Accounts, session SessionOptions, logger *slog.Logger) *AuthHandler {
	if session.RedirectURL == "" {
		session.RedirectURL = "/"
	}
	return &AuthHandler{
		provider: provider,
		accounts: accounts,
		session:  session,
		logger:   logger,
	}
}

// HandleGitHubLogin redirects to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state is kept in a short-lived HttpOnly cookie; the callback
// only proceeds when GitHub echoes the same value back.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a token and the GitHub profile
//  3. Upsert the user and store the sealed token
//  4. Set the session cookie and redirect to the app
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, h.session.RedirectURL+"?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, accessToken, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.accounts.LoginWithGitHub(r.Context(), ghUser, accessToken)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   h.session.TTL,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.session.RedirectURL, http.StatusSeeOther)
}

// HandleLogout deletes the session cookie.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless, so the token stays valid until it expires; the
// browser simply stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		failRequest(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
