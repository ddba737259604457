package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v51/github"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the part of the authenticated GitHub profile we keep.
type GitHubUser struct {
	ID        int64
	Login     string
	Name      string
	AvatarURL string
}

// GitHubProvider runs the GitHub OAuth authorization code flow.
//
// The code-for-token exchange is server to server and uses the client secret;
// the access token never reaches the browser. It is sealed and stored so
// that sync can list the user's stars later.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider configures the flow. Only "read:user" is requested:
// starred repositories are public and the profile is all sign-in needs.
//
// apiBase overrides https://api.github.com/ (GitHub Enterprise, tests).
func NewGitHubProvider(clientID, clientSecret, callbackURL, apiBase string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		apiBase: apiBase,
	}
}

// AuthURL is where the login handler redirects to. state must also be kept
// in a cookie so the callback can reject forged requests.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and loads the
// profile of the user it belongs to.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := gh.NewClient(p.config.Client(ctx, token))
	if p.apiBase != "" {
		base, err := url.Parse(strings.TrimSuffix(p.apiBase, "/") + "/")
		if err != nil {
			return nil, "", fmt.Errorf("auth: parsing API base %q: %w", p.apiBase, err)
		}
		client.BaseURL = base
	}

	u, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, "", fmt.Errorf("auth: loading GitHub profile: %w", err)
	}
	if u.GetID() == 0 {
		return nil, "", fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &GitHubUser{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		Name:      u.GetName(),
		AvatarURL: u.GetAvatarURL(),
	}, token.AccessToken, nil
}
