// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces ownership, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services depend on the repository interfaces and on the small Upstream
// interface below, never on SQLite or go-github directly. Tests pass
// in-memory fakes for both. The same services back the HTTP server and the
// starsctl command line tool.
package service

import (
	"context"

	"github.com/sakif/starshelf/internal/github"
	"github.com/sakif/starshelf/internal/model"
)

// Upstream is the part of the GitHub API the services use, acting as one user.
// *github.Client implements it.
type Upstream interface {
	ListStarred(ctx context.Context, etag string) (*github.Listing, error)
	GetRepoByID(ctx context.Context, id int64) (*model.Repo, error)
	GetRepoByName(ctx context.Context, owner, name string) (*model.Repo, error)
	PageSize() int
}

var _ Upstream = (*github.Client)(nil)

// Connector opens an Upstream that acts on behalf of userID.
type Connector interface {
	Connect(ctx context.Context, userID string) (Upstream, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, userID string) (Upstream, error)

func (f ConnectorFunc) Connect(ctx context.Context, userID string) (Upstream, error) {
	return f(ctx, userID)
}

// CredentialProvider returns the GitHub access token stored for a user.
type CredentialProvider interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

// ClientFactory builds an Upstream authenticated with a raw token.
type ClientFactory func(ctx context.Context, token string) (Upstream, error)

// NewCredentialConnector connects with each user's own stored credential.
func NewCredentialConnector(creds CredentialProvider, open ClientFactory) Connector {
	return ConnectorFunc(func(ctx context.Context, userID string) (Upstream, error) {
		token, err := creds.AccessToken(ctx, userID)
		if err != nil {
			return nil, err
		}
		return open(ctx, token)
	})
}

// WithAnonymous routes requests without a user to open and everything else
// to c. Anonymous visitors can still resolve public repos that way.
func WithAnonymous(c Connector, open func(ctx context.Context) (Upstream, error)) Connector {
	return ConnectorFunc(func(ctx context.Context, userID string) (Upstream, error) {
		if userID == "" {
			return open(ctx)
		}
		return c.Connect(ctx, userID)
	})
}
