// Package github is the upstream client: it lists a user's starred repos and
// looks up single repos, returning them in the shape the rest of the
// application stores.
//
// It wraps github.com/google/go-github. Each Client acts on behalf of one
// user, authenticated with that user's delegated OAuth token, except the
// anonymous client used for public reads.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v51/github"
	"golang.org/x/oauth2"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
)

// DefaultPageSize is GitHub's maximum per_page for the starred listing.
const DefaultPageSize = 100

// starMediaType makes GitHub include starred_at with each starred repo.
const starMediaType = "application/vnd.github.v3.star+json"

// Options configure a Client. Zero values select GitHub.com defaults.
type Options struct {
	// BaseURL overrides the REST API root (GitHub Enterprise, tests).
	BaseURL string
	// PageSize is the per_page used for the starred listing.
	PageSize int
}

// Client talks to the GitHub REST API for one user.
type Client struct {
	gh       *gh.Client
	pageSize int
	logger   *slog.Logger
}

// NewClient returns a client that authenticates every request with token.
func NewClient(ctx context.Context, token string, opts Options, logger *slog.Logger) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return newClient(httpClient, opts, logger)
}

// NewPublicClient returns a client without credentials. It can only read
// public repos and GitHub rate limits it per source address.
func NewPublicClient(opts Options, logger *slog.Logger) (*Client, error) {
	return newClient(&http.Client{}, opts, logger)
}

func newClient(httpClient *http.Client, opts Options, logger *slog.Logger) (*Client, error) {
	client := gh.NewClient(httpClient)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github: parsing base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	return &Client{gh: client, pageSize: pageSize, logger: logger}, nil
}

// PageSize reports the per_page the client requests.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Listing is the result of ListStarred.
type Listing struct {
	// Stars is the full snapshot, most recently starred first. Empty when
	// NotModified is set.
	Stars []model.FetchedStar
	// ETag is the validator of the first page as returned by GitHub.
	ETag string
	// NotModified reports that the first page still matches the supplied
	// ETag and nothing else was fetched.
	NotModified bool
}

// ListStarred fetches every page of the authenticated user's starred repos.
//
// Paging stops at the first page shorter than the page size; GitHub's total
// count is never consulted. When etag is non-empty it is sent as
// If-None-Match on the first page, and a 304 ends the call early.
func (c *Client) ListStarred(ctx context.Context, etag string) (*Listing, error) {
	first, resp, err := c.firstStarredPage(ctx, etag)
	if resp != nil && resp.StatusCode == http.StatusNotModified {
		c.logger.Debug("starred listing not modified", "etag", etag)
		return &Listing{ETag: etag, NotModified: true}, nil
	}
	if err != nil {
		return nil, upstreamError("listing starred repos", err)
	}

	listing := &Listing{ETag: resp.Header.Get("ETag")}
	listing.Stars = appendStars(listing.Stars, first)

	page := first
	for n := 2; len(page) >= c.pageSize; n++ {
		opts := &gh.ActivityListStarredOptions{
			Sort:        "created",
			Direction:   "desc",
			ListOptions: gh.ListOptions{Page: n, PerPage: c.pageSize},
		}
		page, _, err = c.gh.Activity.ListStarred(ctx, "", opts)
		if err != nil {
			return nil, upstreamError(fmt.Sprintf("listing starred repos (page %d)", n), err)
		}
		listing.Stars = appendStars(listing.Stars, page)
	}

	c.logger.Debug("fetched starred listing", "repos", len(listing.Stars), "page_size", c.pageSize)
	return listing, nil
}

// firstStarredPage is built by hand because the Activity service has no way
// to attach If-None-Match.
func (c *Client) firstStarredPage(ctx context.Context, etag string) ([]*gh.StarredRepository, *gh.Response, error) {
	u := fmt.Sprintf("user/starred?sort=created&direction=desc&per_page=%d&page=1", c.pageSize)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", starMediaType)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	var page []*gh.StarredRepository
	resp, err := c.gh.Do(ctx, req, &page)
	return page, resp, err
}

func appendStars(dst []model.FetchedStar, page []*gh.StarredRepository) []model.FetchedStar {
	for _, s := range page {
		if s.GetRepository() == nil {
			continue
		}
		star := model.FetchedStar{Repo: toRepo(s.GetRepository())}
		if s.StarredAt != nil {
			star.StarredAt = s.StarredAt.Time.UTC()
		}
		dst = append(dst, star)
	}
	return dst
}

// GetRepoByID fetches one repo by its numeric id. A missing repo is
// reported as apperror.ErrNotFound, transport failures as apperror.ErrUpstream.
func (c *Client) GetRepoByID(ctx context.Context, id int64) (*model.Repo, error) {
	repo, _, err := c.gh.Repositories.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("repo", id)
		}
		return nil, upstreamError(fmt.Sprintf("getting repo %d", id), err)
	}
	r := toRepo(repo)
	return &r, nil
}

// GetRepoByName fetches one repo by owner and name.
func (c *Client) GetRepoByName(ctx context.Context, owner, name string) (*model.Repo, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("repo", owner+"/"+name)
		}
		return nil, upstreamError(fmt.Sprintf("getting repo %s/%s", owner, name), err)
	}
	r := toRepo(repo)
	return &r, nil
}

// toRepo normalizes a go-github repository. Empty descriptions and languages
// become nil so "absent" has a single representation.
func toRepo(r *gh.Repository) model.Repo {
	repo := model.Repo{
		ID:              r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		OwnerLogin:      r.GetOwner().GetLogin(),
		OwnerAvatar:     r.GetOwner().GetAvatarURL(),
		HTMLURL:         r.GetHTMLURL(),
		Description:     nonEmpty(r.GetDescription()),
		Language:        nonEmpty(r.GetLanguage()),
		StargazersCount: r.GetStargazersCount(),
		Topics:          r.Topics,
	}
	if repo.Topics == nil {
		repo.Topics = []string{}
	}
	if r.CreatedAt != nil {
		t := r.CreatedAt.Time.UTC()
		repo.RepoCreatedAt = &t
	}
	if r.UpdatedAt != nil {
		t := r.UpdatedAt.Time.UTC()
		repo.RepoUpdatedAt = &t
	}
	return repo
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isNotFound(err error) bool {
	var errResp *gh.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil &&
		errResp.Response.StatusCode == http.StatusNotFound
}

// upstreamError classifies a go-github error for the caller.
func upstreamError(op string, err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return apperror.Upstream("github rate limit exceeded while "+op, err)
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return apperror.Upstream("github secondary rate limit hit while "+op, err)
	}
	return apperror.Upstream("github request failed while "+op, err)
}
