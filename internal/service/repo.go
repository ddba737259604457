package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/metrics"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

// DefaultResolveCacheSize is the number of owner/name → id entries kept in memory.
const DefaultResolveCacheSize = 1024

// RepoService reads repos through the shared cache, falling back to GitHub
// (and caching the result) on a miss.
//
// Slug lookups go through three tiers: an in-process LRU of owner/name → id,
// the repos table (case-insensitive full-name match), then the GitHub API.
// Only positive answers are remembered in the LRU.
type RepoService struct {
	repos     repository.RepoCache
	social    repository.SocialRepository
	connector Connector
	ids       *lru.Cache
	logger    *slog.Logger
}

func NewRepoService(
	repos repository.RepoCache,
	social repository.SocialRepository,
	connector Connector,
	cacheSize int,
	logger *slog.Logger,
) (*RepoService, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultResolveCacheSize
	}
	ids, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("service/repo: creating resolve cache: %w", err)
	}
	return &RepoService{
		repos:     repos,
		social:    social,
		connector: connector,
		ids:       ids,
		logger:    logger,
	}, nil
}

// Resolve maps an owner/name slug to a repo id. A repo GitHub does not know
// is reported as apperror.ErrNotFound, never as an upstream failure.
func (s *RepoService) Resolve(ctx context.Context, userID, owner, name string) (int64, error) {
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if owner == "" || name == "" || strings.Contains(owner, "/") || strings.Contains(name, "/") {
		return 0, apperror.ValidationFailed("slug", "expected owner/name")
	}
	fullName := owner + "/" + name
	key := strings.ToLower(fullName)

	if v, ok := s.ids.Get(key); ok {
		metrics.RepoResolutions.WithLabelValues(metrics.ResolveCache).Inc()
		return v.(int64), nil
	}

	id, err := s.repos.FindRepoIDByFullName(ctx, fullName)
	if err == nil {
		s.ids.Add(key, id)
		metrics.RepoResolutions.WithLabelValues(metrics.ResolveStore).Inc()
		return id, nil
	}
	if !isNotFound(err) {
		return 0, fmt.Errorf("service/repo: looking up %s: %w", fullName, err)
	}

	up, err := s.connector.Connect(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service/repo: connecting for user %s: %w", userID, err)
	}
	repo, err := up.GetRepoByName(ctx, owner, name)
	if err != nil {
		if isNotFound(err) {
			metrics.RepoResolutions.WithLabelValues(metrics.ResolveMissing).Inc()
			return 0, apperror.NotFound("repo", fullName)
		}
		return 0, fmt.Errorf("service/repo: fetching %s: %w", fullName, err)
	}
	if err := s.repos.UpsertRepo(ctx, repo); err != nil {
		return 0, fmt.Errorf("service/repo: caching %s: %w", fullName, err)
	}

	s.ids.Add(key, repo.ID)
	if canonical := strings.ToLower(repo.FullName); canonical != key {
		// GitHub follows renames; remember the current name too.
		s.ids.Add(canonical, repo.ID)
	}
	metrics.RepoResolutions.WithLabelValues(metrics.ResolveUpstream).Inc()
	s.logger.Info("repo resolved from github",
		slog.String("slug", fullName),
		slog.Int64("repoID", repo.ID),
	)
	return repo.ID, nil
}

// Get returns a repo by numeric id, fetching and caching it on a miss.
func (s *RepoService) Get(ctx context.Context, userID string, id int64) (*model.Repo, error) {
	if err := requireID("repoID", id); err != nil {
		return nil, err
	}

	repo, err := s.repos.GetRepo(ctx, id)
	if err == nil {
		return repo, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("service/repo: getting repo %d: %w", id, err)
	}

	up, err := s.connector.Connect(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/repo: connecting for user %s: %w", userID, err)
	}
	repo, err = up.GetRepoByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("repo", id)
		}
		return nil, fmt.Errorf("service/repo: fetching repo %d: %w", id, err)
	}
	if err := s.repos.UpsertRepo(ctx, repo); err != nil {
		return nil, fmt.Errorf("service/repo: caching repo %d: %w", id, err)
	}
	return repo, nil
}

// Detail returns the repo together with its like and comment counters as
// seen by userID.
func (s *RepoService) Detail(ctx context.Context, userID string, id int64) (*model.RepoDetail, error) {
	repo, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	likes, comments, liked, err := s.social.RepoCounters(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("service/repo: counters of repo %d: %w", id, err)
	}

	return &model.RepoDetail{
		Repo:         *repo,
		LikeCount:    likes,
		CommentCount: comments,
		UserLiked:    liked,
	}, nil
}
