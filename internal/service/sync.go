package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/metrics"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

// DefaultSyncTimeout bounds one synchronization pass.
const DefaultSyncTimeout = 60 * time.Second

// SyncOptions tune a single pass.
type SyncOptions struct {
	// Force skips the conditional first-page fetch.
	Force bool
}

// SyncService reconciles a user's stored memberships with their live
// GitHub stars.
//
// ONE PASS:
//  1. Fetch every starred page (conditionally, when the last snapshot fit on
//     one page and a freshness token is stored).
//  2. Upsert all fetched repos into the shared repo cache.
//  3. Diff the snapshot against the stored membership ids.
//  4. Apply the diff and the new sync state in one transaction.
//  5. Report what was added and removed.
//
// An upstream failure aborts before step 2, so nothing is written. A failure
// in step 4 rolls back. There are no automatic retries; the caller re-runs.
type SyncService struct {
	repos     repository.RepoCache
	members   repository.MembershipStore
	connector Connector
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewSyncService(
	repos repository.RepoCache,
	members repository.MembershipStore,
	connector Connector,
	timeout time.Duration,
	logger *slog.Logger,
) *SyncService {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	return &SyncService{
		repos:     repos,
		members:   members,
		connector: connector,
		timeout:   timeout,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sync runs one pass for userID using the user's stored GitHub credential.
func (s *SyncService) Sync(ctx context.Context, userID string, opts SyncOptions) (*model.SyncSummary, error) {
	up, err := s.connector.Connect(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/sync: connecting for user %s: %w", userID, err)
	}
	return s.Run(ctx, userID, up, opts)
}

// Run executes one pass against an already connected upstream.
func (s *SyncService) Run(ctx context.Context, userID string, up Upstream, opts SyncOptions) (*model.SyncSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	summary, result, err := s.run(ctx, userID, up, opts)
	if err != nil {
		metrics.ObserveSync(metrics.SyncFailed, time.Since(start), 0, 0)
		s.logger.Error("sync failed",
			slog.String("userID", userID),
			slog.Any("error", err),
		)
		return nil, err
	}

	metrics.ObserveSync(result, time.Since(start), len(summary.Added), len(summary.Removed))
	s.logger.Info("sync finished",
		slog.String("userID", userID),
		slog.String("result", result),
		slog.Int("added", len(summary.Added)),
		slog.Int("removed", len(summary.Removed)),
		slog.Int("total", summary.TotalRepos),
		slog.Duration("elapsed", time.Since(start)),
	)
	return summary, nil
}

func (s *SyncService) run(ctx context.Context, userID string, up Upstream, opts SyncOptions) (*model.SyncSummary, string, error) {
	prev, err := s.members.GetSyncState(ctx, userID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, "", fmt.Errorf("service/sync: loading sync state: %w", err)
	}

	// Page 1 only reflects the whole snapshot when everything fit on it.
	etag := ""
	if prev != nil && !opts.Force && prev.ETag != "" && prev.RepoCount < up.PageSize() {
		etag = prev.ETag
	}

	listing, err := up.ListStarred(ctx, etag)
	if err != nil {
		return nil, "", fmt.Errorf("service/sync: fetching stars for %s: %w", userID, err)
	}

	if listing.NotModified {
		if prev == nil {
			return nil, "", apperror.Upstream("github reported not modified without a stored snapshot", nil)
		}
		if err := s.members.TouchSyncState(ctx, userID, s.now()); err != nil {
			return nil, "", fmt.Errorf("service/sync: recording unchanged pass: %w", err)
		}
		return &model.SyncSummary{
			Added:      []model.RepoRef{},
			Removed:    []model.RepoRef{},
			TotalRepos: prev.RepoCount,
			Unchanged:  true,
		}, metrics.SyncNotModified, nil
	}

	fresh := uniqueRepos(listing.Stars)
	if err := s.repos.UpsertRepos(ctx, fresh); err != nil {
		return nil, "", fmt.Errorf("service/sync: caching repos: %w", err)
	}

	current, err := s.members.MembershipIDs(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("service/sync: loading memberships: %w", err)
	}

	diff := Diff(listing.Stars, current)

	// Removed repos are described from the cache, read before the rows go away.
	removedRefs, err := s.repos.GetRepoRefs(ctx, diff.Removed)
	if err != nil {
		return nil, "", fmt.Errorf("service/sync: describing removed repos: %w", err)
	}

	state := model.SyncState{
		UserID:    userID,
		ETag:      listing.ETag,
		RepoCount: len(fresh),
		SyncedAt:  s.now(),
	}
	if err := s.members.ApplyDiff(ctx, userID, diff, state); err != nil {
		return nil, "", fmt.Errorf("service/sync: applying membership diff: %w", err)
	}

	summary := &model.SyncSummary{
		Added:      make([]model.RepoRef, 0, len(diff.Added)),
		Removed:    make([]model.RepoRef, 0, len(diff.Removed)),
		TotalRepos: len(fresh),
	}
	for _, star := range diff.Added {
		summary.Added = append(summary.Added, model.RepoRef{
			ID:          star.Repo.ID,
			FullName:    star.Repo.FullName,
			Description: star.Repo.Description,
		})
	}
	for _, id := range diff.Removed {
		ref, ok := removedRefs[id]
		if !ok {
			ref = model.RepoRef{ID: id}
		}
		summary.Removed = append(summary.Removed, ref)
	}
	summary.Unchanged = len(summary.Added) == 0 && len(summary.Removed) == 0

	result := metrics.SyncChanged
	if summary.Unchanged {
		result = metrics.SyncUnchanged
	}
	return summary, result, nil
}

// LastSynced returns when the user last completed a pass, or nil if never.
func (s *SyncService) LastSynced(ctx context.Context, userID string) (*time.Time, error) {
	state, err := s.members.GetSyncState(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/sync: loading sync state: %w", err)
	}
	t := state.SyncedAt
	return &t, nil
}
