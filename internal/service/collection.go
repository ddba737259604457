package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

const (
	MaxCollectionNameLength        = 80
	MaxCollectionDescriptionLength = 500
)

// repoGetter is the part of RepoService collections need: making sure a repo
// is cached before it is linked.
type repoGetter interface {
	Get(ctx context.Context, userID string, id int64) (*model.Repo, error)
}

// CollectionService manages collections, the non-exclusive groupings: one
// repo can sit in any number of them, starred or not.
type CollectionService struct {
	collections repository.CollectionRepository
	repos       repoGetter
	logger      *slog.Logger
}

func NewCollectionService(collections repository.CollectionRepository, repos repoGetter, logger *slog.Logger) *CollectionService {
	return &CollectionService{collections: collections, repos: repos, logger: logger}
}

// Create stores a new collection. Its slug is derived from the name; an
// empty or already used slug gets a random suffix.
func (s *CollectionService) Create(ctx context.Context, userID, name string, description *string) (*model.Collection, error) {
	name, err := requireText("name", name, MaxCollectionNameLength)
	if err != nil {
		return nil, err
	}
	desc, err := optionalText("description", description, MaxCollectionDescriptionLength)
	if err != nil {
		return nil, err
	}

	slug, err := s.freeSlug(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	c := &model.Collection{UserID: userID, Name: name, Slug: slug, Description: desc}
	if err := s.collections.CreateCollection(ctx, c); err != nil {
		return nil, fmt.Errorf("service/collection: creating %q: %w", slug, err)
	}

	s.logger.Info("collection created", slog.String("userID", userID), slog.String("slug", slug))
	return c, nil
}

func (s *CollectionService) freeSlug(ctx context.Context, userID, name string) (string, error) {
	slug := Slugify(name)
	for i := 0; i <= slugAttempts; i++ {
		if slug != "" {
			taken, err := s.collections.CollectionSlugTaken(ctx, userID, slug)
			if err != nil {
				return "", fmt.Errorf("service/collection: checking slug: %w", err)
			}
			if !taken {
				return slug, nil
			}
		}
		slug = GenerateSlug(name)
	}
	return "", apperror.Conflict("could not find a free slug, try another name")
}

func (s *CollectionService) List(ctx context.Context, userID string) ([]model.Collection, error) {
	collections, err := s.collections.ListCollections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/collection: listing: %w", err)
	}
	return collections, nil
}

func (s *CollectionService) Get(ctx context.Context, userID, slug string) (*model.Collection, error) {
	return s.collections.GetCollectionBySlug(ctx, userID, slug)
}

func (s *CollectionService) Delete(ctx context.Context, userID, slug string) error {
	if err := s.collections.DeleteCollection(ctx, userID, slug); err != nil {
		return fmt.Errorf("service/collection: deleting %q: %w", slug, err)
	}
	s.logger.Info("collection deleted", slog.String("userID", userID), slog.String("slug", slug))
	return nil
}

// AddRepo links a repo to the collection, fetching it from GitHub first if
// it was never cached. Adding it twice is a conflict.
func (s *CollectionService) AddRepo(ctx context.Context, userID, slug string, repoID int64) error {
	c, err := s.collections.GetCollectionBySlug(ctx, userID, slug)
	if err != nil {
		return err
	}
	if _, err := s.repos.Get(ctx, userID, repoID); err != nil {
		return err
	}
	if err := s.collections.AddCollectionRepo(ctx, c.ID, repoID); err != nil {
		return fmt.Errorf("service/collection: adding repo %d to %q: %w", repoID, slug, err)
	}
	return nil
}

func (s *CollectionService) RemoveRepo(ctx context.Context, userID, slug string, repoID int64) error {
	if err := requireID("repoID", repoID); err != nil {
		return err
	}
	c, err := s.collections.GetCollectionBySlug(ctx, userID, slug)
	if err != nil {
		return err
	}
	if err := s.collections.RemoveCollectionRepo(ctx, c.ID, repoID); err != nil {
		return fmt.Errorf("service/collection: removing repo %d from %q: %w", repoID, slug, err)
	}
	return nil
}

// Repos returns the collection's repos in the order they were added.
func (s *CollectionService) Repos(ctx context.Context, userID, slug string) ([]model.Repo, error) {
	c, err := s.collections.GetCollectionBySlug(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	repos, err := s.collections.CollectionRepos(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("service/collection: repos of %q: %w", slug, err)
	}
	return repos, nil
}
