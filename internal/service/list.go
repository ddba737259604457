package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

const (
	MaxListNameLength        = 50
	MaxListDescriptionLength = 500
	MaxListIconLength        = 32

	// slugAttempts bounds the retries when a generated slug is already taken.
	slugAttempts = 5
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ListService manages user lists: the exclusive, manually ordered groupings
// that can be shared publicly by slug.
type ListService struct {
	lists  repository.ListRepository
	logger *slog.Logger
}

func NewListService(lists repository.ListRepository, logger *slog.Logger) *ListService {
	return &ListService{lists: lists, logger: logger}
}

// ListInput is the user-editable part of a list.
type ListInput struct {
	Name        string
	Color       string
	Icon        *string
	Description *string
}

// Create appends a new list after the user's existing ones.
func (s *ListService) Create(ctx context.Context, userID string, in ListInput) (*model.List, error) {
	name, err := requireText("name", in.Name, MaxListNameLength)
	if err != nil {
		return nil, err
	}
	if in.Color != "" && !colorPattern.MatchString(in.Color) {
		return nil, apperror.ValidationFailed("color", "color must look like #rrggbb")
	}
	icon, err := optionalText("icon", in.Icon, MaxListIconLength)
	if err != nil {
		return nil, err
	}
	desc, err := optionalText("description", in.Description, MaxListDescriptionLength)
	if err != nil {
		return nil, err
	}

	list := &model.List{
		UserID:      userID,
		Name:        name,
		Color:       in.Color,
		Icon:        icon,
		Description: desc,
	}
	if err := s.lists.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("service/list: creating list: %w", err)
	}

	s.logger.Info("list created",
		slog.String("userID", userID),
		slog.Int64("listID", list.ID),
		slog.Int("position", list.Position),
	)
	return list, nil
}

func (s *ListService) List(ctx context.Context, userID string) ([]model.List, error) {
	lists, err := s.lists.ListLists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/list: listing lists: %w", err)
	}
	return lists, nil
}

// Update applies a partial update. Empty icon or description clears them.
func (s *ListService) Update(ctx context.Context, userID string, id int64, upd model.ListUpdate) (*model.List, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name, err := requireText("name", *upd.Name, MaxListNameLength)
		if err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if upd.Color != nil && !colorPattern.MatchString(*upd.Color) {
		return nil, apperror.ValidationFailed("color", "color must look like #rrggbb")
	}
	if upd.Icon != nil {
		icon, err := optionalText("icon", upd.Icon, MaxListIconLength)
		if err != nil {
			return nil, err
		}
		upd.Icon = clearable(icon)
	}
	if upd.Description != nil {
		desc, err := optionalText("description", upd.Description, MaxListDescriptionLength)
		if err != nil {
			return nil, err
		}
		upd.Description = clearable(desc)
	}
	if upd.Position != nil && *upd.Position < 0 {
		return nil, apperror.ValidationFailed("position", "position must not be negative")
	}

	list, err := s.lists.UpdateList(ctx, userID, id, upd)
	if err != nil {
		return nil, fmt.Errorf("service/list: updating list %d: %w", id, err)
	}
	return list, nil
}

// Reorder sets the manual order. orderedIDs must name each of the user's
// lists exactly once.
func (s *ListService) Reorder(ctx context.Context, userID string, orderedIDs []int64) error {
	lists, err := s.lists.ListLists(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/list: listing lists: %w", err)
	}

	owned := make(map[int64]struct{}, len(lists))
	for _, l := range lists {
		owned[l.ID] = struct{}{}
	}
	if len(orderedIDs) != len(owned) {
		return apperror.ValidationFailed("ids", "order must include every list exactly once")
	}
	seen := make(map[int64]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := owned[id]; !ok {
			return apperror.ValidationFailed("ids", fmt.Sprintf("list %d is not one of your lists", id))
		}
		if _, dup := seen[id]; dup {
			return apperror.ValidationFailed("ids", fmt.Sprintf("list %d appears twice", id))
		}
		seen[id] = struct{}{}
	}

	if err := s.lists.ReorderLists(ctx, userID, orderedIDs); err != nil {
		return fmt.Errorf("service/list: reordering: %w", err)
	}
	return nil
}

// Delete removes the list; its repos become unassigned.
func (s *ListService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.lists.DeleteList(ctx, userID, id); err != nil {
		return fmt.Errorf("service/list: deleting list %d: %w", id, err)
	}
	s.logger.Info("list deleted", slog.String("userID", userID), slog.Int64("listID", id))
	return nil
}

// ToggleShare flips the list between public and private. The slug is
// generated on first share and kept afterwards, so re-sharing reuses the
// same URL.
func (s *ListService) ToggleShare(ctx context.Context, userID string, id int64) (*model.ShareState, error) {
	list, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	slug := ""
	if list.Slug != nil {
		slug = *list.Slug
	} else {
		slug, err = s.freeSlug(ctx, list.Name)
		if err != nil {
			return nil, err
		}
	}

	public := !list.IsPublic
	if err := s.lists.SetListSharing(ctx, userID, id, public, slug); err != nil {
		return nil, fmt.Errorf("service/list: sharing list %d: %w", id, err)
	}

	s.logger.Info("list sharing changed",
		slog.Int64("listID", id),
		slog.Bool("public", public),
		slog.String("slug", slug),
	)
	return &model.ShareState{IsPublic: public, Slug: slug}, nil
}

// Public returns a shared list by slug for anonymous viewers.
func (s *ListService) Public(ctx context.Context, slug string) (*model.PublicList, error) {
	pub, err := s.lists.GetPublicList(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("service/list: public list %q: %w", slug, err)
	}
	return pub, nil
}

func (s *ListService) freeSlug(ctx context.Context, name string) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		slug := GenerateSlug(name)
		taken, err := s.lists.SlugTaken(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("service/list: checking slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
	}
	return "", apperror.Conflict("could not find a free slug, try again")
}

// owned loads the list and checks it belongs to userID.
func (s *ListService) owned(ctx context.Context, userID string, id int64) (*model.List, error) {
	if err := requireID("listID", id); err != nil {
		return nil, err
	}
	list, err := s.lists.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if list.UserID != userID {
		return nil, apperror.Forbidden("list belongs to another user")
	}
	return list, nil
}

// clearable turns "remove this value" (nil from optionalText) into the empty
// string the repository treats as NULL.
func clearable(v *string) *string {
	if v == nil {
		empty := ""
		return &empty
	}
	return v
}
