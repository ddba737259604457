package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/repository"
)

// Annotation limits.
const (
	MaxTagLength   = 50
	MaxTagsPerRepo = 20
	MaxNotesLength = 5000
)

// MembershipService edits a user's own annotations on starred repos: list
// assignment, free-text tags and notes. Every operation requires the repo
// to be in the user's membership.
type MembershipService struct {
	members repository.MembershipStore
	lists   repository.ListRepository
	logger  *slog.Logger
}

func NewMembershipService(members repository.MembershipStore, lists repository.ListRepository, logger *slog.Logger) *MembershipService {
	return &MembershipService{members: members, lists: lists, logger: logger}
}

// AssignList puts the repo in listID, or in no list when listID is nil.
// The list must belong to the caller.
func (s *MembershipService) AssignList(ctx context.Context, userID string, repoID int64, listID *int64) error {
	if err := requireID("repoID", repoID); err != nil {
		return err
	}
	if listID != nil {
		list, err := s.lists.GetList(ctx, *listID)
		if err != nil {
			return err
		}
		if list.UserID != userID {
			return apperror.Forbidden("list belongs to another user")
		}
	}

	if err := s.members.SetMembershipList(ctx, userID, repoID, listID); err != nil {
		return fmt.Errorf("service/membership: assigning list: %w", err)
	}
	return nil
}

// AddTag appends tag to the repo's tag set. Adding a tag the repo already
// has is a conflict.
func (s *MembershipService) AddTag(ctx context.Context, userID string, repoID int64, tag string) ([]string, error) {
	if err := requireID("repoID", repoID); err != nil {
		return nil, err
	}
	tag, err := requireText("tag", tag, MaxTagLength)
	if err != nil {
		return nil, err
	}

	tags, err := s.members.GetMembershipTags(ctx, userID, repoID)
	if err != nil {
		return nil, fmt.Errorf("service/membership: reading tags: %w", err)
	}
	for _, t := range tags {
		if t == tag {
			return nil, apperror.Conflict(fmt.Sprintf("tag %q already assigned to this repo", tag))
		}
	}
	if len(tags) >= MaxTagsPerRepo {
		return nil, apperror.ValidationFailed("tag", fmt.Sprintf("a repo can have at most %d tags", MaxTagsPerRepo))
	}

	tags = append(tags, tag)
	if err := s.members.SetMembershipTags(ctx, userID, repoID, tags); err != nil {
		return nil, fmt.Errorf("service/membership: saving tags: %w", err)
	}
	return tags, nil
}

// RemoveTag drops tag from the repo's tag set. Removing an absent tag is a
// no-op.
func (s *MembershipService) RemoveTag(ctx context.Context, userID string, repoID int64, tag string) ([]string, error) {
	if err := requireID("repoID", repoID); err != nil {
		return nil, err
	}

	tags, err := s.members.GetMembershipTags(ctx, userID, repoID)
	if err != nil {
		return nil, fmt.Errorf("service/membership: reading tags: %w", err)
	}

	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tags) {
		return tags, nil
	}

	if err := s.members.SetMembershipTags(ctx, userID, repoID, kept); err != nil {
		return nil, fmt.Errorf("service/membership: saving tags: %w", err)
	}
	return kept, nil
}

// SetNotes replaces the repo's notes; blank notes clear them.
func (s *MembershipService) SetNotes(ctx context.Context, userID string, repoID int64, notes string) error {
	if err := requireID("repoID", repoID); err != nil {
		return err
	}
	n, err := optionalText("notes", &notes, MaxNotesLength)
	if err != nil {
		return err
	}
	if err := s.members.SetMembershipNotes(ctx, userID, repoID, n); err != nil {
		return fmt.Errorf("service/membership: saving notes: %w", err)
	}
	return nil
}
