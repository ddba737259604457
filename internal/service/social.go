package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

// MaxCommentLength is counted in characters after trimming.
const MaxCommentLength = 2000

// SocialService handles likes, comments and comment votes. They are keyed by
// repo id only and do not require the repo to be starred.
type SocialService struct {
	social repository.SocialRepository
	logger *slog.Logger
}

func NewSocialService(social repository.SocialRepository, logger *slog.Logger) *SocialService {
	return &SocialService{social: social, logger: logger}
}

// ToggleLike likes the repo, or unlikes it if already liked, and returns
// the fresh like count.
func (s *SocialService) ToggleLike(ctx context.Context, userID string, repoID int64) (*model.LikeResult, error) {
	if err := requireID("repoID", repoID); err != nil {
		return nil, err
	}
	res, err := s.social.ToggleLike(ctx, userID, repoID)
	if err != nil {
		return nil, fmt.Errorf("service/social: toggling like on %d: %w", repoID, err)
	}
	return res, nil
}

// Comments returns the repo's thread, oldest first. viewerID may be empty.
func (s *SocialService) Comments(ctx context.Context, repoID int64, viewerID string) ([]model.Comment, error) {
	if err := requireID("repoID", repoID); err != nil {
		return nil, err
	}
	comments, err := s.social.ListComments(ctx, repoID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("service/social: listing comments of %d: %w", repoID, err)
	}
	return comments, nil
}

func (s *SocialService) AddComment(ctx context.Context, userID string, repoID int64, body string) (*model.Comment, error) {
	if err := requireID("repoID", repoID); err != nil {
		return nil, err
	}
	body, err := requireText("body", body, MaxCommentLength)
	if err != nil {
		return nil, err
	}

	c, err := s.social.CreateComment(ctx, userID, repoID, body)
	if err != nil {
		return nil, fmt.Errorf("service/social: commenting on %d: %w", repoID, err)
	}
	s.logger.Info("comment created",
		slog.String("userID", userID),
		slog.Int64("repoID", repoID),
		slog.Int64("commentID", c.ID),
	)
	return c, nil
}

// DeleteComment removes one of the caller's own comments.
func (s *SocialService) DeleteComment(ctx context.Context, userID string, commentID int64) error {
	if err := requireID("commentID", commentID); err != nil {
		return err
	}
	author, err := s.social.GetCommentAuthor(ctx, commentID)
	if err != nil {
		return err
	}
	if author != userID {
		return apperror.Forbidden("you can only delete your own comments")
	}
	if err := s.social.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("service/social: deleting comment %d: %w", commentID, err)
	}
	return nil
}

// Vote casts +1 or -1 on a comment. Repeating the current vote withdraws it.
func (s *SocialService) Vote(ctx context.Context, userID string, commentID int64, value int) (*model.VoteResult, error) {
	if err := requireID("commentID", commentID); err != nil {
		return nil, err
	}
	if value != 1 && value != -1 {
		return nil, apperror.ValidationFailed("value", "vote must be 1 or -1")
	}
	res, err := s.social.Vote(ctx, userID, commentID, value)
	if err != nil {
		return nil, fmt.Errorf("service/social: voting on comment %d: %w", commentID, err)
	}
	return res, nil
}
