package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/auth"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

// AuthService handles sign-in and the GitHub credential kept for sync.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), Sealer (token at rest)
//
// It never touches cookies or requests; that is the handler's job.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	sealer *auth.Sealer
	logger *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	sealer *auth.Sealer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		sealer: sealer,
		logger: logger,
	}
}

var _ CredentialProvider = (*AuthService)(nil)

// AuthResult bundles the user and the issued session token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginWithGitHub finishes the OAuth callback:
//
//  1. Upsert the user keyed by GitHub ID (first login inserts, later logins
//     refresh login, name and avatar).
//  2. Seal and store the access token, replacing any earlier one.
//  3. Issue a session JWT for the internal user id.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser, accessToken string) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	if accessToken == "" {
		return nil, apperror.Unauthorized("GitHub did not return an access token")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Name:      ghUser.Name,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	sealed, err := s.sealer.Seal(accessToken)
	if err != nil {
		return nil, fmt.Errorf("service/auth: sealing credential for user %s: %w", user.ID, err)
	}
	if err := s.users.SaveCredential(ctx, user.ID, sealed); err != nil {
		return nil, fmt.Errorf("service/auth: saving credential for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID backs /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("no user in session")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user id a session token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// AccessToken opens the stored GitHub token for userID. A missing or
// unreadable credential means the user has to sign in again, so both are
// reported as Unauthorized.
func (s *AuthService) AccessToken(ctx context.Context, userID string) (string, error) {
	sealed, err := s.users.GetCredential(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return "", apperror.Unauthorized("no GitHub credential on file; sign in again")
		}
		return "", fmt.Errorf("service/auth: loading credential for user %s: %w", userID, err)
	}

	token, err := s.sealer.Open(sealed)
	if err != nil {
		if errors.Is(err, auth.ErrUnsealable) {
			s.logger.Warn("stored credential cannot be opened",
				slog.String("userID", userID),
			)
			return "", apperror.Unauthorized("stored GitHub credential is unreadable; sign in again")
		}
		return "", err
	}
	return token, nil
}
