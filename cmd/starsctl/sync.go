package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/starshelf/internal/auth"
	"github.com/sakif/starshelf/internal/github"
	"github.com/sakif/starshelf/internal/service"
)

var (
	syncUser  string
	syncToken string
	syncForce bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass for a user",
	Long: `Reconcile a user's stored stars with their live GitHub stars.

With --token (or GITHUB_TOKEN) the pass authenticates with that token.
Without it, the credential saved at the user's last sign-in is used, which
needs the server's JWT_SECRET to unseal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncUser == "" {
			return errors.New("--user is required")
		}
		token := syncToken
		if token == "" {
			token = os.Getenv("GITHUB_TOKEN")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		logger := cliLogger()
		ghOptions := github.Options{BaseURL: cfg.GitHubAPIURL, PageSize: cfg.SyncPageSize}
		open := func(ctx context.Context, token string) (service.Upstream, error) {
			return github.NewClient(ctx, token, ghOptions, logger)
		}

		var connector service.Connector
		if token != "" {
			connector = service.ConnectorFunc(func(ctx context.Context, _ string) (service.Upstream, error) {
				return open(ctx, token)
			})
		} else {
			tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
			if err != nil {
				return fmt.Errorf("no --token given and stored credentials unavailable: %w", err)
			}
			sealer, err := auth.NewSealer(cfg.JWTSecret)
			if err != nil {
				return err
			}
			connector = service.NewCredentialConnector(service.NewAuthService(db, tokens, sealer, logger), open)
		}

		syncer := service.NewSyncService(db, db, connector, cfg.SyncTimeout, logger)
		summary, err := syncer.Sync(cmd.Context(), syncUser, service.SyncOptions{Force: syncForce})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), summary)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncUser, "user", "", "user ID to sync")
	syncCmd.Flags().StringVar(&syncToken, "token", "", "GitHub access token (default: GITHUB_TOKEN, then the stored credential)")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "skip the conditional first-page fetch")
}
