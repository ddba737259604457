// Package server is the composition root: it opens storage, builds every
// service and handler, mounts the routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config → sqlite.DB ─┬─ AuthService (sealed GitHub credential)
//	                    │        │
//	                    │        └─ CredentialConnector → github.Client per request
//	                    │
//	                    ├─ SyncService, QueryService, RepoService
//	                    ├─ ListService, MembershipService, CollectionService
//	                    └─ SocialService
//
// Handlers receive services through small interfaces; services receive the
// repository interfaces, never *sqlite.DB itself.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/starshelf/internal/auth"
	"github.com/sakif/starshelf/internal/config"
	"github.com/sakif/starshelf/internal/github"
	"github.com/sakif/starshelf/internal/handler"
	"github.com/sakif/starshelf/internal/middleware"
	sqliteRepo "github.com/sakif/starshelf/internal/repository/sqlite"
	"github.com/sakif/starshelf/internal/service"
)

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route. The caller must call Close
// (or Start, which closes on return).
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes builds the dependency graph and mounts:
//
//	GET  /healthz, /metrics
//	/auth/*            GitHub sign-in, logout
//	/api/public/*      no session needed
//	/api/repos/* GETs  session optional
//	/api/*             session required
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === Auth ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	sealer, err := auth.NewSealer(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating credential sealer: %w", err)
	}
	authService := service.NewAuthService(s.db, tokens, sealer, s.logger)

	ghOptions := github.Options{BaseURL: cfg.GitHubAPIURL, PageSize: cfg.SyncPageSize}
	connector := service.NewCredentialConnector(authService, func(ctx context.Context, token string) (service.Upstream, error) {
		return github.NewClient(ctx, token, ghOptions, s.logger)
	})
	// Repo reads are open to visitors, who fall back to GitHub's
	// unauthenticated API.
	readConnector := service.WithAnonymous(connector, func(ctx context.Context) (service.Upstream, error) {
		return github.NewPublicClient(ghOptions, s.logger)
	})

	// === Services ===
	syncService := service.NewSyncService(s.db, s.db, connector, cfg.SyncTimeout, s.logger)
	queryService := service.NewQueryService(s.db, s.db, s.logger)
	repoService, err := service.NewRepoService(s.db, s.db, readConnector, cfg.ResolveCacheSize, s.logger)
	if err != nil {
		return err
	}
	listService := service.NewListService(s.db, s.logger)
	membershipService := service.NewMembershipService(s.db, s.db, s.logger)
	collectionService := service.NewCollectionService(s.db, repoService, s.logger)
	socialService := service.NewSocialService(s.db, s.logger)

	// === Handlers ===
	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	starHandler := handler.NewStarHandler(syncService, queryService, s.logger)
	repoHandler := handler.NewRepoHandler(repoService, membershipService, s.logger)
	listHandler := handler.NewListHandler(listService, s.logger)
	collectionHandler := handler.NewCollectionHandler(collectionService, s.logger)
	socialHandler := handler.NewSocialHandler(socialService, s.logger)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === Auth routes ===
	// Without an OAuth app nobody can sign in, but existing sessions and the
	// public routes keep working.
	var authHandler *handler.AuthHandler
	if cfg.OAuthConfigured() {
		provider := auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL, cfg.GitHubAPIURL)
		authHandler = handler.NewAuthHandler(provider, authService, handler.SessionOptions{
			TTL:         int(tokens.TTL().Seconds()),
			Secure:      cfg.SecureCookies(),
			RedirectURL: cfg.FrontendURL,
		}, s.logger)

		s.router.Route("/auth", func(r chi.Router) {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
			r.Post("/logout", authHandler.HandleLogout)
		})
	} else {
		s.logger.Warn("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set, sign-in disabled")
		authHandler = handler.NewAuthHandler(nil, authService, handler.SessionOptions{
			Secure:      cfg.SecureCookies(),
			RedirectURL: cfg.FrontendURL,
		}, s.logger)
		s.router.Post("/auth/logout", authHandler.HandleLogout)
	}

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/public/lists/{slug}", listHandler.HandlePublic)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))

			r.Get("/repos/lookup/{owner}/{name}", repoHandler.HandleLookup)
			r.Get("/repos/{repoID}", repoHandler.HandleGet)
			r.Get("/repos/{repoID}/comments", socialHandler.HandleListComments)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Post("/stars/sync", starHandler.HandleSync)
			r.Get("/stars", starHandler.HandleQuery)

			r.Put("/repos/{repoID}/list", repoHandler.HandleAssignList)
			r.Put("/repos/{repoID}/notes", repoHandler.HandleSetNotes)
			r.Post("/repos/{repoID}/tags", repoHandler.HandleAddTag)
			r.Delete("/repos/{repoID}/tags/{tag}", repoHandler.HandleRemoveTag)
			r.Post("/repos/{repoID}/likes", socialHandler.HandleToggleLike)
			r.Post("/repos/{repoID}/comments", socialHandler.HandleAddComment)

			r.Delete("/comments/{commentID}", socialHandler.HandleDeleteComment)
			r.Post("/comments/{commentID}/vote", socialHandler.HandleVote)

			r.Get("/lists", listHandler.HandleList)
			r.Post("/lists", listHandler.HandleCreate)
			r.Put("/lists/order", listHandler.HandleReorder)
			r.Patch("/lists/{listID}", listHandler.HandleUpdate)
			r.Delete("/lists/{listID}", listHandler.HandleDelete)
			r.Post("/lists/{listID}/share", listHandler.HandleToggleShare)

			r.Get("/collections", collectionHandler.HandleList)
			r.Post("/collections", collectionHandler.HandleCreate)
			r.Get("/collections/{slug}", collectionHandler.HandleGet)
			r.Delete("/collections/{slug}", collectionHandler.HandleDelete)
			r.Get("/collections/{slug}/repos", collectionHandler.HandleRepos)
			r.Post("/collections/{slug}/repos", collectionHandler.HandleAddRepo)
			r.Delete("/collections/{slug}/repos/{repoID}", collectionHandler.HandleRemoveRepo)
		})
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A sync pass may legitimately run up to SyncTimeout.
		WriteTimeout: s.config.SyncTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
