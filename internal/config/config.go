// Package config loads runtime settings from the environment.
//
// An optional .env file is read first (github.com/joho/godotenv); variables
// already set in the real environment win over it. Every setting has a typed
// default except JWT_SECRET, which Validate requires.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   int
	DBPath string

	JWTSecret  string
	SessionTTL time.Duration

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	GitHubAPIURL       string // empty means api.github.com

	SyncTimeout      time.Duration
	SyncPageSize     int
	ResolveCacheSize int

	LogLevel    slog.Level
	LogFile     string
	FrontendURL string
}

// Load reads the given .env files (default ".env"; missing files are
// skipped) and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", f, err)
		}
	}

	cfg := &Config{
		DBPath:             getString("DB_PATH", "data/stars.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubAPIURL:       os.Getenv("GITHUB_API_URL"),
		LogFile:            os.Getenv("LOG_FILE"),
		FrontendURL:        getString("FRONTEND_URL", "/"),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 168*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SyncTimeout, err = getDuration("SYNC_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncPageSize, err = getInt("SYNC_PAGE_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.ResolveCacheSize, err = getInt("RESOLVE_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLevel(getString("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	cfg.GitHubCallbackURL = getString("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port))

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SyncTimeout <= 0 {
		errs = append(errs, errors.New("SYNC_TIMEOUT must be positive"))
	}
	if c.SyncPageSize <= 0 || c.SyncPageSize > 100 {
		errs = append(errs, fmt.Errorf("SYNC_PAGE_SIZE %d must be in 1..100", c.SyncPageSize))
	}
	if c.ResolveCacheSize <= 0 {
		errs = append(errs, errors.New("RESOLVE_CACHE_SIZE must be positive"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	return errors.Join(errs...)
}

// OAuthConfigured reports whether GitHub sign-in can be offered.
func (c *Config) OAuthConfigured() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// SecureCookies is true when the public callback is served over HTTPS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.GitHubCallbackURL, "https://")
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration", key, v)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL=%q: %w", s, err)
	}
	return level, nil
}
