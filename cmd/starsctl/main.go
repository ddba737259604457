// Command starsctl is the operator CLI for a starshelf database.
//
//	starsctl migrate                       create or upgrade the schema
//	starsctl sync  --user ID [--token T]   run one sync pass for a user
//	starsctl query --user ID [filters]     print a faceted query as JSON
//
// Settings are read the same way as the server (environment or .env);
// --db overrides DB_PATH.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/starshelf/internal/config"
	sqliteRepo "github.com/sakif/starshelf/internal/repository/sqlite"
)

var (
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "starsctl",
	Short:         "Maintain a starshelf database from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: DB_PATH or data/stars.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level to stderr")

	rootCmd.AddCommand(migrateCmd, syncCmd, queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*sqliteRepo.DB, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.DBPath, err)
	}
	return db, nil
}

// cliLogger stays quiet unless --verbose is set.
func cliLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
