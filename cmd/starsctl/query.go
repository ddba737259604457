package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/service"
)

var (
	queryUser string
	queryOpts model.StarQuery
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print a user's faceted star query as JSON",
	Example: `  starsctl query --user u1 --q cli --language Go --language Rust --sort stars
  starsctl query --user u1 --list none --limit 10
  starsctl query --user u1 --category devops`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryUser == "" {
			return errors.New("--user is required")
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

		querier := service.NewQueryService(db, db, cliLogger())
		page, err := querier.Query(cmd.Context(), queryUser, queryOpts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryUser, "user", "", "user ID to query")
	f.StringVar(&queryOpts.Text, "q", "", "free-text search over name and description")
	f.StringSliceVar(&queryOpts.Languages, "language", nil, "primary language (repeatable)")
	f.StringVar(&queryOpts.List, "list", "", `list ID, or "none" for unassigned repos`)
	f.StringVar(&queryOpts.Tag, "tag", "", "tag filter")
	f.StringVar(&queryOpts.Category, "category", "", `category slug such as "devops", or "uncategorized"`)
	f.StringVar(&queryOpts.Sort, "sort", "", "starred, updated, stars or name")
	f.IntVar(&queryOpts.Limit, "limit", 0, "page size (default 50, max 200)")
	f.IntVar(&queryOpts.Offset, "offset", 0, "rows to skip")
}
