package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"xorm.io/builder"

	"github.com/sakif/starshelf/internal/apperror"
	"github.com/sakif/starshelf/internal/model"
	"github.com/sakif/starshelf/internal/repository"
)

var _ repository.StarQueryStore = (*DB)(nil)

// orderClauses maps a sort key to its ORDER BY. Every key ends with r.id so
// pages are deterministic when the primary key ties.
var orderClauses = map[string]string{
	model.SortStarred: "ur.starred_at DESC, r.id DESC",
	model.SortStars:   "r.stargazers_count DESC, r.id DESC",
	model.SortUpdated: "r.repo_updated_at DESC, r.id DESC",
	model.SortName:    "r.name COLLATE NOCASE ASC, r.id ASC",
}

// starFilter assembles the WHERE clause of the faceted query.
//
// Each active filter adds one predicate (with its bound parameters) to the
// condition; builder joins them with AND. User input never reaches the SQL
// text, only the parameter list.
func starFilter(userID string, q model.StarQuery) (builder.Cond, error) {
	cond := builder.NewCond().And(builder.Eq{"ur.user_id": userID})

	// LIKE only folds ASCII, so both sides go through fold() first.
	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + escapeLike(foldText(text)) + "%"
		cond = cond.And(builder.Or(
			builder.Expr(`fold(r.name) LIKE ? ESCAPE '\'`, pattern),
			builder.Expr(`fold(r.full_name) LIKE ? ESCAPE '\'`, pattern),
			builder.Expr(`fold(r.description) LIKE ? ESCAPE '\'`, pattern),
		))
	}

	if len(q.Languages) > 0 {
		langs := make([]any, len(q.Languages))
		for i, l := range q.Languages {
			langs[i] = l
		}
		cond = cond.And(builder.In("r.language", langs...))
	}

	switch q.List {
	case "":
	case model.ListNone:
		cond = cond.And(builder.IsNull{"ur.list_id"})
	default:
		listID, err := strconv.ParseInt(q.List, 10, 64)
		if err != nil {
			return nil, apperror.ValidationFailed("list", "list must be a list id or \"none\"")
		}
		cond = cond.And(builder.Eq{"ur.list_id": listID})
	}

	if q.Tag != "" {
		cond = cond.And(builder.Expr(
			`EXISTS (SELECT 1 FROM json_each(ur.tags) WHERE json_each.value = ?)`, q.Tag))
	}

	if m := q.CategoryMatch; m != nil && len(m.Keywords) > 0 {
		match := keywordCond(m.Keywords)
		if m.Exclude {
			cond = cond.And(builder.Not{match})
		} else {
			cond = cond.And(match)
		}
	}

	return cond, nil
}

// categoryText is the folded text a category keyword is searched in:
// name, description and topics separated by spaces.
const categoryText = `fold(r.name || ' ' || COALESCE(r.description, '') || ' ' ||
	COALESCE((SELECT group_concat(t.value, ' ') FROM json_each(r.topics) t), ''))`

// keywordCond matches repos whose categoryText contains any keyword.
func keywordCond(keywords []string) builder.Cond {
	conds := make([]builder.Cond, len(keywords))
	for i, k := range keywords {
		conds[i] = builder.Expr(`instr(`+categoryText+`, ?) > 0`, foldText(k))
	}
	return builder.Or(conds...)
}

// escapeLike makes %, _ and \ match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// QueryStars returns one page of the user's starred repos matching q, and the
// total number of matches ignoring pagination. q must already be normalized.
func (db *DB) QueryStars(ctx context.Context, userID string, q model.StarQuery) ([]model.StarredRepo, int, error) {
	cond, err := starFilter(userID, q)
	if err != nil {
		return nil, 0, err
	}

	order, ok := orderClauses[q.Sort]
	if !ok {
		order = orderClauses[model.SortStarred]
	}

	countSQL, countArgs, err := builder.Dialect(builder.SQLITE).
		Select("COUNT(*)").
		From("user_repos", "ur").
		InnerJoin("repos r", "r.id = ur.repo_id").
		Where(cond).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building star count query: %w", err)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting stars for %s: %w", userID, err)
	}

	pageSQL, pageArgs, err := builder.Dialect(builder.SQLITE).
		Select(repoColumns, "ur.list_id", "ur.tags", "ur.notes", "ur.starred_at").
		From("user_repos", "ur").
		InnerJoin("repos r", "r.id = ur.repo_id").
		Where(cond).
		OrderBy(order).
		Limit(q.Limit, q.Offset).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building star page query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: querying stars for %s: %w", userID, err)
	}
	defer rows.Close()

	repos := make([]model.StarredRepo, 0, q.Limit)
	for rows.Next() {
		var (
			sr     model.StarredRepo
			listID sql.NullInt64
			tags   string
			notes  sql.NullString
		)
		repo, err := scanRepo(rows, &listID, &tags, &notes, &sr.StarredAt)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning starred repo: %w", err)
		}
		sr.Repo = *repo
		sr.ListID = int64Ptr(listID)
		sr.Notes = stringPtr(notes)
		if sr.Tags, err = decodeStrings(tags); err != nil {
			return nil, 0, fmt.Errorf("sqlite: repo %d tags: %w", repo.ID, err)
		}
		repos = append(repos, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating stars: %w", err)
	}

	return repos, total, nil
}

// LanguageFacets counts the user's starred repos per non-empty language.
func (db *DB) LanguageFacets(ctx context.Context, userID string) ([]model.LanguageFacet, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.language, COUNT(*) AS n
		FROM user_repos ur
		JOIN repos r ON r.id = ur.repo_id
		WHERE ur.user_id = ? AND r.language IS NOT NULL AND r.language != ''
		GROUP BY r.language
		ORDER BY n DESC, r.language ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: language facets for %s: %w", userID, err)
	}
	defer rows.Close()

	facets := []model.LanguageFacet{}
	for rows.Next() {
		var f model.LanguageFacet
		if err := rows.Scan(&f.Language, &f.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning language facet: %w", err)
		}
		facets = append(facets, f)
	}
	return facets, rows.Err()
}

// ListFacets returns every list the user owns, in manual order, with the
// number of repos assigned to it (zero included).
func (db *DB) ListFacets(ctx context.Context, userID string) ([]model.ListFacet, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT l.id, l.name, l.color, l.icon, COUNT(ur.repo_id) AS n
		FROM user_lists l
		LEFT JOIN user_repos ur ON ur.list_id = l.id AND ur.user_id = l.user_id
		WHERE l.user_id = ?
		GROUP BY l.id
		ORDER BY l.position ASC, l.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list facets for %s: %w", userID, err)
	}
	defer rows.Close()

	facets := []model.ListFacet{}
	for rows.Next() {
		var (
			f    model.ListFacet
			icon sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.Color, &icon, &f.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list facet: %w", err)
		}
		f.Icon = stringPtr(icon)
		facets = append(facets, f)
	}
	return facets, rows.Err()
}

// TagFacets counts each distinct tag across the user's memberships. Tags are
// stored as JSON arrays, so json_each expands them into rows for GROUP BY.
func (db *DB) TagFacets(ctx context.Context, userID string) ([]model.TagFacet, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.value, COUNT(*) AS n
		FROM user_repos ur, json_each(ur.tags) t
		WHERE ur.user_id = ?
		GROUP BY t.value
		ORDER BY n DESC, t.value ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tag facets for %s: %w", userID, err)
	}
	defer rows.Close()

	facets := []model.TagFacet{}
	for rows.Next() {
		var f model.TagFacet
		if err := rows.Scan(&f.Tag, &f.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag facet: %w", err)
		}
		facets = append(facets, f)
	}
	return facets, rows.Err()
}

// CategoryFacets counts the user's starred repos per category, in the order
// given, followed by an "uncategorized" entry for repos matching none.
func (db *DB) CategoryFacets(ctx context.Context, userID string, categories []model.Category) ([]model.CategoryFacet, error) {
	if len(categories) == 0 {
		return []model.CategoryFacet{}, nil
	}

	var (
		cols    = make([]string, 0, len(categories)+1)
		args    []any
		matches = make([]builder.Cond, 0, len(categories))
	)
	addCount := func(cond builder.Cond) error {
		sqlStr, condArgs, err := builder.ToSQL(cond)
		if err != nil {
			return err
		}
		cols = append(cols, "COALESCE(SUM(CASE WHEN ("+sqlStr+") THEN 1 ELSE 0 END), 0)")
		args = append(args, condArgs...)
		return nil
	}
	for _, c := range categories {
		match := keywordCond(c.Keywords)
		matches = append(matches, match)
		if err := addCount(match); err != nil {
			return nil, fmt.Errorf("sqlite: building category %s facet: %w", c.Slug, err)
		}
	}
	if err := addCount(builder.Not{builder.Or(matches...)}); err != nil {
		return nil, fmt.Errorf("sqlite: building uncategorized facet: %w", err)
	}
	args = append(args, userID)

	query := `SELECT ` + strings.Join(cols, ", ") + `
		FROM user_repos ur
		JOIN repos r ON r.id = ur.repo_id
		WHERE ur.user_id = ?`

	counts := make([]int, len(cols))
	dest := make([]any, len(cols))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("sqlite: category facets for %s: %w", userID, err)
	}

	facets := make([]model.CategoryFacet, 0, len(cols))
	for i, c := range categories {
		facets = append(facets, model.CategoryFacet{Slug: c.Slug, Name: c.Name, Count: counts[i]})
	}
	facets = append(facets, model.CategoryFacet{
		Slug:  model.CategoryUncategorized,
		Name:  "Uncategorized",
		Count: counts[len(categories)],
	})
	return facets, nil
}
