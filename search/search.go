package search

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/polyquery/polyquery/database"
	"github.com/polyquery/polyquery/files"
	"github.com/polyquery/polyquery/rest"
)

// sqlRowLimit caps the relational sub-search.
const sqlRowLimit = 200

// Searcher fans one predicate out over the three backends and merges the
// results. The three sub-searches run sequentially on purpose: small
// deployments should not see a fan-out of concurrent load from one query.
type Searcher struct {
	db        *database.Database
	pool      *rest.Pool
	apiBase   string
	apiKey    string
	filePaths []string
	logger    *zap.Logger
}

func NewSearcher(db *database.Database, pool *rest.Pool, apiBase, apiKey string, filePaths []string, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		db:        db,
		pool:      pool,
		apiBase:   apiBase,
		apiKey:    apiKey,
		filePaths: filePaths,
		logger:    logger,
	}
}

// SearchUsers parses the query once and runs it against the sql, api and
// file backends in that order. Output order is store order, then response
// order, then per-file order; deduplication keeps the first-seen row.
func (s *Searcher) SearchUsers(ctx context.Context, query string) ([]map[string]any, error) {
	dnf := Parse(query)

	rows := s.searchSQL(ctx, dnf)
	rows = append(rows, s.searchAPI(ctx, dnf)...)
	rows = append(rows, s.searchFiles(dnf)...)

	return MergeRows(rows), nil
}

func (s *Searcher) searchSQL(ctx context.Context, dnf DNF) []map[string]any {
	where := Compile(dnf)
	query := "SELECT id, name, email, region, signup_date FROM users WHERE " + where.Condition

	res, err := s.db.ExecuteSelect(ctx, query, where.Args, sqlRowLimit)
	if err != nil {
		s.logger.Warn("sql sub-search failed", zap.Error(err))
		return nil
	}

	for _, row := range res.Rows {
		row[sourceKey] = "sql"
	}
	return res.Rows
}

func (s *Searcher) searchAPI(ctx context.Context, dnf DNF) []map[string]any {
	client := s.pool.Client(s.apiBase, rest.Credentials{APIKey: s.apiKey})

	// The REST service only filters per-field exact matches, so the DNF is
	// evaluated locally against the full listing.
	data, err := client.Get(ctx, "/users", nil, true)
	if err != nil {
		s.logger.Warn("api sub-search failed", zap.Error(err))
		return nil
	}

	list, ok := data.([]any)
	if !ok {
		return nil
	}

	var rows []map[string]any
	for _, item := range list {
		row, ok := item.(map[string]any)
		if !ok || !RowMatches(row, dnf) {
			continue
		}
		row[sourceKey] = "api"
		rows = append(rows, row)
	}
	return rows
}

func (s *Searcher) searchFiles(dnf DNF) []map[string]any {
	var out []map[string]any
	for _, path := range s.filePaths {
		rows, err := files.ReadUsers(path)
		if err != nil {
			s.logger.Warn("file sub-search failed", zap.String("path", path), zap.Error(err))
			continue
		}
		tag := "file:" + filepath.Base(path)
		for _, row := range rows {
			if !RowMatches(row, dnf) {
				continue
			}
			row[sourceKey] = tag
			out = append(out, row)
		}
	}
	return out
}
