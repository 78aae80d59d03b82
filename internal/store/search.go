package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/mem/internal/model"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 200
)

// Kind selects which source a search reads.
type Kind string

const (
	KindAll    Kind = ""
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
)

// Origin tags where a search result came from.
type Origin string

const (
	OriginMemory      Origin = "memory"
	OriginIndexedFile Origin = "indexed_file"
)

// SearchParams holds parameters for searching.
type SearchParams struct {
	Query       string
	Kind        Kind
	Project     string
	Limit       int
	IncludeCold bool
}

// SearchResult is one ranked hit. Exactly one of Memory and File is set.
type SearchResult struct {
	Origin Origin             `json:"origin"`
	Memory *model.Memory      `json:"memory,omitempty"`
	File   *model.IndexedFile `json:"indexed_file,omitempty"`
	Rank   float64            `json:"rank"`
}

func (r SearchResult) recency() time.Time {
	if r.Memory != nil {
		return r.Memory.CreatedAt
	}
	if r.File != nil {
		return r.File.IndexedAt
	}
	return time.Time{}
}

func (r SearchResult) id() string {
	if r.Memory != nil {
		return r.Memory.ID
	}
	if r.File != nil {
		return r.File.ID
	}
	return ""
}

// EscapeQuery turns free text into a single FTS5 phrase so operators, column filters
// and quotes in the input are matched literally.
func EscapeQuery(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// Search runs a ranked full-text query. With KindAll both sources are queried
// independently, each capped at the limit, then merged and truncated.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, fmt.Errorf("%w: query must not be blank", ErrInvalidInput)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	match := EscapeQuery(p.Query)

	switch p.Kind {
	case KindMemory:
		return s.searchMemories(ctx, match, p.Project, p.IncludeCold, limit)
	case KindFile:
		return s.searchFiles(ctx, match, p.Project, limit)
	case KindAll:
	default:
		return nil, fmt.Errorf("%w: search kind %q (valid: memory, file)", ErrInvalidInput, p.Kind)
	}

	memories, err := s.searchMemories(ctx, match, p.Project, p.IncludeCold, limit)
	if err != nil {
		return nil, err
	}
	files, err := s.searchFiles(ctx, match, p.Project, limit)
	if err != nil {
		return nil, err
	}

	results := append(memories, files...)
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// sortResults orders by rank descending, then newest first, then id descending.
func sortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		ta, tb := a.recency(), b.recency()
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.id() > b.id()
	})
}

func (s *SQLiteStore) searchMemories(ctx context.Context, match, project string, includeCold bool, limit int) ([]SearchResult, error) {
	where := []string{"memories_fts MATCH ?"}
	args := []interface{}{match}

	if !includeCold {
		where = append(where, "m.status = ?")
		args = append(args, string(model.StatusActive))
	}
	if project != "" {
		where = append(where, "(m.project = ? OR m.scope = ?)")
		args = append(args, project, string(model.ScopeGlobal))
	}

	query := fmt.Sprintf(`
		SELECT %s, -bm25(memories_fts) AS score
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE %s
		ORDER BY score DESC, m.created_at DESC, m.id DESC
		LIMIT ?`, memoryColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var rank float64
		m, err := scanMemory(rankScanner{row: rows, rank: &rank})
		if err != nil {
			return nil, s.rowError("memory", m.ID, err)
		}
		results = append(results, SearchResult{Origin: OriginMemory, Memory: &m, Rank: rank})
	}
	return results, rows.Err()
}

func (s *SQLiteStore) searchFiles(ctx context.Context, match, project string, limit int) ([]SearchResult, error) {
	where := []string{"indexed_files_fts MATCH ?"}
	args := []interface{}{match}

	if project != "" {
		where = append(where, "f.project_path = ?")
		args = append(args, project)
	}

	query := fmt.Sprintf(`
		SELECT %s, -bm25(indexed_files_fts) AS score
		FROM indexed_files_fts
		JOIN indexed_files f ON f.rowid = indexed_files_fts.rowid
		WHERE %s
		ORDER BY score DESC, f.indexed_at DESC, f.id DESC
		LIMIT ?`, fileColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search indexed files: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var rank float64
		f, err := scanFile(rankScanner{row: rows, rank: &rank})
		if err != nil {
			return nil, s.rowError("indexed_file", f.ID, err)
		}
		results = append(results, SearchResult{Origin: OriginIndexedFile, File: &f, Rank: rank})
	}
	return results, rows.Err()
}

// rankScanner appends the trailing score column to an entity scan.
type rankScanner struct {
	row  scanner
	rank *float64
}

func (r rankScanner) Scan(dest ...interface{}) error {
	return r.row.Scan(append(dest, r.rank)...)
}
