package store

import (
	"context"
	"fmt"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string         `json:"db_path"`
	DBSizeBytes    int64          `json:"db_size_bytes"`
	SchemaVersion  int            `json:"schema_version"`
	TotalMemories  int            `json:"total_memories"`
	ActiveMemories int            `json:"active_memories"`
	ColdMemories   int            `json:"cold_memories"`
	GlobalMemories int            `json:"global_memories"`
	Sessions       int            `json:"sessions"`
	Projects       int            `json:"projects"`
	IndexedFiles   int            `json:"indexed_files"`
	ByProject      []ProjectStats `json:"by_project"`
}

// ProjectStats holds per-project counts.
type ProjectStats struct {
	Project string `json:"project"`
	Count   int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path, ByProject: []ProjectStats{}}

	// Page arithmetic instead of os.Stat so WAL-resident pages are not ignored.
	err := s.db.QueryRowContext(ctx,
		`SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`).Scan(&st.DBSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("read db size: %w", err)
	}

	if st.SchemaVersion, err = s.SchemaVersion(ctx); err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	counts := []struct {
		dest  *int
		query string
	}{
		{&st.TotalMemories, `SELECT COUNT(*) FROM memories`},
		{&st.ActiveMemories, `SELECT COUNT(*) FROM memories WHERE status = 'active'`},
		{&st.ColdMemories, `SELECT COUNT(*) FROM memories WHERE status = 'cold'`},
		{&st.GlobalMemories, `SELECT COUNT(*) FROM memories WHERE scope = 'global'`},
		{&st.Sessions, `SELECT COUNT(*) FROM sessions`},
		{&st.Projects, `SELECT COUNT(DISTINCT project) FROM memories WHERE project IS NOT NULL`},
		{&st.IndexedFiles, `SELECT COUNT(*) FROM indexed_files`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT project, COUNT(*) AS cnt
		FROM memories WHERE project IS NOT NULL
		GROUP BY project ORDER BY cnt DESC, project`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ps ProjectStats
		if err := rows.Scan(&ps.Project, &ps.Count); err != nil {
			return nil, err
		}
		st.ByProject = append(st.ByProject, ps)
	}

	return st, rows.Err()
}
