package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/mem/internal/model"
)

// ExportAll returns all memories, optionally filtered by project, oldest first.
func (s *SQLiteStore) ExportAll(ctx context.Context, project string) ([]model.Memory, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if project != "" {
		where = append(where, "m.project = ?")
		args = append(args, project)
	}

	query := `SELECT ` + memoryColumns + ` FROM memories m WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY m.created_at, m.id`
	return s.queryMemories(ctx, query, args...)
}

// ImportOptions controls Import.
type ImportOptions struct {
	// KeepAuto keeps the reserved auto type. Otherwise auto memories are stored as manual.
	KeepAuto bool
}

// Import stores memories from an export. Each memory goes through the regular
// validated write path and receives a new id; status, scope and created_at are kept,
// and so is the type except as ImportOptions says. Import stops at the first invalid
// memory and reports how many were stored before it.
func (s *SQLiteStore) Import(ctx context.Context, memories []model.Memory, opts ImportOptions) (int, error) {
	imported := 0
	for i, m := range memories {
		typ, err := model.ParseType(string(m.Type))
		if err != nil {
			return imported, fmt.Errorf("memory %d: %w: %w", i, ErrInvalidInput, err)
		}
		if typ == model.TypeAuto && !opts.KeepAuto {
			typ = model.TypeManual
		}
		_, err = s.insertMemory(ctx, SaveParams{
			Title:     m.Title,
			Content:   m.Content,
			Type:      typ,
			Project:   m.Project,
			SessionID: m.SessionID,
			Diff:      m.Diff,
			Status:    m.Status,
			Scope:     m.Scope,
			CreatedAt: m.CreatedAt,
		})
		if err != nil {
			return imported, fmt.Errorf("memory %d: %w", i, err)
		}
		imported++
	}
	return imported, nil
}
