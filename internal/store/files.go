package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rcliao/mem/internal/model"
)

const fileColumns = `f.id, f.source_path, f.project_path, f.project_name, f.title, f.content,
	f.indexed_at, f.file_mtime_secs`

// UpsertIndexedFile inserts or replaces the row for f.SourcePath. The row id is kept
// stable across replacements. This is the only write path for indexed_files content.
func (s *SQLiteStore) UpsertIndexedFile(ctx context.Context, f model.IndexedFile) (*model.IndexedFile, error) {
	if !filepath.IsAbs(f.SourcePath) {
		return nil, fmt.Errorf("%w: source path must be absolute: %q", ErrInvalidInput, f.SourcePath)
	}
	if strings.TrimSpace(f.ProjectName) == "" {
		return nil, fmt.Errorf("%w: project name must not be blank", ErrInvalidInput)
	}
	if strings.TrimSpace(f.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
	}

	f.ID = s.newID()
	f.IndexedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO indexed_files (id, source_path, project_path, project_name, title, content, indexed_at, file_mtime_secs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET
			project_path = excluded.project_path,
			project_name = excluded.project_name,
			title = excluded.title,
			content = excluded.content,
			indexed_at = excluded.indexed_at,
			file_mtime_secs = excluded.file_mtime_secs`,
		f.ID, f.SourcePath, nullString(f.ProjectPath), f.ProjectName, f.Title, f.Content,
		formatTime(f.IndexedAt), f.FileMtimeSecs)
	if err != nil {
		return nil, fmt.Errorf("upsert indexed file: %w", err)
	}

	return s.GetIndexedFileByPath(ctx, f.SourcePath)
}

// GetIndexedFile returns an indexed file by id.
func (s *SQLiteStore) GetIndexedFile(ctx context.Context, id string) (*model.IndexedFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM indexed_files f WHERE f.id = ?`, id)
	return s.scanOneFile(row, id)
}

// GetIndexedFileByPath returns the indexed file for a source path.
func (s *SQLiteStore) GetIndexedFileByPath(ctx context.Context, sourcePath string) (*model.IndexedFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM indexed_files f WHERE f.source_path = ?`, sourcePath)
	return s.scanOneFile(row, sourcePath)
}

func (s *SQLiteStore) scanOneFile(row scanner, key string) (*model.IndexedFile, error) {
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: indexed file %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, s.rowError("indexed_file", key, err)
	}
	return &f, nil
}

// ListIndexedFiles returns indexed files whose source path is under root, or all
// files when root is empty.
func (s *SQLiteStore) ListIndexedFiles(ctx context.Context, root string) ([]model.IndexedFile, error) {
	query := `SELECT ` + fileColumns + ` FROM indexed_files f`
	var args []interface{}
	if root != "" {
		prefix := rootPrefix(root)
		query += ` WHERE substr(f.source_path, 1, length(?)) = ?`
		args = append(args, prefix, prefix)
	}
	query += ` ORDER BY f.source_path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.IndexedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, s.rowError("indexed_file", f.ID, err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileStamp is the change-detection state of one indexed file.
type FileStamp struct {
	ID        string
	MtimeSecs int64
}

// IndexedFileStamps returns source_path -> stamp for every indexed file under root.
// Content is not loaded.
func (s *SQLiteStore) IndexedFileStamps(ctx context.Context, root string) (map[string]FileStamp, error) {
	query := `SELECT id, source_path, file_mtime_secs FROM indexed_files`
	var args []interface{}
	if root != "" {
		prefix := rootPrefix(root)
		query += ` WHERE substr(source_path, 1, length(?)) = ?`
		args = append(args, prefix, prefix)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stamps := map[string]FileStamp{}
	for rows.Next() {
		var path string
		var st FileStamp
		if err := rows.Scan(&st.ID, &path, &st.MtimeSecs); err != nil {
			return nil, err
		}
		stamps[path] = st
	}
	return stamps, rows.Err()
}

// DeleteIndexedFiles removes the given rows in one transaction and returns how many
// were deleted.
func (s *SQLiteStore) DeleteIndexedFiles(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM indexed_files WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	deleted := 0
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("delete indexed file %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountIndexedFiles returns the number of indexed files.
func (s *SQLiteStore) CountIndexedFiles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indexed_files`).Scan(&n)
	return n, err
}

// rootPrefix returns root with exactly one trailing separator, so "/a/b" does not
// match "/a/bc/x".
func rootPrefix(root string) string {
	return strings.TrimSuffix(filepath.Clean(root), string(filepath.Separator)) + string(filepath.Separator)
}

func scanFile(row scanner) (model.IndexedFile, error) {
	var f model.IndexedFile
	var projectPath sql.NullString
	var indexedAt string

	err := row.Scan(&f.ID, &f.SourcePath, &projectPath, &f.ProjectName, &f.Title, &f.Content,
		&indexedAt, &f.FileMtimeSecs)
	if err != nil {
		return f, err
	}
	f.ProjectPath = projectPath.String
	if f.IndexedAt, err = parseTime(indexedAt); err != nil {
		return f, fmt.Errorf("%w: indexed_at %q: %w", ErrCorrupt, indexedAt, err)
	}
	return f, nil
}
