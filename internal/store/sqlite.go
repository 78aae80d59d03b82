package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/rcliao/mem/internal/model"
)

// timeLayout is fixed-width so stored timestamps sort lexically. Times are always UTC.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy

	// now is replaceable in tests.
	now func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for corrupt-row and migration messages.
func WithLogger(l zerolog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// WithClock overrides the clock used for timestamps and decay.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore opens or creates a SQLite database at the given path and applies
// any pending schema change sets.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("%w: empty db path", ErrInvalidInput)
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)" +
		"&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		logger:  zerolog.Nop(),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if err := migrate(context.Background(), db, s.logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *SQLiteStore) timestamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		// Rows written by older versions used plain RFC3339.
		t, err = time.Parse(time.RFC3339Nano, v)
	}
	return t, err
}

// SaveMemory validates and stores a memory from an untrusted caller. The reserved
// "auto" type is rejected.
func (s *SQLiteStore) SaveMemory(ctx context.Context, p SaveParams) (*model.Memory, error) {
	typ, err := model.ParseUserType(string(p.Type))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	p.Type = typ
	return s.insertMemory(ctx, p)
}

// CaptureMemory stores an automatically captured memory. Only trusted code paths call it.
func (s *SQLiteStore) CaptureMemory(ctx context.Context, p SaveParams) (*model.Memory, error) {
	p.Type = model.TypeAuto
	return s.insertMemory(ctx, p)
}

// insertMemory is the single write path for new memory rows.
func (s *SQLiteStore) insertMemory(ctx context.Context, p SaveParams) (*model.Memory, error) {
	if err := validateMemoryText(p.Title, p.Content); err != nil {
		return nil, err
	}
	if !model.ValidTypes[p.Type] {
		return nil, fmt.Errorf("%w: memory type %q", ErrInvalidInput, p.Type)
	}

	status := p.Status
	if status == "" {
		status = model.StatusActive
	}
	if _, err := model.ParseStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	scope := p.Scope
	if scope == "" {
		scope = model.ScopeProject
	}
	if _, err := model.ParseScope(string(scope)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	createdAt := s.now().UTC()
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt.UTC()
	}

	mem := &model.Memory{
		ID:        s.newID(),
		SessionID: p.SessionID,
		Project:   p.Project,
		Title:     strings.TrimSpace(p.Title),
		Type:      p.Type,
		Content:   p.Content,
		Diff:      p.Diff,
		CreatedAt: createdAt,
		Status:    status,
		Scope:     scope,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, session_id, project, title, type, content, diff, created_at, access_count, status, scope)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		mem.ID, nullString(mem.SessionID), nullString(mem.Project), mem.Title, string(mem.Type),
		mem.Content, nullString(mem.Diff), formatTime(mem.CreatedAt), string(mem.Status), string(mem.Scope))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	return mem, nil
}

// UpdateMemory rewrites the title, content and type of a memory. The FTS triggers keep
// the index in step with the row.
func (s *SQLiteStore) UpdateMemory(ctx context.Context, p UpdateParams) (*model.Memory, error) {
	cur, err := s.GetMemory(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	title, content, typ := cur.Title, cur.Content, cur.Type
	if p.Title != nil {
		title = *p.Title
	}
	if p.Content != nil {
		content = *p.Content
	}
	if p.Type != nil {
		t, err := model.ParseUserType(string(*p.Type))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		typ = t
	}
	if err := validateMemoryText(title, content); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE memories SET title = ?, content = ?, type = ? WHERE id = ?`,
		strings.TrimSpace(title), content, string(typ), p.ID)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	return s.GetMemory(ctx, p.ID)
}

const memoryColumns = `m.id, m.session_id, m.project, m.title, m.type, m.content, m.diff,
	m.created_at, m.access_count, m.last_accessed_at, m.status, m.scope`

// GetMemory returns a memory by id without touching access counters.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories m WHERE m.id = ?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, s.rowError("memory", id, err)
	}
	return &m, nil
}

// AccessMemory returns a memory and records the read in its access counters.
func (s *SQLiteStore) AccessMemory(ctx context.Context, id string) (*model.Memory, error) {
	n, err := s.TouchMemories(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	return s.GetMemory(ctx, id)
}

// TouchMemories increments access_count and sets last_accessed_at for every id in one
// transaction. Returns the number of rows updated.
func (s *SQLiteStore) TouchMemories(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	touched := 0
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, now, id)
		if err != nil {
			return 0, fmt.Errorf("touch memory %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		touched += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return touched, nil
}

// ListMemories lists memories matching the given filters, newest first.
func (s *SQLiteStore) ListMemories(ctx context.Context, p ListParams) ([]model.Memory, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	args := []interface{}{}

	if p.Project != "" {
		where = append(where, "m.project = ?")
		args = append(args, p.Project)
	}
	if p.Scope != "" {
		if _, err := model.ParseScope(string(p.Scope)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		where = append(where, "m.scope = ?")
		args = append(args, string(p.Scope))
	}
	if p.Status != "" {
		if _, err := model.ParseStatus(string(p.Status)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		where = append(where, "m.status = ?")
		args = append(args, string(p.Status))
	}
	if p.Type != "" {
		if _, err := model.ParseType(string(p.Type)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		where = append(where, "m.type = ?")
		args = append(args, string(p.Type))
	}

	query := fmt.Sprintf(`SELECT %s FROM memories m WHERE %s
		ORDER BY m.created_at DESC, m.id DESC LIMIT ?`, memoryColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	return s.queryMemories(ctx, query, args...)
}

// RecentAuto returns the most recent auto-captured memories.
func (s *SQLiteStore) RecentAuto(ctx context.Context, limit int) ([]model.Memory, error) {
	return s.ListMemories(ctx, ListParams{Type: model.TypeAuto, Limit: limit})
}

// DeleteMemory permanently removes a memory. This cannot be undone.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...interface{}) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, s.rowError("memory", m.ID, err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// rowError logs and wraps errors that mean a row could not be decoded. Such rows are
// never reported as missing.
func (s *SQLiteStore) rowError(kind, id string, err error) error {
	if errors.Is(err, ErrCorrupt) {
		s.logger.Error().Err(err).Str("kind", kind).Str("id", id).Msg("Unreadable row")
	}
	return err
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func validateMemoryText(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content must not be blank", ErrInvalidInput)
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var sessionID, project, diff, lastAccessed sql.NullString
	var typ, status, scope, createdAt string

	err := row.Scan(
		&m.ID, &sessionID, &project, &m.Title, &typ, &m.Content, &diff,
		&createdAt, &m.AccessCount, &lastAccessed, &status, &scope,
	)
	if err != nil {
		return m, err
	}

	m.SessionID = sessionID.String
	m.Project = project.String
	m.Diff = diff.String

	if m.Type, err = model.ParseType(typ); err != nil {
		return m, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if m.Status, err = model.ParseStatus(status); err != nil {
		return m, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if m.Scope, err = model.ParseScope(scope); err != nil {
		return m, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return m, fmt.Errorf("%w: created_at %q: %w", ErrCorrupt, createdAt, err)
	}
	if lastAccessed.Valid {
		t, err := parseTime(lastAccessed.String)
		if err != nil {
			return m, fmt.Errorf("%w: last_accessed_at %q: %w", ErrCorrupt, lastAccessed.String, err)
		}
		m.LastAccessedAt = &t
	}

	return m, nil
}
