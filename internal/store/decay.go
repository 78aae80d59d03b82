package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rcliao/mem/internal/model"
)

const (
	// DefaultDecayThreshold is the retention below which memories go cold.
	DefaultDecayThreshold = 0.1

	// decayRate is the per-day retention penalty.
	decayRate = 0.05
)

// Retention scores how fresh a memory is: (accessCount + 1) / (1 + days * 0.05),
// where days is the fractional age since creation.
func Retention(accessCount int, createdAt, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	return float64(accessCount+1) / (1 + days*decayRate)
}

// DecayCandidate is an active memory whose retention fell below the threshold.
type DecayCandidate struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Project     string  `json:"project,omitempty"`
	AccessCount int     `json:"access_count"`
	Retention   float64 `json:"retention"`
}

// DecayResult reports a decay run. In a dry run Affected is the would-be count.
type DecayResult struct {
	Threshold  float64          `json:"threshold"`
	DryRun     bool             `json:"dry_run"`
	Affected   int              `json:"affected"`
	Candidates []DecayCandidate `json:"candidates"`
}

// RunDecay marks active memories with retention below threshold as cold. Selection
// and mutation happen in one transaction; the count comes from the UPDATE itself.
func (s *SQLiteStore) RunDecay(ctx context.Context, threshold float64, dryRun bool) (*DecayResult, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return nil, fmt.Errorf("%w: decay threshold must be a positive number, got %v", ErrInvalidInput, threshold)
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, title, project, access_count, created_at FROM memories WHERE status = ?`,
		string(model.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("select active memories: %w", err)
	}

	result := &DecayResult{Threshold: threshold, DryRun: dryRun, Candidates: []DecayCandidate{}}
	for rows.Next() {
		var c DecayCandidate
		var project *string
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Title, &project, &c.AccessCount, &createdAt); err != nil {
			rows.Close()
			return nil, err
		}
		created, err := parseTime(createdAt)
		if err != nil {
			rows.Close()
			return nil, s.rowError("memory", c.ID, fmt.Errorf("%w: created_at %q: %w", ErrCorrupt, createdAt, err))
		}
		if project != nil {
			c.Project = *project
		}
		c.Retention = Retention(c.AccessCount, created, now)
		if c.Retention < threshold {
			result.Candidates = append(result.Candidates, c)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if dryRun {
		result.Affected = len(result.Candidates)
		return result, nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE memories SET status = ? WHERE id = ? AND status = ?`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, c := range result.Candidates {
		res, err := stmt.ExecContext(ctx, string(model.StatusCold), c.ID, string(model.StatusActive))
		if err != nil {
			return nil, fmt.Errorf("mark %s cold: %w", c.ID, err)
		}
		n, _ := res.RowsAffected()
		result.Affected += int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info().Int("affected", result.Affected).Float64("threshold", threshold).Msg("Decay applied")
	return result, nil
}

// Promote makes a memory visible across all projects. Promoting a global memory is a no-op.
func (s *SQLiteStore) Promote(ctx context.Context, id string) error {
	return s.setScope(ctx, id, model.ScopeGlobal)
}

// Demote returns a memory to project scope. Demoting a project memory is a no-op.
func (s *SQLiteStore) Demote(ctx context.Context, id string) error {
	return s.setScope(ctx, id, model.ScopeProject)
}

func (s *SQLiteStore) setScope(ctx context.Context, id string, scope model.Scope) error {
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET scope = ? WHERE id = ?`, string(scope), id)
	if err != nil {
		return fmt.Errorf("set scope: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	return nil
}

// Reactivate moves a cold memory back to active.
func (s *SQLiteStore) Reactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET status = ? WHERE id = ?`,
		string(model.StatusActive), id)
	if err != nil {
		return fmt.Errorf("reactivate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}
	return nil
}
