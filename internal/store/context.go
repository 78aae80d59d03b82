package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/mem/internal/markdown"
	"github.com/rcliao/mem/internal/model"
)

const (
	DefaultContextLimit = 5
	MaxContextLimit     = 50
)

// ContextParams holds parameters for context assembly.
type ContextParams struct {
	Project string
	Limit   int
	Budget  int // max tokens in output (rough proxy: 1 token ≈ 4 chars); 0 means unbounded
}

// ContextMemory is one memory included in assembled context.
type ContextMemory struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Type      model.Type  `json:"type"`
	Scope     model.Scope `json:"scope"`
	CreatedAt time.Time   `json:"created_at"`
	Content   string      `json:"content"`
	Excerpt   bool        `json:"excerpt,omitempty"`
}

// ContextResult is the assembled context response.
type ContextResult struct {
	Project  string          `json:"project,omitempty"`
	Budget   int             `json:"budget,omitempty"`
	Used     int             `json:"used"`
	Memories []ContextMemory `json:"memories"`
}

// Context returns the most recent active memories for a project plus global ones,
// newest first, greedily packed into the token budget.
func (s *SQLiteStore) Context(ctx context.Context, p ContextParams) (*ContextResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	if limit > MaxContextLimit {
		limit = MaxContextLimit
	}

	where := []string{"m.status = ?"}
	args := []interface{}{string(model.StatusActive)}
	if p.Project != "" {
		where = append(where, "(m.project = ? OR m.scope = ?)")
		args = append(args, p.Project, string(model.ScopeGlobal))
	}
	query := fmt.Sprintf(`SELECT %s FROM memories m WHERE %s
		ORDER BY m.created_at DESC, m.id DESC LIMIT ?`, memoryColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	memories, err := s.queryMemories(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	result := &ContextResult{Project: p.Project, Budget: p.Budget, Memories: []ContextMemory{}}
	charBudget := p.Budget * 4
	used := 0

	for _, m := range memories {
		cm := ContextMemory{
			ID:        m.ID,
			Title:     m.Title,
			Type:      m.Type,
			Scope:     m.Scope,
			CreatedAt: m.CreatedAt,
			Content:   m.Content,
		}
		if charBudget <= 0 {
			result.Memories = append(result.Memories, cm)
			used += len(m.Content)
			continue
		}

		if used+len(m.Content) <= charBudget {
			result.Memories = append(result.Memories, cm)
			used += len(m.Content)
		} else if remaining := charBudget - used; remaining >= 100 {
			cm.Content = markdown.Cut(m.Content, remaining) + "..."
			cm.Excerpt = true
			result.Memories = append(result.Memories, cm)
			used += len(cm.Content)
			break
		} else {
			break
		}
	}

	// Convert used chars back to approximate tokens
	result.Used = used / 4

	return result, nil
}
