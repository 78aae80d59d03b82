// Package store provides the memory storage interface and SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/rcliao/mem/internal/model"
)

// SaveParams holds parameters for storing a memory.
type SaveParams struct {
	Title     string
	Content   string
	Type      model.Type
	Project   string
	SessionID string
	Diff      string

	// Status, Scope and CreatedAt are only set by import. Zero values mean
	// active, project scope and now.
	Status    model.Status
	Scope     model.Scope
	CreatedAt time.Time
}

// UpdateParams holds parameters for editing a memory. Nil fields are left unchanged.
type UpdateParams struct {
	ID      string
	Title   *string
	Content *string
	Type    *model.Type
}

// ListParams holds parameters for listing memories.
type ListParams struct {
	Project string
	Scope   model.Scope
	Status  model.Status
	Type    model.Type
	Limit   int
}

// Store defines the memory storage interface.
type Store interface {
	// SaveMemory validates and stores a memory from an untrusted caller.
	SaveMemory(ctx context.Context, p SaveParams) (*model.Memory, error)

	// GetMemory retrieves a memory by id.
	GetMemory(ctx context.Context, id string) (*model.Memory, error)

	// ListMemories lists memories matching the given filters.
	ListMemories(ctx context.Context, p ListParams) ([]model.Memory, error)

	// DeleteMemory hard-deletes a memory.
	DeleteMemory(ctx context.Context, id string) error

	// Search runs a ranked full-text query over memories, indexed files, or both.
	Search(ctx context.Context, p SearchParams) ([]SearchResult, error)

	// UpsertIndexedFile inserts or replaces the row for a source path.
	UpsertIndexedFile(ctx context.Context, f model.IndexedFile) (*model.IndexedFile, error)

	// Close closes the store.
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
