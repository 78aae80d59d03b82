// Package model defines the core memory data types.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownValue is returned when an enum string is not one of the allowed values.
var ErrUnknownValue = errors.New("unknown value")

// Type classifies how a memory was created.
type Type string

const (
	TypeAuto     Type = "auto"
	TypeManual   Type = "manual"
	TypePattern  Type = "pattern"
	TypeDecision Type = "decision"
)

// Status is the decay lifecycle state of a memory.
type Status string

const (
	StatusActive Status = "active"
	StatusCold   Status = "cold"
)

// Scope controls cross-project visibility.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// ValidTypes are the allowed memory types.
var ValidTypes = map[Type]bool{
	TypeAuto:     true,
	TypeManual:   true,
	TypePattern:  true,
	TypeDecision: true,
}

// UserTypes are the types an untrusted caller may set. "auto" is reserved for capture.
var UserTypes = map[Type]bool{
	TypeManual:   true,
	TypePattern:  true,
	TypeDecision: true,
}

// ParseType parses a memory type. Matching is case-sensitive.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !ValidTypes[t] {
		return "", fmt.Errorf("%w: memory type %q (valid: auto, manual, pattern, decision)", ErrUnknownValue, s)
	}
	return t, nil
}

// ParseUserType parses a type supplied by an untrusted caller.
// An empty string defaults to manual.
func ParseUserType(s string) (Type, error) {
	if s == "" {
		return TypeManual, nil
	}
	t := Type(s)
	if !UserTypes[t] {
		return "", fmt.Errorf("%w: memory type %q (valid: manual, pattern, decision)", ErrUnknownValue, s)
	}
	return t, nil
}

// ParseStatus parses a memory status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusCold:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: memory status %q (valid: active, cold)", ErrUnknownValue, s)
}

// ParseScope parses a memory scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeProject, ScopeGlobal:
		return Scope(s), nil
	}
	return "", fmt.Errorf("%w: memory scope %q (valid: project, global)", ErrUnknownValue, s)
}

// Memory represents a stored memory entry.
type Memory struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id,omitempty"`
	Project        string     `json:"project,omitempty"`
	Title          string     `json:"title"`
	Type           Type       `json:"type"`
	Content        string     `json:"content"`
	Diff           string     `json:"diff,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	Status         Status     `json:"status"`
	Scope          Scope      `json:"scope"`
}
