package store

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails. Nothing has been written.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorrupt is returned when a stored row cannot be decoded.
	ErrCorrupt = errors.New("corrupt row")
)
