package store

import "errors"

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference reports a write pointing at a row that does not exist.
	ErrInvalidReference = errors.New("invalid reference")
)
