package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRowReturned is returned when an insert reported success but the
	// store produced no row to return.
	ErrNoRowReturned = errors.New("insert returned no row")
)
