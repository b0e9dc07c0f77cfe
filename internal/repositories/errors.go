package repositories

import "errors"

var (
	// ErrNotFound is returned when no row matches the lookup, including
	// rows that exist under a different owner.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("already exists")

	// ErrUnsupportedPredicate is returned for a predicate a store cannot compile.
	ErrUnsupportedPredicate = errors.New("unsupported predicate")
)
