// Package store defines the persistence contracts shared by all backends:
// sentinel errors, the list query shape, and the generic repository interface.
package store

import "errors"

// Sentinel errors returned by repositories. Services translate these into
// coded domain errors; nothing below the service layer speaks HTTP.
var (
	ErrNotFound     = errors.New("store: not found")
	ErrDuplicate    = errors.New("store: duplicate value")
	ErrUnknownField = errors.New("store: unknown field")
)

// IsUnknownField reports whether err is an unknown-field rejection from the
// query executor, which callers surface as invalid input.
func IsUnknownField(err error) bool {
	return errors.Is(err, ErrUnknownField)
}
