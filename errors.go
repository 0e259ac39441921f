package zoctree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/zoctree/internal/arena"
)

var (
	// ErrInvalidConfig is returned by New for unusable construction
	// parameters. Inspect the wrapped error for the offending field.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidHandle indicates an internal consistency fault: a node
	// handle or the id index referenced tree state that no longer exists.
	// It is never caused by caller input and always indicates a bug in the
	// index itself.
	ErrInvalidHandle = arena.ErrInvalidHandle
)

// ErrDuplicateID is returned by Insert when the payload id is already live.
//
// Use Update to move an existing id to a new coordinate.
type ErrDuplicateID struct {
	ID uint64
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate id: %d", e.ID)
}

// ErrNotFound is returned by Delete and Update for an unknown payload id.
type ErrNotFound struct {
	ID uint64
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("id not found: %d", e.ID)
}

// ErrInvalidQuery is returned for a malformed query box (min exceeds max on
// some axis).
type ErrInvalidQuery struct {
	Box Box
}

func (e *ErrInvalidQuery) Error() string {
	return fmt.Sprintf("invalid query box: min %v exceeds max %v", e.Box.Min, e.Box.Max)
}
