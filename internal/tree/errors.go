package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers bad input: empty names, names containing the
	// path separator, renaming to the current name.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidMove covers structurally illegal moves: a folder into
	// itself or its own subtree, a move to the current parent, a move
	// into a file.
	ErrInvalidMove = errors.New("invalid move")

	// ErrNotFound means the subject (or its destination) no longer
	// exists for this owner.
	ErrNotFound = errors.New("node not found")
)

// PartialError reports a subtree operation (delete, repath) that did
// not fully converge. FailedIDs names the roots of exactly what
// remains: nodes confirmed to still exist after a delete, or subtrees
// still carrying a stale path prefix after a repath. Every per-node
// step is idempotent, so retrying the operation scoped to those IDs
// completes it.
type PartialError struct {
	FailedIDs []string
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("subtree operation incomplete: %d nodes remain", len(e.FailedIDs))
}
