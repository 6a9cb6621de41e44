package table

import (
	"errors"
	"fmt"
)

// ErrShapeConflict is matched by every *ShapeConflictError.
var ErrShapeConflict = errors.New("shape conflict")

// ShapeConflictError reports a path used both as a scalar leaf and as a
// nested object, or a column name produced twice for one row.
type ShapeConflictError struct {
	Column string // column being written when the conflict surfaced
	Path   string // conflicting path, delimiter-joined
	Row    int
	Reason string
}

func (e *ShapeConflictError) Error() string {
	return fmt.Sprintf("row %d, column %q: %s at %q", e.Row, e.Column, e.Reason, e.Path)
}

func (e *ShapeConflictError) Is(target error) bool {
	return target == ErrShapeConflict
}
