package reshape

import (
	"errors"
	"fmt"

	"github.com/agentic-research/kgtab/internal/resource"
)

var (
	// ErrUnknownField is matched by every *UnknownFieldError.
	ErrUnknownField = errors.New("unknown field")
	// ErrPathSyntax is matched by every *resource.PathSyntaxError.
	ErrPathSyntax = resource.ErrPathSyntax
	// ErrInvalidPathToFollow is matched by every *InvalidPathToFollowError.
	ErrInvalidPathToFollow = errors.New("invalid path to follow")
)

// UnknownFieldError reports a keep path naming a field absent from the tree
// being reshaped.
type UnknownFieldError struct {
	Field string // missing segment
	Path  string // dotted path from the top-level tree down to Field
}

func (e *UnknownFieldError) Error() string {
	if e.Path == "" || e.Path == e.Field {
		return fmt.Sprintf("unknown field %q", e.Field)
	}
	return fmt.Sprintf("unknown field %q at %q", e.Field, e.Path)
}

func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// InvalidPathToFollowError is the default error CollectValues returns when
// the followed path does not exist or cannot be parsed. The cause is not
// carried.
type InvalidPathToFollowError struct {
	Follow string
}

func (e *InvalidPathToFollowError) Error() string {
	return fmt.Sprintf("path to follow is incorrect: %q", e.Follow)
}

func (e *InvalidPathToFollowError) Is(target error) bool {
	return target == ErrInvalidPathToFollow
}
