package resource

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultDelimiter separates nesting levels in dotted paths and column names.
const DefaultDelimiter = "."

// ErrPathSyntax is matched by every *PathSyntaxError.
var ErrPathSyntax = errors.New("path syntax error")

// PathSyntaxError reports a malformed dotted path.
type PathSyntaxError struct {
	Path   string
	Reason string
}

func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

func (e *PathSyntaxError) Is(target error) bool {
	return target == ErrPathSyntax
}

// SplitPath splits path on delim. The path must be non-empty and every
// segment must be non-empty, so leading, trailing and doubled delimiters
// are rejected.
func SplitPath(path, delim string) ([]string, error) {
	if delim == "" {
		delim = DefaultDelimiter
	}
	if path == "" {
		return nil, &PathSyntaxError{Path: path, Reason: "empty path"}
	}
	segs := strings.Split(path, delim)
	for i, s := range segs {
		if s != "" {
			continue
		}
		switch {
		case i == len(segs)-1:
			return nil, &PathSyntaxError{Path: path, Reason: "trailing delimiter with no leaf"}
		case i == 0:
			return nil, &PathSyntaxError{Path: path, Reason: "leading delimiter"}
		default:
			return nil, &PathSyntaxError{Path: path, Reason: "empty segment"}
		}
	}
	return segs, nil
}
