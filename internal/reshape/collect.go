package reshape

import (
	"errors"

	"github.com/agentic-research/kgtab/internal/resource"
)

var collector = New("")

// CollectValues returns every scalar reachable along the dotted path follow,
// in depth-first left-to-right order. v is a tree or an array of trees.
// Scalars inside arrays are collected; nulls are kept.
//
// When follow does not exist or is malformed, the reshape error is passed to
// invalid and its result returned. A nil invalid yields an
// *InvalidPathToFollowError.
func CollectValues(v resource.Value, follow string, invalid func(error) error) ([]resource.Value, error) {
	reshaped, err := collector.ReshapeValue(v, []string{follow}, false)
	if err != nil {
		if errors.Is(err, ErrUnknownField) || errors.Is(err, ErrPathSyntax) {
			if invalid == nil {
				return nil, &InvalidPathToFollowError{Follow: follow}
			}
			return nil, invalid(err)
		}
		return nil, err
	}
	var out []resource.Value
	collect(reshaped, &out)
	return out, nil
}

func collect(v resource.Value, out *[]resource.Value) {
	switch x := v.(type) {
	case *resource.Tree:
		for _, fv := range x.All() {
			collect(fv, out)
		}
	case resource.Array:
		for _, e := range x {
			collect(e, out)
		}
	case resource.Scalar:
		*out = append(*out, x)
	}
}
