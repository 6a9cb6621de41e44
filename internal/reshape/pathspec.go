package reshape

import (
	"fmt"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/hashicorp/go-multierror"
)

// PathSpec is a parsed keep list: the distinct root fields in first-seen
// order and, per root, the narrower spec its leaf paths form.
//
// A root listed both bare ("p4") and with leaves ("p4.p1") is narrowed to
// its leaves.
type PathSpec struct {
	roots    []string
	children map[string]*PathSpec
}

// ParsePathSpec parses dotted keep paths. Every malformed path is reported;
// the returned error matches ErrPathSyntax.
func ParsePathSpec(keep []string) (*PathSpec, error) {
	spec := newPathSpec()
	var merr *multierror.Error
	for i, p := range keep {
		segs, err := resource.SplitPath(p, resource.DefaultDelimiter)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("keep[%d]: %w", i, err))
			continue
		}
		spec.insert(segs)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return spec, nil
}

func newPathSpec() *PathSpec {
	return &PathSpec{children: make(map[string]*PathSpec)}
}

func (s *PathSpec) insert(segs []string) {
	root := segs[0]
	child, seen := s.children[root]
	if !seen {
		s.roots = append(s.roots, root)
		s.children[root] = nil
	}
	if len(segs) == 1 {
		return
	}
	if child == nil {
		child = newPathSpec()
		s.children[root] = child
	}
	child.insert(segs[1:])
}

// Roots returns the root fields in first-seen order.
func (s *PathSpec) Roots() []string { return s.roots }

// Leaves returns the spec below root, or nil when root is kept whole.
func (s *PathSpec) Leaves(root string) *PathSpec { return s.children[root] }

// Empty reports whether the spec names no field.
func (s *PathSpec) Empty() bool { return len(s.roots) == 0 }
