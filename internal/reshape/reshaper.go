// Package reshape projects resource trees onto a subset of their fields.
package reshape

import (
	"errors"
	"fmt"

	"github.com/agentic-research/kgtab/internal/format"
	"github.com/agentic-research/kgtab/internal/resource"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// Template argument name under which the tree being reshaped is exposed.
	subjectArg = "x"
	// Parsed keep lists remembered per Reshaper.
	specCacheSize = 128
)

// Reshaper keeps only selected fields of trees. When asked for versioned
// output, the "id" field is replaced by the store's versioned id template
// rendered against the tree that holds it, e.g. "{x.id}?rev={x._store_metadata._rev}".
//
// A Reshaper is safe for concurrent use.
type Reshaper struct {
	template    *format.Template
	templateErr error
	specs       *lru.Cache[string, *PathSpec]
}

// New returns a Reshaper for the given versioned id template. A malformed
// template is reported when a versioned reshape first needs it.
func New(versionedIDTemplate string) *Reshaper {
	t, err := format.Parse(versionedIDTemplate)
	specs, _ := lru.New[string, *PathSpec](specCacheSize) // fails only for size <= 0
	return &Reshaper{template: t, templateErr: err, specs: specs}
}

// pathSpec parses keep, reusing the result of an identical earlier list.
func (r *Reshaper) pathSpec(keep []string) (*PathSpec, error) {
	key := fmt.Sprintf("%q", keep)
	if spec, ok := r.specs.Get(key); ok {
		return spec, nil
	}
	spec, err := ParsePathSpec(keep)
	if err != nil {
		return nil, err
	}
	r.specs.Add(key, spec)
	return spec, nil
}

// Reshape returns a new tree holding only the fields named by keep. Nested
// trees named without leaves are shallow-copied; arrays are reshaped element
// by element. The result carries default metadata.
func (r *Reshaper) Reshape(tree *resource.Tree, keep []string, versioned bool) (*resource.Tree, error) {
	spec, err := r.pathSpec(keep)
	if err != nil {
		return nil, err
	}
	return r.reshape(tree, spec, versioned, "")
}

// ReshapeMany reshapes each tree with the same keep list. The first error
// aborts the whole batch.
func (r *Reshaper) ReshapeMany(trees []*resource.Tree, keep []string, versioned bool) ([]*resource.Tree, error) {
	spec, err := r.pathSpec(keep)
	if err != nil {
		return nil, err
	}
	out := make([]*resource.Tree, len(trees))
	for i, tr := range trees {
		if out[i], err = r.reshape(tr, spec, versioned, ""); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return out, nil
}

// ReshapeValue dispatches on v: a tree is reshaped, an array must hold only
// trees and is reshaped element by element.
func (r *Reshaper) ReshapeValue(v resource.Value, keep []string, versioned bool) (resource.Value, error) {
	switch x := v.(type) {
	case *resource.Tree:
		return r.Reshape(x, keep, versioned)
	case resource.Array:
		trees := make([]*resource.Tree, len(x))
		for i, e := range x {
			tr, ok := e.(*resource.Tree)
			if !ok {
				return nil, fmt.Errorf("reshape: element %d is a %s, not a tree", i, e.Kind())
			}
			trees[i] = tr
		}
		reshaped, err := r.ReshapeMany(trees, keep, versioned)
		if err != nil {
			return nil, err
		}
		out := make(resource.Array, len(reshaped))
		for i, tr := range reshaped {
			out[i] = tr
		}
		return out, nil
	case nil:
		return nil, errors.New("reshape: nil value")
	default:
		return nil, fmt.Errorf("reshape: cannot reshape a %s", v.Kind())
	}
}

func (r *Reshaper) reshape(tr *resource.Tree, spec *PathSpec, versioned bool, prefix string) (*resource.Tree, error) {
	out := resource.New()
	for _, root := range spec.Roots() {
		path := joinPath(prefix, root)
		v, ok := tr.Get(root)
		if !ok {
			return nil, &UnknownFieldError{Field: root, Path: path}
		}
		nv, err := r.reshapeField(tr, root, v, spec.Leaves(root), versioned, path)
		if err != nil {
			return nil, err
		}
		out.Set(root, nv)
	}
	return out, nil
}

func (r *Reshaper) reshapeField(owner *resource.Tree, key string, v resource.Value, leaves *PathSpec, versioned bool, path string) (resource.Value, error) {
	switch x := v.(type) {
	case resource.Array:
		return r.reshapeArray(x, leaves, versioned, path)
	case *resource.Tree:
		if leaves == nil {
			return x.ShallowCopy(), nil
		}
		return r.reshape(x, leaves, versioned, path)
	default:
		// Leaves below a scalar are ignored.
		if key == resource.KeyID && versioned {
			id, err := r.versionedID(owner)
			if err != nil {
				return nil, err
			}
			return resource.String(id), nil
		}
		return v, nil
	}
}

// reshapeArray reshapes every tree element with leaves. Without leaves there
// is nothing to keep and each tree element comes back empty.
func (r *Reshaper) reshapeArray(arr resource.Array, leaves *PathSpec, versioned bool, path string) (resource.Value, error) {
	out := make(resource.Array, len(arr))
	for i, e := range arr {
		switch x := e.(type) {
		case *resource.Tree:
			spec := leaves
			if spec == nil {
				spec = newPathSpec()
			}
			tr, err := r.reshape(x, spec, versioned, path)
			if err != nil {
				return nil, err
			}
			out[i] = tr
		case resource.Array:
			nested, err := r.reshapeArray(x, leaves, versioned, path)
			if err != nil {
				return nil, err
			}
			out[i] = nested
		default:
			if leaves != nil {
				root := leaves.Roots()[0]
				return nil, &UnknownFieldError{Field: root, Path: joinPath(path, root)}
			}
			out[i] = e
		}
	}
	return out, nil
}

func (r *Reshaper) versionedID(tr *resource.Tree) (string, error) {
	if r.templateErr != nil {
		return "", fmt.Errorf("versioned id template: %w", r.templateErr)
	}
	id, err := r.template.Execute(nil, map[string]any{subjectArg: subjectView(tr)})
	if err != nil {
		return "", fmt.Errorf("versioned id for %q: %w", tr.ID(), err)
	}
	return id, nil
}

// subjectView is the template's view of a tree: its data fields plus the
// store-side state under underscore-prefixed names.
func subjectView(tr *resource.Tree) map[string]any {
	m, _ := resource.ToPlain(tr, resource.JSONOptions{}).(map[string]any)
	if m == nil {
		m = make(map[string]any)
	}
	if tr.StoreMetadata != nil {
		m["_store_metadata"] = resource.ToPlain(tr.StoreMetadata, resource.JSONOptions{})
	}
	if tr.LastAction != nil {
		m["_last_action"] = map[string]any{
			"operation": tr.LastAction.Operation,
			"succeeded": tr.LastAction.Succeeded,
			"message":   tr.LastAction.Message,
		}
	}
	m["_synchronized"] = tr.Synchronized
	m["_validated"] = tr.Validated
	return m
}

func joinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + resource.DefaultDelimiter + seg
}
