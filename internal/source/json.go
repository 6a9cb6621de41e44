// Package source loads resource trees from files and record databases.
package source

import (
	"fmt"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// StoreMetadataKey is the top-level key under which a JSON record may carry
// the metadata its store attached to it.
const StoreMetadataKey = "_store_metadata"

// LoadJSON reads a JSON document holding one object or an array of objects.
func LoadJSON(fs billy.Filesystem, path string) ([]*resource.Tree, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	trees, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trees, nil
}

// ParseJSON decodes one object or an array of objects.
func ParseJSON(data []byte) ([]*resource.Tree, error) {
	v, err := resource.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return Trees(v)
}

// Trees unpacks a tree or an array of trees. A top-level StoreMetadataKey
// object on a tree becomes its store metadata.
func Trees(v resource.Value) ([]*resource.Tree, error) {
	switch x := v.(type) {
	case *resource.Tree:
		liftStoreMetadata(x)
		return []*resource.Tree{x}, nil
	case resource.Array:
		out := make([]*resource.Tree, len(x))
		for i, e := range x {
			tr, ok := e.(*resource.Tree)
			if !ok {
				return nil, fmt.Errorf("element %d: expected an object, got %s", i, resource.Describe(e))
			}
			liftStoreMetadata(tr)
			out[i] = tr
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an object or an array of objects, got %s", resource.Describe(v))
	}
}

// liftStoreMetadata moves an object under StoreMetadataKey out of the data
// fields and into tr.StoreMetadata.
func liftStoreMetadata(tr *resource.Tree) {
	v, ok := tr.Get(StoreMetadataKey)
	if !ok {
		return
	}
	if md, ok := v.(*resource.Tree); ok {
		tr.StoreMetadata = md
		tr.Delete(StoreMetadataKey)
	}
}
