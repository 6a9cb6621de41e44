package resource

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved data keys. They always hold scalars when present.
const (
	KeyID   = "id"
	KeyType = "type"
)

// Action records the outcome of the last store operation applied to a tree.
type Action struct {
	Operation string
	Succeeded bool
	Message   string
}

// Tree is an ordered mapping from field names to values, plus the non-data
// metadata a store attaches to a resource. Metadata never appears among the
// fields and is not part of equality.
//
// The zero Tree is an empty tree ready to use.
type Tree struct {
	fields *orderedmap.OrderedMap[string, Value]

	Synchronized  bool
	Validated     bool
	LastAction    *Action
	StoreMetadata *Tree
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{fields: orderedmap.New[string, Value]()}
}

// FromPairs builds a tree from alternating key/value arguments. It panics on
// malformed input and is meant for literals in tests and fixtures.
func FromPairs(kv ...any) *Tree {
	if len(kv)%2 != 0 {
		panic("resource: FromPairs needs an even number of arguments")
	}
	t := New()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("resource: FromPairs key must be a string")
		}
		t.Set(key, Of(kv[i+1]))
	}
	return t
}

// Of converts a Go literal into a Value: Values pass through, strings,
// integers, floats, bools and nil become scalars.
func Of(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case nil:
		return Null()
	case string:
		return String(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		return Float(x)
	case bool:
		return Bool(x)
	case []Value:
		return Array(x)
	default:
		panic("resource: unsupported literal type")
	}
}

func (*Tree) Kind() Kind { return KindTree }

func (*Tree) isValue() {}

func (t *Tree) init() {
	if t.fields == nil {
		t.fields = orderedmap.New[string, Value]()
	}
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (Value, bool) {
	if t == nil || t.fields == nil {
		return nil, false
	}
	return t.fields.Get(key)
}

// Has reports whether key is present.
func (t *Tree) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position.
func (t *Tree) Set(key string, v Value) {
	t.init()
	t.fields.Set(key, v)
}

// Delete removes key and reports whether it was present.
func (t *Tree) Delete(key string) bool {
	if t.fields == nil {
		return false
	}
	_, ok := t.fields.Delete(key)
	return ok
}

// Len returns the number of data fields.
func (t *Tree) Len() int {
	if t == nil || t.fields == nil {
		return 0
	}
	return t.fields.Len()
}

// Keys returns the field names in insertion order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, t.Len())
	for k := range t.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates over fields in insertion order.
func (t *Tree) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if t == nil || t.fields == nil {
			return
		}
		for p := t.fields.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// ID returns the string identifier, if any.
func (t *Tree) ID() string {
	return t.scalarString(KeyID)
}

// Type returns the string type tag, if any.
func (t *Tree) Type() string {
	return t.scalarString(KeyType)
}

func (t *Tree) scalarString(key string) string {
	v, ok := t.Get(key)
	if !ok {
		return ""
	}
	s, ok := v.(Scalar)
	if !ok {
		return ""
	}
	if str, ok := s.Str(); ok {
		return str
	}
	return s.Text()
}

// Equal compares data fields regardless of order. Metadata is ignored.
func (t *Tree) Equal(o *Tree) bool {
	if t.Len() != o.Len() {
		return false
	}
	for k, v := range t.All() {
		w, ok := o.Get(k)
		if !ok || !Equal(v, w) {
			return false
		}
	}
	return true
}

// Clone deep-copies fields and metadata.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := New()
	for k, v := range t.All() {
		out.Set(k, Clone(v))
	}
	out.Synchronized = t.Synchronized
	out.Validated = t.Validated
	if t.LastAction != nil {
		a := *t.LastAction
		out.LastAction = &a
	}
	out.StoreMetadata = t.StoreMetadata.Clone()
	return out
}

// ShallowCopy copies the top-level data fields into a fresh tree with
// default metadata. Nested values are shared, not copied.
func (t *Tree) ShallowCopy() *Tree {
	out := New()
	for k, v := range t.All() {
		out.Set(k, v)
	}
	return out
}

// ResetMetadata returns t to the state of a resource that was never seen by
// a store: unsynchronized, unvalidated, no pending action and no store
// metadata.
func (t *Tree) ResetMetadata() {
	t.Synchronized = false
	t.Validated = false
	t.LastAction = nil
	t.StoreMetadata = nil
}
