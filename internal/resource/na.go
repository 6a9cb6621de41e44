package resource

// IsMissing reports whether v stands for a missing value: absent (nil), a
// null scalar, a float NaN, or a scalar equal to one of the sentinels in na.
// Trees and arrays are never missing.
func IsMissing(v Value, na []Value) bool {
	if v == nil {
		return true
	}
	s, ok := v.(Scalar)
	if !ok {
		return false
	}
	if s.IsNull() || s.IsNaN() {
		return true
	}
	for _, x := range na {
		if y, ok := x.(Scalar); ok && s.Equal(y) {
			return true
		}
	}
	return false
}

// DropMissing returns a copy of v where every tree field holding a missing
// value is removed. Array elements are kept in place; only fields vanish.
// Tree metadata is carried over.
func DropMissing(v Value, na []Value) Value {
	switch x := v.(type) {
	case *Tree:
		out := New()
		for k, fv := range x.All() {
			if IsMissing(fv, na) {
				continue
			}
			out.Set(k, DropMissing(fv, na))
		}
		out.Synchronized = x.Synchronized
		out.Validated = x.Validated
		out.LastAction = x.LastAction
		out.StoreMetadata = x.StoreMetadata
		return out
	case Array:
		out := make(Array, len(x))
		for i, e := range x {
			out[i] = DropMissing(e, na)
		}
		return out
	default:
		return v
	}
}

// Strings converts sentinel strings, as found in configuration files, into
// scalar values.
func Strings(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}
