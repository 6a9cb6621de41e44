package resource

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/mailru/easyjson/jwriter"
)

// ExpandedPrefix marks reserved keys in expanded (JSON-LD style) headers.
const ExpandedPrefix = "@"

// Header returns the external name of a field: reserved keys gain the "@"
// prefix when expanded is set, other keys are unchanged.
func Header(key string, expanded bool) string {
	if expanded && (key == KeyID || key == KeyType) {
		return ExpandedPrefix + key
	}
	return key
}

// FieldName is the inverse of Header: "@id" and "@type" map back to the bare
// reserved keys.
func FieldName(header string) string {
	switch header {
	case ExpandedPrefix + KeyID:
		return KeyID
	case ExpandedPrefix + KeyType:
		return KeyType
	default:
		return header
	}
}

// JSONOptions controls the JSON and plain renderings of a Value.
type JSONOptions struct {
	// Expanded writes reserved keys as "@id" and "@type".
	Expanded bool
	// StoreMetadata appends each tree's store metadata fields after its data
	// fields.
	StoreMetadata bool
}

// DecodeJSON parses a JSON document into a Value, keeping object keys in
// document order. "@id" and "@type" keys are read as "id" and "type".
func DecodeJSON(data []byte) (Value, error) {
	raw, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	v, err := decodeValue(raw, typ)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

func decodeValue(raw []byte, typ jsonparser.ValueType) (Value, error) {
	switch typ {
	case jsonparser.Object:
		t := New()
		err := jsonparser.ObjectEach(raw, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
			v, err := decodeValue(value, dt)
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			t.Set(FieldName(string(key)), v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	case jsonparser.Array:
		arr := Array{}
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(value []byte, dt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			v, err := decodeValue(value, dt)
			if err != nil {
				inner = fmt.Errorf("index %d: %w", len(arr), err)
				return
			}
			arr = append(arr, v)
		})
		if inner != nil {
			return nil, inner
		}
		if err != nil {
			return nil, err
		}
		return arr, nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case jsonparser.Number:
		if i, err := jsonparser.ParseInt(raw); err == nil {
			return Int(i), nil
		}
		f, err := jsonparser.ParseFloat(raw)
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return nil, err
		}
		return Bool(b), nil
	case jsonparser.Null:
		return Null(), nil
	default:
		return nil, errors.New("unsupported json value")
	}
}

// EncodeJSON renders v as compact JSON, keeping tree field order.
func EncodeJSON(v Value, opts JSONOptions) ([]byte, error) {
	w := &jwriter.Writer{}
	writeValue(w, v, opts)
	return w.BuildBytes()
}

func writeValue(w *jwriter.Writer, v Value, opts JSONOptions) {
	switch x := v.(type) {
	case Scalar:
		writeScalar(w, x)
	case *Tree:
		w.RawByte('{')
		first := true
		field := func(name string, fv Value) {
			if !first {
				w.RawByte(',')
			}
			first = false
			w.String(name)
			w.RawByte(':')
			writeValue(w, fv, opts)
		}
		for k, fv := range x.All() {
			field(Header(k, opts.Expanded), fv)
		}
		if opts.StoreMetadata {
			for k, fv := range x.StoreMetadata.All() {
				field(k, fv)
			}
		}
		w.RawByte('}')
	case Array:
		w.RawByte('[')
		for i, e := range x {
			if i > 0 {
				w.RawByte(',')
			}
			writeValue(w, e, opts)
		}
		w.RawByte(']')
	default:
		w.RawString("null")
	}
}

func writeScalar(w *jwriter.Writer, s Scalar) {
	switch s.Type() {
	case StringType:
		str, _ := s.Str()
		w.String(str)
	case IntType:
		w.Int64(s.Interface().(int64))
	case FloatType:
		f := s.Interface().(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			w.RawString("null")
			return
		}
		w.Float64(f)
	case BoolType:
		w.Bool(s.Interface().(bool))
	default:
		w.RawString("null")
	}
}

// ToPlain converts v into plain Go values: map[string]any, []any, and the
// scalar payloads of Scalar.Interface. Field order is lost.
func ToPlain(v Value, opts JSONOptions) any {
	switch x := v.(type) {
	case Scalar:
		return x.Interface()
	case *Tree:
		m := make(map[string]any, x.Len())
		for k, fv := range x.All() {
			m[Header(k, opts.Expanded)] = ToPlain(fv, opts)
		}
		if opts.StoreMetadata {
			for k, fv := range x.StoreMetadata.All() {
				m[k] = ToPlain(fv, opts)
			}
		}
		return m
	case Array:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToPlain(e, opts)
		}
		return out
	default:
		return nil
	}
}

// Describe is a short human-readable rendering used in error messages.
func Describe(v Value) string {
	switch x := v.(type) {
	case Scalar:
		if x.Type() == StringType {
			return fmt.Sprintf("%q", x.Text())
		}
		if x.IsNull() {
			return "null"
		}
		return x.Text()
	case *Tree:
		return "{" + strings.Join(x.Keys(), ",") + "}"
	case Array:
		return fmt.Sprintf("array[%d]", len(x))
	default:
		return "<nil>"
	}
}
