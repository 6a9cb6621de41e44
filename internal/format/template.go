// Package format implements brace templates: "{}" and "{0}" take
// positional arguments, "{x}" a named one, and ".name" or "[key]" accessors
// reach into nested maps and slices. Conversions ("!r") and format specs
// (":>10") are not supported.
package format

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mailru/easyjson/jwriter"
	"github.com/ohler55/ojg/jp"
)

var (
	// ErrSyntax is matched by every *SyntaxError.
	ErrSyntax = errors.New("template syntax error")
	// ErrField is matched by every *FieldError.
	ErrField = errors.New("template field error")
)

// SyntaxError reports a malformed template.
type SyntaxError struct {
	Template string
	Pos      int
	Reason   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template %q at %d: %s", e.Template, e.Pos, e.Reason)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// FieldError reports a replacement field that could not be resolved.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field {%s}: %s", e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool { return target == ErrField }

type accessor struct {
	key   string
	index int // >= 0 for a numeric [n] accessor
}

type field struct {
	raw       string
	name      string // keyword argument; empty when positional
	pos       int
	accessors []accessor
	expr      jp.Expr
}

type item struct {
	lit   string
	field *field
}

// Template is a parsed brace template. It is immutable and safe for
// concurrent use.
type Template struct {
	src   string
	items []item
}

// Parse compiles src.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	var lit strings.Builder
	auto, manual := 0, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &SyntaxError{Template: src, Pos: i, Reason: "single '}' encountered"}
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, &SyntaxError{Template: src, Pos: i, Reason: "single '{' encountered"}
			}
			raw := src[i+1 : i+1+end]
			f, err := parseField(raw)
			if err != nil {
				return nil, &SyntaxError{Template: src, Pos: i + 1, Reason: err.Error()}
			}
			switch {
			case f.name == "" && f.pos < 0:
				if manual {
					return nil, &SyntaxError{Template: src, Pos: i + 1, Reason: "cannot switch from manual to automatic field numbering"}
				}
				f.pos = auto
				auto++
			case f.name == "":
				if auto > 0 {
					return nil, &SyntaxError{Template: src, Pos: i + 1, Reason: "cannot switch from automatic to manual field numbering"}
				}
				manual = true
			}
			if lit.Len() > 0 {
				t.items = append(t.items, item{lit: lit.String()})
				lit.Reset()
			}
			t.items = append(t.items, item{field: f})
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.items = append(t.items, item{lit: lit.String()})
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

func parseField(raw string) (*field, error) {
	if strings.ContainsRune(raw, '{') {
		return nil, errors.New("nested replacement fields are not supported")
	}
	if strings.ContainsAny(raw, "!:") {
		return nil, errors.New("conversions and format specs are not supported")
	}
	f := &field{raw: raw, pos: -1}

	head := raw
	if i := strings.IndexAny(raw, ".["); i >= 0 {
		head = raw[:i]
	}
	if strings.ContainsRune(head, ']') {
		return nil, errors.New("unmatched ']'")
	}
	if head != "" {
		if n, err := strconv.Atoi(head); err == nil {
			if n < 0 {
				return nil, fmt.Errorf("negative argument index %d", n)
			}
			f.pos = n
		} else {
			f.name = head
		}
	}

	rest := raw[len(head):]
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			j := strings.IndexAny(rest, ".[")
			if j < 0 {
				j = len(rest)
			}
			if j == 0 {
				return nil, errors.New("empty attribute")
			}
			f.accessors = append(f.accessors, accessor{key: rest[:j], index: -1})
			rest = rest[j:]
		case '[':
			j := strings.IndexByte(rest, ']')
			if j < 0 {
				return nil, errors.New("missing ']'")
			}
			key := rest[1:j]
			if key == "" {
				return nil, errors.New("empty index")
			}
			a := accessor{key: key, index: -1}
			if n, err := strconv.Atoi(key); err == nil && n >= 0 {
				a.index = n
			}
			f.accessors = append(f.accessors, a)
			rest = rest[j+1:]
		default:
			return nil, errors.New("only '.' or '[' may follow ']'")
		}
	}

	if len(f.accessors) > 0 {
		x, err := jp.ParseString(pathExpr(f.accessors))
		if err != nil {
			return nil, fmt.Errorf("invalid accessor path: %w", err)
		}
		f.expr = x
	}
	return f, nil
}

// pathExpr renders accessors as a bracketed JSONPath so that keys holding
// dots or quotes stay single segments.
func pathExpr(acc []accessor) string {
	var b strings.Builder
	b.WriteByte('$')
	for _, a := range acc {
		if a.index >= 0 {
			b.WriteString("[" + strconv.Itoa(a.index) + "]")
			continue
		}
		b.WriteString("['")
		for _, r := range a.key {
			if r == '\'' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteString("']")
	}
	return b.String()
}

// String returns the template source.
func (t *Template) String() string { return t.src }

// Execute renders the template. Arguments are plain Go values: strings,
// numbers, bools, nil, map[string]any and []any.
func (t *Template) Execute(args []any, named map[string]any) (string, error) {
	var b strings.Builder
	for _, it := range t.items {
		if it.field == nil {
			b.WriteString(it.lit)
			continue
		}
		v, err := it.field.resolve(args, named)
		if err != nil {
			return "", err
		}
		b.WriteString(render(v))
	}
	return b.String(), nil
}

func (f *field) resolve(args []any, named map[string]any) (any, error) {
	var v any
	if f.name != "" {
		var ok bool
		if v, ok = named[f.name]; !ok {
			return nil, &FieldError{Field: f.raw, Reason: fmt.Sprintf("no argument named %q", f.name)}
		}
	} else {
		if f.pos >= len(args) {
			return nil, &FieldError{Field: f.raw, Reason: fmt.Sprintf("positional argument %d out of range (%d given)", f.pos, len(args))}
		}
		v = args[f.pos]
	}
	if f.expr == nil {
		return v, nil
	}
	got := f.expr.Get(v)
	if len(got) == 0 {
		return nil, &FieldError{Field: f.raw, Reason: "path not found"}
	}
	return got[0], nil
}

// Format parses tmpl and renders it with positional arguments.
func Format(tmpl string, args ...any) (string, error) {
	t, err := Parse(tmpl)
	if err != nil {
		return "", err
	}
	return t.Execute(args, nil)
}

func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case map[string]any, []any:
		w := jwriter.Writer{}
		writePlain(&w, x)
		out, err := w.BuildBytes()
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(out)
	default:
		return scalarText(x)
	}
}

func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// writePlain writes v as JSON with map keys sorted.
func writePlain(w *jwriter.Writer, v any) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.RawByte('{')
		for i, k := range keys {
			if i > 0 {
				w.RawByte(',')
			}
			w.String(k)
			w.RawByte(':')
			writePlain(w, x[k])
		}
		w.RawByte('}')
	case []any:
		w.RawByte('[')
		for i, e := range x {
			if i > 0 {
				w.RawByte(',')
			}
			writePlain(w, e)
		}
		w.RawByte(']')
	case string:
		w.String(x)
	case nil:
		w.RawString("null")
	case bool:
		w.Bool(x)
	case int64:
		w.Int64(x)
	case int:
		w.Int64(int64(x))
	case float64:
		w.Float64(x)
	default:
		w.String(fmt.Sprint(x))
	}
}
