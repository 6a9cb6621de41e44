package table

import (
	"fmt"
	"strings"

	"github.com/agentic-research/kgtab/internal/resource"
)

// ToOptions controls ToTable.
type ToOptions struct {
	// NA lists sentinel values written as NA. Null and NaN always are.
	NA []resource.Value
	// Delimiter joins nesting levels in column names (default ".").
	Delimiter string
	// Expanded heads reserved keys "@id" and "@type" at every level.
	Expanded bool
	// StoreMetadata appends one column per store metadata field found on
	// any tree, after the data columns.
	StoreMetadata bool
}

// FromOptions controls FromTable.
type FromOptions struct {
	// NA lists sentinel values treated like NA cells.
	NA []resource.Value
	// Delimiter splits column names into nesting levels (default ".").
	Delimiter string
}

func delimiterOr(d string) string {
	if d == "" {
		return resource.DefaultDelimiter
	}
	return d
}

// ToTable flattens trees into one row each. Nested trees become columns
// named parent{delim}child to any depth; arrays stay single cells. Columns
// appear in first-encounter order, scanning rows in input order and each row
// depth-first. A row lacking a column gets NA.
//
// Memory is O(rows × distinct paths across the batch): a path used by one
// tree costs a cell in every row.
func ToTable(trees []*resource.Tree, opts ToOptions) (*Table, error) {
	delim := delimiterOr(opts.Delimiter)
	data := New()
	var meta *Table
	if opts.StoreMetadata {
		meta = New()
	}

	for i, tr := range trees {
		row := make(map[string]resource.Value)
		if err := flatten(data, row, "", tr, i, delim, opts.NA, opts.Expanded); err != nil {
			return nil, err
		}
		data.appendMapped(row)

		if meta != nil {
			mrow := make(map[string]resource.Value)
			if err := flatten(meta, mrow, "", tr.StoreMetadata, i, delim, opts.NA, false); err != nil {
				return nil, err
			}
			meta.appendMapped(mrow)
		}
	}

	if meta != nil {
		for _, c := range meta.columns {
			if data.Column(c.Name) != nil {
				return nil, &ShapeConflictError{
					Column: c.Name,
					Path:   c.Name,
					Row:    0,
					Reason: "store metadata field collides with a data column",
				}
			}
			data.index[c.Name] = len(data.columns)
			data.columns = append(data.columns, c)
		}
	}
	return data, nil
}

// flatten records every leaf of tr into row and makes sure the table has a
// column for it. Missing leaves are recorded as nil so that their column
// still exists.
func flatten(t *Table, row map[string]resource.Value, prefix string, tr *resource.Tree, rowIdx int, delim string, na []resource.Value, expanded bool) error {
	for k, v := range tr.All() {
		name := resource.Header(k, expanded)
		if prefix != "" {
			name = prefix + delim + name
		}
		if sub, ok := v.(*resource.Tree); ok {
			if err := flatten(t, row, name, sub, rowIdx, delim, na, expanded); err != nil {
				return err
			}
			continue
		}
		if _, dup := row[name]; dup {
			return &ShapeConflictError{
				Column: name,
				Path:   name,
				Row:    rowIdx,
				Reason: "column produced twice",
			}
		}
		t.AddColumn(name)
		if resource.IsMissing(v, na) {
			row[name] = nil
		} else {
			row[name] = v
		}
	}
	return nil
}

// FromTable rebuilds one tree per row. Column names are split on the
// delimiter; intermediate trees are created on first use and shared by the
// following columns of the same row. NA cells, and cells equal to an NA
// sentinel, leave no field at all.
//
// A path that is both a scalar and a nested object within one row is a
// ShapeConflictError; nothing is returned in that case.
func FromTable(t *Table, opts FromOptions) ([]*resource.Tree, error) {
	delim := delimiterOr(opts.Delimiter)
	paths := make([][]string, len(t.columns))
	for j, c := range t.columns {
		segs, err := resource.SplitPath(c.Name, delim)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", j, err)
		}
		for i, s := range segs {
			segs[i] = resource.FieldName(s)
		}
		paths[j] = segs
	}

	out := make([]*resource.Tree, 0, t.rows)
	for row := 0; row < t.rows; row++ {
		tr := resource.New()
		for j, c := range t.columns {
			v, ok := c.Cell(row)
			if !ok || resource.IsMissing(v, opts.NA) {
				continue
			}
			if err := assign(tr, paths[j], v, delim); err != nil {
				err.Column = c.Name
				err.Row = row
				return nil, err
			}
		}
		out = append(out, tr)
	}
	return out, nil
}

func assign(root *resource.Tree, segs []string, v resource.Value, delim string) *ShapeConflictError {
	cur := root
	last := len(segs) - 1
	for i, seg := range segs[:last] {
		existing, ok := cur.Get(seg)
		if !ok {
			child := resource.New()
			cur.Set(seg, child)
			cur = child
			continue
		}
		child, isTree := existing.(*resource.Tree)
		if !isTree {
			return &ShapeConflictError{
				Path:   strings.Join(segs[:i+1], delim),
				Reason: "scalar field used as a nested object",
			}
		}
		cur = child
	}

	leaf := segs[last]
	if existing, ok := cur.Get(leaf); ok {
		reason := "field assigned twice"
		if existing.Kind() == resource.KindTree {
			reason = "nested object used as a scalar field"
		}
		return &ShapeConflictError{Path: strings.Join(segs, delim), Reason: reason}
	}
	if sub, ok := v.(*resource.Tree); ok {
		v = sub.Clone()
	}
	cur.Set(leaf, v)
	return nil
}
