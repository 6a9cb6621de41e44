package table

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/kgtab/internal/resource"
)

// Column is a named, row-aligned sequence of cells. Missing cells are
// tracked in a bitmap rather than stored as values.
type Column struct {
	Name  string
	cells []resource.Value
	na    *roaring.Bitmap // rows whose cell is NA
}

func newColumn(name string, rows int) *Column {
	c := &Column{
		Name:  name,
		cells: make([]resource.Value, 0, rows),
		na:    roaring.New(),
	}
	for i := 0; i < rows; i++ {
		c.appendNA()
	}
	return c
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.cells) }

// IsNA reports whether the cell at row is the NA marker.
func (c *Column) IsNA(row int) bool {
	return c.na.Contains(uint32(row))
}

// NACount returns the number of NA cells.
func (c *Column) NACount() int {
	return int(c.na.GetCardinality())
}

// Cell returns the value at row, or false when the cell is NA.
func (c *Column) Cell(row int) (resource.Value, bool) {
	if row < 0 || row >= len(c.cells) || c.IsNA(row) {
		return nil, false
	}
	return c.cells[row], true
}

func (c *Column) append(v resource.Value) {
	c.cells = append(c.cells, v)
}

func (c *Column) appendNA() {
	c.na.Add(uint32(len(c.cells)))
	c.cells = append(c.cells, resource.Null())
}

// Cell is one input cell for AppendRow.
type Cell struct {
	Value resource.Value
	NA    bool
}

// NA is the missing-value cell.
var NA = Cell{NA: true}

// V wraps a value as a cell. A nil value is NA.
func V(v resource.Value) Cell {
	if v == nil {
		return NA
	}
	return Cell{Value: v}
}

// S wraps a string as a cell.
func S(s string) Cell { return V(resource.String(s)) }

// Table is an ordered set of equally long columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a table with the given column names and no rows.
func New(names ...string) *Table {
	t := &Table{index: make(map[string]int, len(names))}
	for _, n := range names {
		t.AddColumn(n)
	}
	return t
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.columns }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.columns[i]
}

// AddColumn appends a column, padding it with NA for the rows already
// present. Adding an existing name returns the existing column.
func (t *Table) AddColumn(name string) *Column {
	if c := t.Column(name); c != nil {
		return c
	}
	c := newColumn(name, t.rows)
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, c)
	return c
}

// AppendRow adds one row. It needs exactly one cell per column.
func (t *Table) AppendRow(cells ...Cell) error {
	if len(cells) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	for i, cell := range cells {
		if cell.NA || cell.Value == nil {
			t.columns[i].appendNA()
		} else {
			t.columns[i].append(cell.Value)
		}
	}
	t.rows++
	return nil
}

// appendMapped adds one row from a name→value map; columns absent from the
// map receive NA. Names must already be columns.
func (t *Table) appendMapped(row map[string]resource.Value) {
	for _, c := range t.columns {
		if v, ok := row[c.Name]; ok && v != nil {
			c.append(v)
		} else {
			c.appendNA()
		}
	}
	t.rows++
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Cell {
	out := make([]Cell, len(t.columns))
	for j, c := range t.columns {
		if v, ok := c.Cell(i); ok {
			out[j] = Cell{Value: v}
		} else {
			out[j] = NA
		}
	}
	return out
}

// Equal reports whether both tables have the same column names in the same
// order and the same cells, NA included.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for j, c := range t.columns {
		d := o.columns[j]
		if c.Name != d.Name || !c.na.Equals(d.na) {
			return false
		}
		for i := 0; i < t.rows; i++ {
			if c.IsNA(i) {
				continue
			}
			if !resource.Equal(c.cells[i], d.cells[i]) {
				return false
			}
		}
	}
	return true
}
