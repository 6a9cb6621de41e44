package tableio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/table"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// WriteSQLite replaces table name with the contents of t. Columns keep
// their order and carry no declared type; NA cells become NULL, nested trees
// and arrays are stored as JSON text. Booleans are stored as 0 or 1.
func WriteSQLite(ctx context.Context, db *sql.DB, name string, t *table.Table) (err error) {
	if name == "" {
		return errors.New("empty table name")
	}
	if t.NumColumns() == 0 {
		return fmt.Errorf("table %q has no columns", name)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cols := make([]string, t.NumColumns())
	marks := make([]string, t.NumColumns())
	for j, n := range t.Names() {
		cols[j] = quoteIdent(n)
		marks[j] = "?"
	}
	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Row(i) {
			if args[j], err = sqlArg(c); err != nil {
				return fmt.Errorf("row %d, column %q: %w", i, t.Names()[j], err)
			}
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sqlArg(c table.Cell) (any, error) {
	if c.NA {
		return nil, nil
	}
	s, ok := c.Value.(resource.Scalar)
	if !ok {
		out, err := resource.EncodeJSON(c.Value, resource.JSONOptions{})
		if err != nil {
			return nil, err
		}
		return string(out), nil
	}
	return s.Interface(), nil
}

// ReadSQLite reads table name in rowid order. NULL is NA; integers, reals
// and text map to the matching scalar types, blobs to strings.
func ReadSQLite(ctx context.Context, db *sql.DB, name string) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}
	t := table.New(names...)

	raw := make([]any, len(names))
	ptrs := make([]any, len(names))
	for j := range raw {
		ptrs[j] = &raw[j]
	}
	cells := make([]table.Cell, len(names))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for j, v := range raw {
			cells[j] = cellFromSQL(v)
		}
		if err := t.AppendRow(cells...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return t, nil
}

func cellFromSQL(v any) table.Cell {
	switch x := v.(type) {
	case nil:
		return table.NA
	case int64:
		return table.V(resource.Int(x))
	case float64:
		return table.V(resource.Float(x))
	case bool:
		return table.V(resource.Bool(x))
	case string:
		return table.S(x)
	case []byte:
		return table.S(string(x))
	default:
		return table.S(fmt.Sprint(x))
	}
}
