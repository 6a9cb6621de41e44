package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentic-research/kgtab/internal/resource"
	_ "modernc.org/sqlite"
)

// StreamSQLite iterates over the results(id, record) table of a SQLite
// database in rowid order, calling fn with each decoded record. Only one
// record is alive at a time.
func StreamSQLite(ctx context.Context, dbPath string, fn func(recordID string, tree *resource.Tree) error) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.QueryContext(ctx, "SELECT id, record FROM results ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		v, err := resource.DecodeJSON([]byte(raw))
		if err != nil {
			return fmt.Errorf("parse record %s: %w", id, err)
		}
		tr, ok := v.(*resource.Tree)
		if !ok {
			return fmt.Errorf("record %s: expected an object, got %s", id, resource.Describe(v))
		}
		liftStoreMetadata(tr)
		if err := fn(id, tr); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadSQLite collects every record of the results table.
func LoadSQLite(ctx context.Context, dbPath string) ([]*resource.Tree, error) {
	var trees []*resource.Tree
	err := StreamSQLite(ctx, dbPath, func(_ string, tr *resource.Tree) error {
		trees = append(trees, tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trees, nil
}
