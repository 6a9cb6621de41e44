package source

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"github.com/agentic-research/kgtab/internal/resource"
	_ "modernc.org/sqlite"
)

const (
	defaultBatchSize  = 1000
	positionKeyPrefix = "#"
)

// ResultsWriter stores trees in the results(id, record) table read back by
// StreamSQLite. Inserts are batched into transactions; Close commits the
// last one.
type ResultsWriter struct {
	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	batchSize int
	count     int
	mu        sync.Mutex
}

// NewResultsWriter opens dbPath and replaces its results table.
func NewResultsWriter(dbPath string) (*ResultsWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}
	schema := `
	DROP TABLE IF EXISTS results;
	CREATE TABLE results (
		id TEXT PRIMARY KEY,
		record TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &ResultsWriter{db: db, batchSize: defaultBatchSize}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *ResultsWriter) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmt, err = w.tx.Prepare("INSERT INTO results (id, record) VALUES (?, ?)")
	return err
}

func (w *ResultsWriter) commitTx() error {
	if w.stmt != nil {
		_ = w.stmt.Close()
	}
	return w.tx.Commit()
}

// Write appends tr. Its id is the record key; a tree without one is keyed
// by "#" and its position among the written records. Store metadata is kept
// under _store_metadata.
func (w *ResultsWriter) Write(tr *resource.Tree) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := tr.ID()
	if id == "" {
		id = positionKeyPrefix + strconv.Itoa(w.count)
	}
	rec := tr
	if tr.StoreMetadata != nil {
		rec = tr.ShallowCopy()
		rec.Set(StoreMetadataKey, tr.StoreMetadata)
	}
	raw, err := resource.EncodeJSON(rec, resource.JSONOptions{})
	if err != nil {
		return fmt.Errorf("encode record %s: %w", id, err)
	}
	if _, err := w.stmt.Exec(id, string(raw)); err != nil {
		return fmt.Errorf("insert record %s: %w", id, err)
	}

	w.count++
	if w.count%w.batchSize == 0 {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		if err := w.beginTx(); err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
	}
	return nil
}

// Count is the number of records written so far.
func (w *ResultsWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close commits pending records and closes the database.
func (w *ResultsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.commitTx()
	if cerr := w.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// StoreSQLite writes trees to the results table of dbPath.
func StoreSQLite(dbPath string, trees []*resource.Tree) error {
	w, err := NewResultsWriter(dbPath)
	if err != nil {
		return err
	}
	for _, tr := range trees {
		if err := w.Write(tr); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
