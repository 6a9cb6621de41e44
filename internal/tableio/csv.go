// Package tableio moves tables in and out of external containers: CSV
// streams, SQLite tables and aligned text for terminals.
package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/table"
)

// WriteCSV writes a header line and one record per row. NA cells are empty;
// nested trees and arrays are written as compact JSON.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Row(i) {
			s, err := cellText(c)
			if err != nil {
				return fmt.Errorf("row %d, column %q: %w", i, t.Names()[j], err)
			}
			rec[j] = s
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table whose first record is the header. Empty cells are NA;
// every other cell is a string.
func ReadCSV(r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return table.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
	}

	t := table.New(header...)
	cells := make([]table.Cell, len(header))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		for j, s := range rec {
			if s == "" {
				cells[j] = table.NA
			} else {
				cells[j] = table.S(s)
			}
		}
		if err := t.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, nil
}

func cellText(c table.Cell) (string, error) {
	if c.NA {
		return "", nil
	}
	if s, ok := c.Value.(resource.Scalar); ok {
		return s.Text(), nil
	}
	out, err := resource.EncodeJSON(c.Value, resource.JSONOptions{})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
