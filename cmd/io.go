package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/source"
	"github.com/agentic-research/kgtab/internal/table"
	"github.com/agentic-research/kgtab/internal/tableio"
	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"
)

const defaultTableName = "resources"

func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// loadTrees reads resources from a JSON file, or from the results table of
// a SQLite database. Fields equal to one of na are dropped.
func loadTrees(ctx context.Context, fs billy.Filesystem, path string, na []resource.Value) ([]*resource.Tree, error) {
	var (
		trees []*resource.Tree
		err   error
	)
	if isSQLitePath(path) {
		trees, err = source.LoadSQLite(ctx, path)
	} else {
		trees, err = source.LoadJSON(fs, path)
	}
	if err != nil {
		return nil, err
	}
	if len(na) > 0 {
		for i, tr := range trees {
			trees[i] = resource.DropMissing(tr, na).(*resource.Tree)
		}
	}
	logrus.WithFields(logrus.Fields{"input": path, "resources": len(trees)}).Info("loaded resources")
	return trees, nil
}

// loadTable reads a CSV file, or a table of a SQLite database.
func loadTable(ctx context.Context, fs billy.Filesystem, path, name string) (*table.Table, error) {
	if isSQLitePath(path) {
		db, err := tableio.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
		return tableio.ReadSQLite(ctx, db, name)
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	t, err := tableio.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func resourceArray(trees []*resource.Tree) resource.Array {
	arr := make(resource.Array, len(trees))
	for i, tr := range trees {
		arr[i] = tr
	}
	return arr
}

// writeTrees writes trees as one JSON array followed by a newline.
func writeTrees(w io.Writer, trees []*resource.Tree, opts resource.JSONOptions) error {
	out, err := resource.EncodeJSON(resourceArray(trees), opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}
