package cmd

import (
	"fmt"
	"strings"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/table"
	"github.com/agentic-research/kgtab/internal/tableio"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type tableFlags struct {
	na            []string
	nesting       string
	expanded      bool
	storeMetadata bool
	table         string
}

func (f *tableFlags) register(cmd *cobra.Command, withWriteOpts bool) {
	cmd.Flags().StringSliceVar(&f.na, "na", nil, "values treated as missing (overrides config)")
	cmd.Flags().StringVar(&f.nesting, "nesting", "", "delimiter between nesting levels in column names (overrides config)")
	cmd.Flags().StringVar(&f.table, "table", defaultTableName, "table name inside a SQLite database")
	if withWriteOpts {
		cmd.Flags().BoolVar(&f.expanded, "expanded", false, "head reserved keys as @id and @type")
		cmd.Flags().BoolVar(&f.storeMetadata, "store-metadata", false, "append store metadata columns")
	}
}

func (f *tableFlags) toOptions(cmd *cobra.Command, a *app) table.ToOptions {
	opts := a.cfg.ToOptions()
	if cmd.Flags().Changed("na") {
		opts.NA = resource.Strings(f.na...)
	}
	if cmd.Flags().Changed("nesting") {
		opts.Delimiter = f.nesting
	}
	if cmd.Flags().Changed("expanded") {
		opts.Expanded = f.expanded
	}
	if cmd.Flags().Changed("store-metadata") {
		opts.StoreMetadata = f.storeMetadata
	}
	return opts
}

func (f *tableFlags) fromOptions(cmd *cobra.Command, a *app) table.FromOptions {
	opts := a.cfg.FromOptions()
	if cmd.Flags().Changed("na") {
		opts.NA = resource.Strings(f.na...)
	}
	if cmd.Flags().Changed("nesting") {
		opts.Delimiter = f.nesting
	}
	return opts
}

func newToTableCmd(a *app) *cobra.Command {
	var (
		flags tableFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "totable <resources.json|results.db>",
		Short: "Flatten resources into a table",
		Long: `Flatten resources into one row each. Nested objects become columns named
parent.child; resources lacking a column get an empty (missing) cell.

The table is printed as aligned text unless --out is given: "-" writes CSV to
stdout, a .csv path writes a CSV file, a .db path writes a SQLite table.`,
		Example: `  kgtab totable people.json
  kgtab totable people.json --out people.csv --na NA --store-metadata`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.toOptions(cmd, a)
			trees, err := loadTrees(cmd.Context(), a.fs, args[0], opts.NA)
			if err != nil {
				return err
			}
			t, err := table.ToTable(trees, opts)
			if err != nil {
				return err
			}

			switch {
			case out == "":
				return tableio.RenderText(cmd.OutOrStdout(), t)
			case out == "-":
				return tableio.WriteCSV(cmd.OutOrStdout(), t)
			case isSQLitePath(out):
				db, err := tableio.OpenSQLite(out)
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()
				if err := tableio.WriteSQLite(cmd.Context(), db, flags.table, t); err != nil {
					return err
				}
			case strings.HasSuffix(strings.ToLower(out), ".csv"):
				f, err := a.fs.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				if err := tableio.WriteCSV(f, t); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported output %q: use -, a .csv or a .db path", out)
			}
			logrus.WithFields(logrus.Fields{
				"output":  out,
				"rows":    t.NumRows(),
				"columns": t.NumColumns(),
			}).Info("wrote table")
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output: -, a .csv path or a .db path (default: aligned text)")
	return cmd
}
