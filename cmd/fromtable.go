package cmd

import (
	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/table"
	"github.com/spf13/cobra"
)

func newFromTableCmd(a *app) *cobra.Command {
	var (
		flags    tableFlags
		expanded bool
	)
	cmd := &cobra.Command{
		Use:   "fromtable <table.csv|tables.db>",
		Short: "Rebuild resources from a table",
		Long: `Rebuild one resource per row. Column names are split on the nesting
delimiter into nested objects; missing cells leave no field. The resources are
printed as a JSON array.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable(cmd.Context(), a.fs, args[0], flags.table)
			if err != nil {
				return err
			}
			trees, err := table.FromTable(t, flags.fromOptions(cmd, a))
			if err != nil {
				return err
			}
			return writeTrees(cmd.OutOrStdout(), trees, resource.JSONOptions{Expanded: expanded})
		},
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVar(&expanded, "expanded", false, "write reserved keys as @id and @type")
	return cmd
}
