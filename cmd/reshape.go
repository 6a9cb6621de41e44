package cmd

import (
	"fmt"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/agentic-research/kgtab/internal/reshape"
	"github.com/agentic-research/kgtab/internal/source"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newReshapeCmd(a *app) *cobra.Command {
	var (
		keep      []string
		versioned bool
		outPath   string
	)
	cmd := &cobra.Command{
		Use:     "reshape <resources.json|results.db>",
		Short:   "Keep only selected fields of resources",
		Example: `  kgtab reshape people.json --keep id,p4.p1 --versioned
  kgtab reshape people.json --keep id,type --out results.db`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trees, err := loadTrees(cmd.Context(), a.fs, args[0], a.cfg.NAValues())
			if err != nil {
				return err
			}
			out, err := a.cfg.Reshaper().ReshapeMany(trees, keep, versioned)
			if err != nil {
				return err
			}
			if outPath == "" {
				return writeTrees(cmd.OutOrStdout(), out, resource.JSONOptions{})
			}
			if !isSQLitePath(outPath) {
				return fmt.Errorf("unsupported output %s: want a .db file", outPath)
			}
			if err := source.StoreSQLite(outPath, out); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"output": outPath, "resources": len(out)}).Info("stored results")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "results database to write instead of printing JSON")
	cmd.Flags().StringSliceVarP(&keep, "keep", "k", nil, "dotted paths of the fields to keep")
	cmd.Flags().BoolVar(&versioned, "versioned", false, "replace ids by the store's versioned id template")
	_ = cmd.MarkFlagRequired("keep")
	return cmd
}

func newCollectCmd(a *app) *cobra.Command {
	var follow string
	cmd := &cobra.Command{
		Use:     "collect <resources.json|results.db>",
		Short:   "Print every value found along a path, one per line",
		Example: `  kgtab collect people.json --follow p4.id`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trees, err := loadTrees(cmd.Context(), a.fs, args[0], a.cfg.NAValues())
			if err != nil {
				return err
			}
			values, err := reshape.CollectValues(resourceArray(trees), follow, nil)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, v := range values {
				if _, err := fmt.Fprintln(w, valueLine(v)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&follow, "follow", "f", "", "dotted path to follow")
	_ = cmd.MarkFlagRequired("follow")
	return cmd
}

func valueLine(v resource.Value) string {
	s, ok := v.(resource.Scalar)
	if !ok || s.IsNull() {
		return resource.Describe(v)
	}
	return s.Text()
}
