package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFormatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "format <name> [args...]",
		Short: "Fill a configured formatter with positional arguments",
		Example: `  # with formatters = { identifier = "https://example.org/{}/{}" }
  kgtab --config kgtab.hcl format identifier persons 123`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.Format(args[0], stringArgs(args[1:])...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
