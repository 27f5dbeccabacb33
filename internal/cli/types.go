package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/unitframe/internal/config"
)

func newTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the known project types",
		Long: `List the project types that can be passed to --type. The default type,
used for paths without extension, is marked with "*".

A types-file in the configuration replaces the built-in table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := loadRegistry(config.FromContext(cmd.Context()))
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "KEY\tLANGUAGE\tEXTENSION\tTEMPLATE\tCATEGORY")

			def := reg.Default().Key

			for _, t := range reg.Types() {
				key := t.Key
				if key == def {
					key += "*"
				}

				category := t.Category
				if category == "" {
					category = "-"
				}

				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", key, t.Language, t.Extension, t.Template, category)
			}

			return tw.Flush()
		},
	}
}
