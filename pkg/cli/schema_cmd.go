package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"insightql/internal/app"
	"insightql/internal/domain"
	"insightql/internal/schema"
)

func newSchemaCmd(g *globals) *cobra.Command {
	var (
		format  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the structure of the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return domain.ErrValidation("unsupported schema format %q: use 'text' or 'json'", format)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				get := a.Schema.Get
				if refresh {
					get = a.Schema.Refresh
				}
				s, err := get(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if ok, err := printStructured(out, g.output, s); ok {
					return err
				}
				if format == "json" {
					return printJSON(out, s)
				}
				_, err = fmt.Fprint(out, schema.Format(s))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Schema format for text output (text, json)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-extract instead of using the cached schema")
	return cmd
}
