package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"insightql/internal/app"
)

func newSeedCmd(g *globals) *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the sample sales dataset",
		Long:  "Create the sample sales dataset (regions, products, customers, sales). Supports sqlite, postgres and mysql. Safe to re-run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if dbURL == "" {
				dbURL = cfg.DatabaseURL
			}

			applied, err := app.Seed(cmd.Context(), dbURL, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := printStructured(out, g.output, map[string]any{"database_url": dbURL, "migrations_applied": applied}); ok {
				return err
			}
			_, err = fmt.Fprintf(out, "Seeded %s (%d migrations applied)\n", dbURL, applied)
			return err
		},
	}
	cmd.Flags().StringVar(&dbURL, "db", "", "Database URL (default DATABASE_URL)")
	return cmd
}
