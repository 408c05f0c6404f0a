package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result and schema cache",
	}
	cmd.AddCommand(newCacheClearCmd(g))
	return cmd
}

func newCacheClearCmd(g *globals) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached entries",
		Long:  "Delete cached query results, or every entry whose key starts with --prefix (for example \"schema:\").",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := openCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			n, err := newOfflineService(cfg, store, logger).ClearCache(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := printStructured(out, g.output, map[string]int{"deleted": n}); ok {
				return err
			}
			_, err = fmt.Fprintf(out, "Deleted %d cache entries\n", n)
			return err
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix to delete (default query results)")
	return cmd
}
