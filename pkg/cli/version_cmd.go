package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if ok, err := printStructured(out, g.output, map[string]string{
				"version": version,
				"commit":  commit,
			}); ok {
				return err
			}
			_, _ = fmt.Fprintf(out, "insightql version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
