package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"insightql/internal/app"
	"insightql/internal/domain"
	"insightql/internal/plansql"
)

func newCompileCmd(g *globals) *cobra.Command {
	var planFile string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile an analysis plan to SQL without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := domain.LoadPlanFile(planFile)
			if err != nil {
				return err
			}
			cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			sql, err := newOfflineService(cfg, nil, logger).Compile(plan)
			if err != nil {
				return err
			}
			if ok, err := printStructured(cmd.OutOrStdout(), g.output, map[string]string{"sql": sql}); ok {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return err
		},
	}
	cmd.Flags().StringVar(&planFile, "plan", "", "Plan file (.json, .yaml or .yml)")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newRunCmd(g *globals) *cobra.Command {
	var planFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an analysis plan and pick a chart for the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := domain.LoadPlanFile(planFile)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Analysis.Run(ctx, plan)
				if err != nil {
					return err
				}
				return printAnalysis(cmd.OutOrStdout(), g.output, res)
			})
		},
	}
	cmd.Flags().StringVar(&planFile, "plan", "", "Plan file (.json, .yaml or .yml)")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newQueryCmd(g *globals) *cobra.Command {
	var sqlText string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run read-only SQL through the safety gate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Analysis.RunSQL(ctx, sqlText)
				if err != nil {
					return err
				}
				return printAnalysis(cmd.OutOrStdout(), g.output, res)
			})
		},
	}
	cmd.Flags().StringVar(&sqlText, "sql", "", "SQL statement")
	_ = cmd.MarkFlagRequired("sql")
	return cmd
}

func newPreviewCmd(g *globals) *cobra.Command {
	var (
		columns string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "preview TABLE",
		Short: "Show the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cols []string
			for _, c := range strings.Split(columns, ",") {
				if c = strings.TrimSpace(c); c != "" {
					cols = append(cols, c)
				}
			}
			sql, err := plansql.CompileSimple(args[0], cols, nil, limit)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Analysis.RunSQL(ctx, sql)
				if err != nil {
					return err
				}
				return printAnalysis(cmd.OutOrStdout(), g.output, res)
			})
		},
	}
	cmd.Flags().StringVar(&columns, "columns", "", "Comma-separated columns (default all)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Rows to show")
	return cmd
}
