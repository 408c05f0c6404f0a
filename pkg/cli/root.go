// Package cli implements the insightql command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"insightql/internal/app"
	"insightql/internal/cache"
	"insightql/internal/chart"
	"insightql/internal/config"
	"insightql/internal/domain"
	"insightql/internal/service/analysis"
	"insightql/internal/sqlguard"
)

var (
	version = "dev"
	commit  = "none"
)

// globals holds the persistent flag values shared by every command.
type globals struct {
	output  outputFormat
	envFile string
}

// Execute runs the CLI.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, newRootCmd(), os.Stdout, os.Stderr)
}

func run(ctx context.Context, rootCmd *cobra.Command, stdout, stderr io.Writer) int {
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var silent errSilent
		if errors.As(err, &silent) {
			return 1
		}
		if rootCmd.PersistentFlags().Lookup("output").Value.String() == string(outputJSON) {
			_ = printJSON(stdout, map[string]string{
				"error": err.Error(),
				"kind":  domain.ErrorKind(err),
			})
		} else {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	g := &globals{output: outputText}

	rootCmd := &cobra.Command{
		Use:           "insightql",
		Short:         "Turn analysis plans into safe SQL, results and chart configs",
		Long:          "insightql compiles structured analysis plans into read-only SQL, runs them against SQLite, DuckDB, Postgres, MySQL or Snowflake, and picks a chart for the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadDotEnv(g.envFile)
		},
	}

	rootCmd.PersistentFlags().VarP(&g.output, "output", "o", "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Environment file loaded before reading configuration")

	rootCmd.AddCommand(newCompileCmd(g))
	rootCmd.AddCommand(newCheckCmd(g))
	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newQueryCmd(g))
	rootCmd.AddCommand(newPreviewCmd(g))
	rootCmd.AddCommand(newSchemaCmd(g))
	rootCmd.AddCommand(newSeedCmd(g))
	rootCmd.AddCommand(newCacheCmd(g))
	rootCmd.AddCommand(newVersionCmd(g))

	return rootCmd
}

// loadRuntime reads configuration and builds the logger. Config warnings are
// logged once the logger exists.
func loadRuntime(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return cfg, logger, nil
}

// withApp opens the full pipeline for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("close", "error", cerr)
		}
	}()
	return fn(ctx, a)
}

// newOfflineService builds an analysis service that never reaches a database.
// It serves compile and cache maintenance.
func newOfflineService(cfg *config.Config, store domain.Cache, logger *slog.Logger) *analysis.Service {
	return analysis.NewService(sqlguard.New(cfg.ForbiddenKeywords), nil, store, chart.NewEngine(nil), analysis.Options{
		MaxRows:    cfg.MaxRows,
		ClampLimit: cfg.ClampLimit,
	}, logger)
}

// openCache opens only the configured cache.
func openCache(ctx context.Context, cfg *config.Config) (domain.Cache, error) {
	store, err := cache.Open(ctx, cfg.CacheURL)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return store, nil
}
