package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"insightql/internal/domain"
	"insightql/internal/sqlguard"
)

// checkResult is the structured verdict of the check command.
type checkResult struct {
	Safe    bool   `json:"safe"`
	SQL     string `json:"sql"`
	Rule    string `json:"rule,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Message string `json:"message,omitempty"`
}

func newCheckCmd(g *globals) *cobra.Command {
	var sqlText, file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check SQL against the safety gate",
		Long:  "Check SQL against the safety gate. Exits with status 1 when the statement is rejected.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (sqlText == "") == (file == "") {
				return domain.ErrValidation("exactly one of --sql or --file is required")
			}
			if file != "" {
				raw, err := os.ReadFile(file) //nolint:gosec // path is caller-controlled
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				sqlText = string(raw)
			}
			cfg, _, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			verdict := checkResult{Safe: true, SQL: sqlText}
			gateErr := sqlguard.New(cfg.ForbiddenKeywords).Validate(sqlText)
			var violation *domain.SafetyViolation
			if errors.As(gateErr, &violation) {
				verdict = checkResult{SQL: sqlText, Rule: violation.Rule, Keyword: violation.Keyword, Message: violation.Message}
			}

			out := cmd.OutOrStdout()
			if g.output == outputText {
				if verdict.Safe {
					_, _ = color.New(color.FgGreen, color.Bold).Fprintln(out, "✓ safe")
				} else {
					_, _ = color.New(color.FgRed, color.Bold).Fprintf(out, "✗ rejected (%s): %s\n", verdict.Rule, verdict.Message)
				}
				return gateErr
			}
			if _, err := printStructured(out, g.output, verdict); err != nil {
				return err
			}
			if gateErr != nil {
				// The verdict is already on stdout; only the exit status is left.
				return errSilent{gateErr}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sqlText, "sql", "", "SQL statement")
	cmd.Flags().StringVar(&file, "file", "", "File containing the SQL statement")
	return cmd
}

// errSilent carries a failure whose details were already printed.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }

func (e errSilent) Unwrap() error { return e.err }
