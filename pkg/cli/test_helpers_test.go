package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	internaldb "insightql/internal/db"
)

// execCLI runs a fresh root command with args and returns its stdout, stderr
// and exit code.
func execCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...))
	code := run(context.Background(), root, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// useSampleDatabase points DATABASE_URL at a freshly seeded SQLite file and
// keeps the rest of the configuration at its defaults.
func useSampleDatabase(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"CACHE_URL", "MAX_ROWS", "QUERY_TIMEOUT_SECONDS", "CACHE_TTL_SECONDS",
		"SQL_FORBIDDEN_KEYWORDS", "ANALYTICS_CLAMP_LIMIT", "QUERY_RATE_LIMIT_RPS", "CHART_PROFILER",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	url := "sqlite://" + internaldb.TestSQLitePath(t)
	t.Setenv("DATABASE_URL", url)
	return url
}

// writeFile writes content to name inside a temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
