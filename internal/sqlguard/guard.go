// Package sqlguard is the mandatory safety gate for SQL that reaches a database.
//
// The gate works on raw text and does not parse SQL. It rejects statements
// that carry a denylisted keyword, a comment marker or a stacked statement.
// Keyword matching also sees string literals, so a filter value such as
// 'Delete' is rejected too.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"insightql/internal/domain"
)

// DefaultForbiddenKeywords is the denylist of mutating, DDL and procedural keywords.
var DefaultForbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"REPLACE", "MERGE", "GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL",
}

type keywordRule struct {
	keyword string
	re      *regexp.Regexp
}

// Guard validates SQL text against a fixed keyword denylist and structural rules.
// A Guard is immutable and safe for concurrent use.
type Guard struct {
	rules []keywordRule
}

// New builds a Guard for the given keywords. Keywords are matched
// case-insensitively on word boundaries and reported in the order given.
// An empty list falls back to DefaultForbiddenKeywords.
func New(keywords []string) *Guard {
	if len(keywords) == 0 {
		keywords = DefaultForbiddenKeywords
	}
	g := &Guard{}
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		g.rules = append(g.rules, keywordRule{
			keyword: kw,
			re:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}
	return g
}

// Keywords returns the normalized denylist.
func (g *Guard) Keywords() []string {
	out := make([]string, len(g.rules))
	for i, r := range g.rules {
		out[i] = r.keyword
	}
	return out
}

// Check reports whether sql is safe to execute and, if not, why.
func (g *Guard) Check(sql string) (bool, string) {
	if err := g.Validate(sql); err != nil {
		var v *domain.SafetyViolation
		if errors.As(err, &v) {
			return false, v.Message
		}
		return false, err.Error()
	}
	return true, ""
}

// Validate returns a *domain.SafetyViolation for the first rule sql breaks.
// Rules are checked in order: empty text, denylisted keyword, comment marker,
// then statement stacking.
func (g *Guard) Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return domain.ErrSafety(domain.RuleEmpty, "SQL statement is empty")
	}

	for _, r := range g.rules {
		if r.re.MatchString(sql) {
			v := domain.ErrSafety(domain.RuleKeyword, "forbidden SQL keyword detected: %s", r.keyword)
			v.Keyword = r.keyword
			return v
		}
	}

	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") {
		return domain.ErrSafety(domain.RuleComment, "SQL comments are not allowed")
	}

	if strings.Contains(stripTerminator(sql), ";") {
		return domain.ErrSafety(domain.RuleMultiStatement, "multiple SQL statements are not allowed")
	}
	return nil
}

// stripTerminator removes trailing whitespace and at most one trailing semicolon.
func stripTerminator(sql string) string {
	sql = strings.TrimRightFunc(sql, isSpace)
	return strings.TrimSuffix(sql, ";")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

var (
	limitWord     = regexp.MustCompile(`(?i)\bLIMIT\b`)
	trailingLimit = regexp.MustCompile(`(?is)\bLIMIT\s+(\d+)(\s+OFFSET\s+\d+)?\s*;?\s*$`)
)

// HasLimit reports whether sql contains the word LIMIT anywhere.
func HasLimit(sql string) bool {
	return limitWord.MatchString(sql)
}

// EnsureLimit appends `LIMIT rowLimit` to sql when it has no LIMIT clause,
// after removing trailing whitespace and semicolons. SQL that already has a
// LIMIT is returned unchanged.
func EnsureLimit(sql string, rowLimit int) string {
	if HasLimit(sql) {
		return sql
	}
	trimmed := strings.TrimRightFunc(sql, func(r rune) bool { return r == ';' || isSpace(r) })
	trimmed = strings.TrimLeftFunc(trimmed, isSpace)
	return fmt.Sprintf("%s LIMIT %d", trimmed, rowLimit)
}

// ClampLimit lowers a trailing numeric `LIMIT n` to rowLimit when n exceeds it.
// Anything else, including a LIMIT inside a subquery, is returned unchanged.
func ClampLimit(sql string, rowLimit int) string {
	loc := trailingLimit.FindStringSubmatchIndex(sql)
	if loc == nil {
		return sql
	}
	digits := sql[loc[2]:loc[3]]
	if !exceeds(digits, rowLimit) {
		return sql
	}
	return sql[:loc[2]] + strconv.Itoa(rowLimit) + sql[loc[3]:]
}

// exceeds compares a decimal digit string against n without overflowing.
func exceeds(digits string, n int) bool {
	digits = strings.TrimLeft(digits, "0")
	limit := strconv.Itoa(n)
	if len(digits) != len(limit) {
		return len(digits) > len(limit)
	}
	return digits > limit
}
