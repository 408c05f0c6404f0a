// Package cache provides the key/value stores used to reuse query results and
// extracted schemas, plus the helpers that encode values for them.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key prefixes.
const (
	PrefixSQLResult = "sql_result"
	PrefixSchema    = "schema"
)

// Key returns prefix + ":" + the first 16 hex characters of the SHA-256 of the
// ":"-joined parts.
func Key(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return prefix + ":" + hex.EncodeToString(sum[:])[:16]
}
