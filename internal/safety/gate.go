// Package safety decides whether a SQL string may be executed. It is a
// denylist over normalized text, not a SQL parser: it will reject some
// legitimate SELECTs (e.g. the word "delete" inside a string literal) and
// is the only check standing between generated text and the database.
package safety

import "strings"

// writeKeywords are statement keywords that must never reach the store.
// Matched as whole space-delimited tokens after normalization.
var writeKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "truncate",
	"create", "grant", "revoke", "replace", "merge",
}

// IsSafe reports whether sql is acceptable to execute. It is pure and total:
// any input, including empty or garbage text, yields a verdict, never a
// panic. Checks are case-insensitive over whitespace-collapsed text.
func IsSafe(sql string) bool {
	normalized := strings.Join(strings.Fields(strings.ToLower(sql)), " ")
	if normalized == "" {
		return false
	}

	// Pad so keywords at either end of the string still match as tokens.
	padded := " " + normalized + " "
	for _, kw := range writeKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return false
		}
	}

	if strings.Contains(normalized, "--") ||
		strings.Contains(normalized, "/*") ||
		strings.Contains(normalized, "*/") {
		return false
	}

	// One trailing statement terminator is tolerated; any other semicolon
	// means multiple statements.
	if strings.Contains(strings.TrimSuffix(normalized, ";"), ";") {
		return false
	}

	return strings.HasPrefix(normalized, "select")
}
