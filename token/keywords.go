package token

import "strings"

// keywords is the closed set of case-insensitive reserved words recognized
// by the lexer (spec.md §4.1). Function/aggregate names (COUNT, SUM, …)
// are deliberately NOT keywords: they are ordinary identifiers resolved to
// function calls by the lowerer, so a user can still use them as variable
// names without ambiguity at the lexical level.
var keywords = buildKeywordSet(
	"MATCH", "OPTIONAL", "WHERE", "WITH", "RETURN", "UNWIND", "AS",
	"DISTINCT", "ORDER", "BY", "ASC", "DESC", "SKIP", "LIMIT",
	"AND", "OR", "NOT", "XOR", "IN", "CONTAINS", "STARTS", "ENDS",
	"IS", "NULL", "TRUE", "FALSE",
	"CASE", "WHEN", "THEN", "ELSE", "END",
	"EXISTS",
	"CREATE", "MERGE", "SET", "DELETE", "DETACH", "REMOVE", "CALL", "UNION",
)

func buildKeywordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsKeyword reports whether ident (compared case-insensitively) is a
// reserved word, and returns its canonical upper-case spelling.
func IsKeyword(ident string) (string, bool) {
	up := strings.ToUpper(ident)
	if keywords[up] {
		return up, true
	}
	return "", false
}
