// Package query implements the ScriptFlow log query DSL: tokenization,
// field and value normalization, date-range resolution, parsing, and the
// translation of parsed queries into store filters.
package query

import "strings"

// Tokenize splits a raw query string into tokens on unquoted whitespace.
// A single or double quote opens a quoted token: everything up to the
// matching closing quote of the same character, whitespace included,
// belongs to one token. The token text keeps its surrounding quotes; the
// parser strips them later. An unterminated quote swallows the remainder
// of the input into one token. Empty or whitespace-only input produces no
// tokens.
func Tokenize(raw string) []string {
	var tokens []string
	var current strings.Builder
	var quote rune // 0 when outside quotes

	for _, r := range raw {
		switch {
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			current.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// stripQuotes removes one leading and trailing matching quote pair, not
// recursively.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		first := s[0]
		if (first == '"' || first == '\'') && s[len(s)-1] == first {
			return s[1 : len(s)-1]
		}
	}
	return s
}
