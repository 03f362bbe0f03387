package modifier

import (
	"fmt"
	"strings"
)

const (
	separator  = '^'
	escape     = '\\'
	parenOpen  = '('
	parenClose = ')'
)

// splitTopLevel splits s on sep, ignoring separators that are escaped or
// nested inside parentheses. Escapes are kept in the returned parts.
// Unbalanced parentheses are reported as ErrInvalidExpression.
func splitTopLevel(s string, sep byte) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case escape:
			i++
		case parenOpen:
			depth++
		case parenClose:
			if depth == 0 {
				return nil, fmt.Errorf("%w: unbalanced ')' at %d in %q", ErrInvalidExpression, i, s)
			}
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '(' in %q", ErrInvalidExpression, s)
	}
	return append(parts, s[start:]), nil
}

// splitArgs splits a modifier argument list on sep and unescapes each field.
func splitArgs(s string, sep byte) []string {
	parts, err := splitTopLevel(s, sep)
	if err != nil {
		// Arguments are already balanced-checked as part of their token;
		// fall back to a plain split for stray parentheses inside names.
		parts = strings.Split(s, string(sep))
	}
	for i, p := range parts {
		parts[i] = unescape(p)
	}
	return parts
}

// unescape drops one level of backslash escaping.
func unescape(s string) string {
	if strings.IndexByte(s, escape) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == escape && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// isGroup reports whether tok is a single parenthesised group, i.e. the
// opening parenthesis at 0 is closed by the final byte.
func isGroup(tok string) bool {
	if len(tok) < 2 || tok[0] != parenOpen || tok[len(tok)-1] != parenClose {
		return false
	}
	depth := 0
	for i := 0; i < len(tok); i++ {
		switch tok[i] {
		case escape:
			i++
		case parenOpen:
			depth++
		case parenClose:
			depth--
			if depth == 0 {
				return i == len(tok)-1
			}
		}
	}
	return false
}
