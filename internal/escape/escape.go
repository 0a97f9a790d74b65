package escape

import "strings"

// Escape rewrites s so that the result can be embedded between single or
// double quotes in generated JavaScript source. Evaluating the resulting
// literal yields exactly s.
//
// Beyond the usual suspects (backslash, quotes, newlines, tabs, NUL),
// U+2028 and U+2029 are escaped too: both are legal inside a string value
// but terminate a line inside a string literal, so leaving them raw
// produces code that fails to parse only for inputs containing them.
func Escape(s string) string {
	// Fast path: nothing to escape.
	if !needsEscape(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\x00':
			b.WriteString(`\u0000`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Quote returns s as a complete single-quoted JavaScript string literal.
func Quote(s string) string {
	return "'" + Escape(s) + "'"
}

func needsEscape(s string) bool {
	for _, r := range s {
		switch r {
		case '\\', '\'', '"', '\n', '\r', '\t', '\x00', '\u2028', '\u2029':
			return true
		}
	}
	return false
}
