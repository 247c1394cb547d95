package extract

import (
	"fmt"
	"strings"
)

// Normalize rewrites near-JSON text into strict JSON where the intent is
// unambiguous: single-quoted strings become double-quoted, and literal
// newlines, carriage returns, tabs, backslashes and quotes inside string
// bodies are escaped. Whether a quote terminates its string is decided by
// the character that follows it, so apostrophes and stray quotes inside
// file content survive as content. Strict JSON passes through unchanged and
// the rewrite is idempotent, so every parse attempt can apply it safely.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 64)

	prev := byte(0)
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"':
			i = normalizeString(&b, s, i)
			prev = '"'
		case c == '\'' && quoteOpens(prev):
			i = normalizeString(&b, s, i)
			prev = '"'
		default:
			b.WriteByte(c)
			if !isSpace(c) {
				prev = c
			}
			i++
		}
	}
	return b.String()
}

// normalizeString consumes the string literal opening at s[start] and writes
// its strict double-quoted form. It returns the index just past the consumed
// input, or len(s) when the literal never terminates.
func normalizeString(b *strings.Builder, s string, start int) int {
	quote := s[start]
	b.WriteByte('"')
	i := start + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 >= len(s) {
				b.WriteString(`\\`)
				return len(s)
			}
			switch n := s[i+1]; n {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				b.WriteByte('\\')
				b.WriteByte(n)
				i += 2
			case '\'':
				// Not a JSON escape; the apostrophe stands on its own.
				b.WriteByte('\'')
				i += 2
			default:
				// A literal backslash. Emit it escaped and reprocess
				// whatever follows it.
				b.WriteString(`\\`)
				i++
			}
		case c == quote:
			if isStringEnd(s, i) {
				b.WriteByte('"')
				return i + 1
			}
			// A quote in the middle of the body.
			if quote == '"' {
				b.WriteString(`\"`)
			} else {
				b.WriteByte('\'')
			}
			i++
		case c == '"':
			// Double quote inside a single-quoted string.
			b.WriteString(`\"`)
			i++
		case c == '\n':
			b.WriteString(`\n`)
			i++
		case c == '\r':
			b.WriteString(`\r`)
			i++
		case c == '\t':
			b.WriteString(`\t`)
			i++
		case c < 0x20:
			fmt.Fprintf(b, `\u%04x`, c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	// Unterminated literal. Truncation repair owns this case.
	return len(s)
}
