package extract

import "strings"

// The scanners below share one set of string-boundary rules with Normalize:
// strings may be single- or double-quoted, backslash escapes are honored, and
// a closing quote only counts when the next non-whitespace character could
// legally follow a string. Completion backends emit unescaped quotes and
// newlines inside file bodies, so naive quote matching would cut strings
// short and naive substring search (e.g. for "},") would split entries in
// the middle of content.

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// isStringEnd reports whether the quote at s[i] plausibly terminates a
// string literal, judged by the next non-whitespace character.
func isStringEnd(s string, i int) bool {
	j := skipSpace(s, i+1)
	if j >= len(s) {
		return true
	}
	switch s[j] {
	case ',', '}', ']', ':':
		return true
	}
	return false
}

// quoteOpens reports whether a single quote at s[i] begins a string literal,
// i.e. it sits where a JSON string token may start.
func quoteOpens(prev byte) bool {
	switch prev {
	case 0, '{', '[', ',', ':':
		return true
	}
	return false
}

// stringEnd returns the index just after the closing quote of the string
// literal opening at s[start], or -1 when the string never terminates.
func stringEnd(s string, start int) int {
	quote := s[start]
	i := start + 1
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			i += 2
			continue
		}
		if c == quote && isStringEnd(s, i) {
			return i + 1
		}
		i++
	}
	return -1
}

// matchBrace scans the object literal opening at s[start] ('{') and returns
// the index just after its matching close brace. ok is false when the object
// never closes within s.
func matchBrace(s string, start int) (end int, ok bool) {
	depth := 0
	prev := byte(0)
	i := start
	for i < len(s) {
		c := s[i]
		switch c {
		case '"', '\'':
			if c == '\'' && !quoteOpens(prev) {
				prev = c
				i++
				continue
			}
			se := stringEnd(s, i)
			if se < 0 {
				return len(s), false
			}
			prev = '"'
			i = se
			continue
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 && c == '}' {
				return i + 1, true
			}
		}
		if !isSpace(c) {
			prev = c
		}
		i++
	}
	return len(s), false
}

// objectSpan locates the first object literal in raw whose first key is key.
// closed is false when the object never closes; end is then len(raw).
func objectSpan(raw, key string) (start, end int, closed, found bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		j := skipSpace(raw, i+1)
		if j >= len(raw) {
			break
		}
		q := raw[j]
		if q != '"' && q != '\'' {
			continue
		}
		k := j + 1
		if !strings.HasPrefix(raw[k:], key) {
			continue
		}
		k += len(key)
		if k >= len(raw) || raw[k] != q {
			continue
		}
		k = skipSpace(raw, k+1)
		if k >= len(raw) || raw[k] != ':' {
			continue
		}
		end, ok := matchBrace(raw, i)
		return i, end, ok, true
	}
	return 0, 0, false, false
}

// endsTruncated reports whether s stops mid-payload: inside an unterminated
// string literal, or with containers left open.
func endsTruncated(s string) bool {
	depth := 0
	prev := byte(0)
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '"', '\'':
			if c == '\'' && !quoteOpens(prev) {
				prev = c
				i++
				continue
			}
			se := stringEnd(s, i)
			if se < 0 {
				return true
			}
			prev = '"'
			i = se
			continue
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
		if !isSpace(c) {
			prev = c
		}
		i++
	}
	return depth > 0
}

// arrayStart returns the index of the '[' opening the array value of key, or
// -1 when the key or its array is not present.
func arrayStart(s, key string) int {
	for _, q := range []byte{'"', '\''} {
		needle := string(q) + key + string(q)
		from := 0
		for {
			idx := strings.Index(s[from:], needle)
			if idx < 0 {
				break
			}
			idx += from
			j := skipSpace(s, idx+len(needle))
			if j < len(s) && s[j] == ':' {
				j = skipSpace(s, j+1)
				if j < len(s) && s[j] == '[' {
					return j
				}
			}
			from = idx + len(needle)
		}
	}
	return -1
}

// braceTrim cuts raw down to the span between the first '{' and the last
// '}', the least discriminating recovery available.
func braceTrim(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// fencedBlocks returns the bodies of every complete ``` code fence in raw,
// in source order, with any language tag line removed.
func fencedBlocks(raw string) []string {
	var blocks []string
	rest := raw
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			break
		}
		rest = rest[open+3:]
		closing := strings.Index(rest, "```")
		if closing < 0 {
			break
		}
		body := rest[:closing]
		rest = rest[closing+3:]
		// An opening fence may carry a language tag on the same line.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			tag := strings.TrimSpace(body[:nl])
			if tag != "" && !strings.ContainsAny(tag, "{}:,") {
				body = body[nl+1:]
			}
		}
		blocks = append(blocks, body)
	}
	return blocks
}
