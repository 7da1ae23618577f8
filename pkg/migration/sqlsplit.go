package migration

import "strings"

// splitSQL splits a script into statements on top-level semicolons. Quoted
// strings, quoted identifiers, dollar-quoted bodies and comments are kept
// intact; comment-only statements are dropped.
func splitSQL(script string) []string {
	var (
		out     []string
		current strings.Builder
		hasCode bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" && hasCode {
			out = append(out, stmt)
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(script); {
		c := script[i]
		switch {
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = len(script) - i
			}
			i += end
			continue
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
				continue
			}
			current.WriteByte(' ')
			i += end + 4
			continue
		case c == '\'' || c == '"':
			end := closingQuote(script, i+1, c)
			current.WriteString(script[i:end])
			hasCode = true
			i = end
			continue
		case c == '$':
			if tag, ok := dollarTag(script[i:]); ok {
				rest := script[i+len(tag):]
				end := strings.Index(rest, tag)
				stop := len(script)
				if end >= 0 {
					stop = i + len(tag) + end + len(tag)
				}
				current.WriteString(script[i:stop])
				hasCode = true
				i = stop
				continue
			}
		case c == ';':
			flush()
			i++
			continue
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			hasCode = true
		}
		current.WriteByte(c)
		i++
	}
	flush()
	return out
}

// closingQuote returns the index just past the quote closing the literal
// that starts before from. Doubled quotes are escapes.
func closingQuote(s string, from int, quote byte) int {
	for i := from; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

// dollarTag reports the $tag$ opening s, e.g. "$$" or "$body$".
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 1 && c >= '0' && c <= '9') {
			return "", false
		}
	}
	return "", false
}
