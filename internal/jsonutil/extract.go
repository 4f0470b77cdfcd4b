package jsonutil

import "strings"

// ExtractBalancedObject scans s for the first balanced top-level `{...}`
// object, tolerating surrounding prose and string/escape contents that
// contain stray braces. It returns the substring and true on success, or
// "" and false if no balanced object is found. LLM replies cannot be
// trusted to be bare JSON, so callers parse this substring rather than s
// itself.
func ExtractBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
