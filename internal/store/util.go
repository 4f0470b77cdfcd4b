package store

import "strings"

// stringsContainsFold reports whether word appears in text, ignoring case.
func stringsContainsFold(text, word string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(word))
}
