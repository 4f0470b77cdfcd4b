package translate

import "strings"

// phrasebook is a tiny built-in table of common greetings/closings, keyed by
// source language, target language, then normalised phrase; the
// last-resort fallback when every configured provider fails for a chunk,
// per spec §4.2 stage 3.
var phrasebook = map[string]map[string]map[string]string{
	"hi": {
		"en": {"नमस्ते": "hello", "namaste": "hello", "धन्यवाद": "thank you"},
	},
	"en": {
		"hi": {"hello": "नमस्ते", "hi": "नमस्ते", "namaste": "नमस्ते", "thank you": "धन्यवाद", "thanks": "धन्यवाद"},
	},
}

var greetings = map[string]bool{
	"hello": true, "hi": true, "namaste": true, "नमस्ते": true,
	"thank you": true, "thanks": true, "धन्यवाद": true,
	"good morning": true, "good evening": true,
}

// Phrasebook looks up a normalised chunk in the offline greeting table.
// It only covers short, common greetings/closings — anything else reports
// found=false so the caller falls through to verbatim-with-failure.
func Phrasebook(chunk, source, target string) (translation string, found bool) {
	normalized := strings.ToLower(strings.TrimSpace(chunk))
	normalized = strings.TrimRight(normalized, ".!?।॥|")

	if !greetings[normalized] {
		return "", false
	}

	translation, found = phrasebook[source][target][normalized]
	return translation, found
}
