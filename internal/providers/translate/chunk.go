package translate

import (
	"context"
	"strings"
)

// sentenceTerminators are the boundary runes spec §4.2 stage 3 names:
// Latin/Devanagari/Urdu sentence-enders plus a bare newline.
var sentenceTerminators = map[rune]bool{
	'.': true, '!': true, '?': true,
	'।': true, // Devanagari danda
	'॥': true, // Devanagari double danda
	'|': true,
	'\n': true,
}

// ChunkBySentence splits text into pieces no larger than maxBytes UTF-8
// bytes, breaking only at sentence boundaries so a chunk never cuts a
// sentence in half. A single sentence longer than maxBytes is emitted as
// its own oversized chunk rather than being split mid-word.
func ChunkBySentence(text string, maxBytes int) []string {
	sentences := splitAtTerminators(text)

	var chunks []string
	var current strings.Builder

	for _, s := range sentences {
		if current.Len() > 0 && current.Len()+len(s) > maxBytes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

func splitAtTerminators(text string) []string {
	var out []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if sentenceTerminators[r] {
			out = append(out, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

// TranslateChunked translates text by splitting it into sentence-bounded
// chunks and running each through chain, attempting providers in
// preference order until one succeeds for that chunk, then concatenating
// the translated chunks with single spaces per spec §4.2 stage 3.
//
// On total failure (any chunk has no successful provider) it falls back to
// phrasebook, and if that has no coverage either, returns the original
// text verbatim with ok=false.
func TranslateChunked(ctx context.Context, chain *Chain, text, source, target string, maxBytesPerChunk int) (translated string, ok bool, service string) {
	if source == target {
		return text, true, "identity"
	}

	chunks := ChunkBySentence(text, maxBytesPerChunk)
	translatedChunks := make([]string, len(chunks))
	usedService := ""

	for i, chunk := range chunks {
		res, err := chain.Translate(ctx, chunk, source, target)
		if err == nil && res.Success {
			translatedChunks[i] = res.TranslatedText
			usedService = res.Service
			continue
		}

		if phrase, found := Phrasebook(chunk, source, target); found {
			translatedChunks[i] = phrase
			if usedService == "" {
				usedService = "phrasebook"
			}
			continue
		}

		// This chunk has no translation at all; fail the whole call so the
		// caller can record success=false with the original text, per
		// spec §4.2 stage 3's total-failure rule.
		return text, false, ""
	}

	return strings.Join(translatedChunks, " "), true, usedService
}
