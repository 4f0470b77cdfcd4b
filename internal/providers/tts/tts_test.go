package tts

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk_ShortTextReturnsSingleChunk(t *testing.T) {
	chunks := Chunk("a short farmer-facing message.")
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
}

func TestChunk_SplitsAtSentenceBoundariesWithinBudget(t *testing.T) {
	sentence := strings.Repeat("x", 2000) + "."
	text := sentence + sentence + sentence // 3 sentences, each well under budget individually
	chunks := Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for text over budget, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > maxChunkBytes {
			t.Errorf("chunk exceeds maxChunkBytes: %d bytes", len(c))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("chunks must reassemble to the original text with no loss")
	}
}

func TestChunk_OversizedSingleWordFallsToRuneSafeSplit(t *testing.T) {
	// A single unbroken token (no spaces, no terminators) far longer than
	// the per-request budget, using a multi-byte Devanagari rune so a
	// byte-index split would be unsafe.
	text := strings.Repeat("अ", 3000)
	chunks := Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected the oversized word to be split into multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > maxChunkBytes {
			t.Errorf("chunk %d exceeds maxChunkBytes: %d bytes", i, len(c))
		}
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("chunks must reassemble to the original text with no loss")
	}
}

func TestSplitByRune_NeverProducesInvalidUTF8(t *testing.T) {
	word := strings.Repeat("क", 2500) // 3 bytes each, well over maxChunkBytes total
	chunks := splitByRune(word)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if len(c) > maxChunkBytes {
			t.Errorf("chunk %d exceeds maxChunkBytes", i)
		}
	}
	if strings.Join(chunks, "") != word {
		t.Error("chunks must reassemble to the original word with no loss")
	}
}
