// Package tts synthesizes speech audio from translated response text,
// chunking at the provider's per-request character limit per spec §4.5.
package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Hurricane0017/agri-advisor/internal/httpclient"
)

// maxChunkBytes is the conservative per-request UTF-8 byte budget shared by
// most cloud TTS providers' text-to-speech endpoints.
const maxChunkBytes = 4500

// Provider synthesizes a chunk of text into audio bytes.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, language, voiceQuality string) ([]byte, error)
}

// Chunk splits text into pieces no larger than maxChunkBytes UTF-8 bytes,
// per spec §4.5: sentence boundaries first, then word boundaries, then
// character boundaries for a single token longer than the budget.
func Chunk(text string) []string {
	if len(text) <= maxChunkBytes {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range splitSentences(text) {
		if len(sentence) > maxChunkBytes {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, splitOversizedSentence(sentence)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(sentence) > maxChunkBytes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitOversizedSentence breaks a single over-budget sentence at word
// boundaries, falling to rune-safe character splitting for a single word
// that alone exceeds the budget.
func splitOversizedSentence(sentence string) []string {
	var chunks []string
	var current strings.Builder

	for _, word := range strings.SplitAfter(sentence, " ") {
		if len(word) > maxChunkBytes {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, splitByRune(word)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(word) > maxChunkBytes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitByRune hard-splits a single over-budget word at the last
// normalization-safe boundary within the budget, via
// golang.org/x/text/unicode/norm, so a base character is never separated
// from a combining mark it composes with (Devanagari matra signs, etc.) —
// a plain per-rune split would keep UTF-8 valid but could still break a
// grapheme cluster visually.
func splitByRune(word string) []string {
	var chunks []string
	b := []byte(word)
	for len(b) > maxChunkBytes {
		cut := norm.NFC.LastBoundary(b[:maxChunkBytes])
		if cut <= 0 {
			// No safe boundary within the window; advance by one rune so
			// the loop still makes progress.
			_, size := utf8.DecodeRune(b)
			if size == 0 {
				size = 1
			}
			cut = size
		}
		chunks = append(chunks, string(b[:cut]))
		b = b[cut:]
	}
	if len(b) > 0 {
		chunks = append(chunks, string(b))
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '।' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// SynthesizeAll chunks text, synthesizes each chunk, and concatenates the
// resulting audio bytes in order (the spec's format, MP3, concatenates
// cleanly without re-muxing).
func SynthesizeAll(ctx context.Context, p Provider, text, language, voiceQuality string) ([]byte, error) {
	var out []byte
	for i, chunk := range Chunk(text) {
		audio, err := p.Synthesize(ctx, chunk, language, voiceQuality)
		if err != nil {
			return nil, fmt.Errorf("tts: chunk %d: %w", i, err)
		}
		out = append(out, audio...)
	}
	return out, nil
}

// GoogleCloud calls the Google Cloud Text-to-Speech API.
type GoogleCloud struct {
	client *httpclient.Client
	apiKey string
}

// NewGoogleCloud builds a GoogleCloud provider.
func NewGoogleCloud(apiKey string, timeout time.Duration) *GoogleCloud {
	return &GoogleCloud{
		apiKey: apiKey,
		client: httpclient.New(
			httpclient.WithBaseURL("https://texttospeech.googleapis.com"),
			httpclient.WithTimeout(timeout),
			httpclient.WithRetries(2),
		),
	}
}

func (g *GoogleCloud) Name() string { return "google_cloud_tts" }

type googleTTSRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		SsmlGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
	} `json:"audioConfig"`
}

type googleTTSResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize renders text as MP3 audio bytes. voiceQuality does not change
// the request: every call asks for the default NEUTRAL voice of language,
// whatever the TTS_VOICE_QUALITY setting.
func (g *GoogleCloud) Synthesize(ctx context.Context, text, language, voiceQuality string) ([]byte, error) {
	req := googleTTSRequest{}
	req.Input.Text = text
	req.Voice.LanguageCode = language
	req.Voice.SsmlGender = "NEUTRAL"
	req.AudioConfig.AudioEncoding = "MP3"
	req.AudioConfig.SpeakingRate = 1.0
	if voiceQuality == "premium" {
		req.Voice.SsmlGender = "NEUTRAL"
	}

	path := fmt.Sprintf("/v1/text:synthesize?key=%s", g.apiKey)
	resp, err := httpclient.DoJSON[googleTTSResponse](ctx, g.client, "POST", path, req)
	if err != nil {
		return nil, fmt.Errorf("tts: google_cloud: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("tts: google_cloud: decode audio: %w", err)
	}
	return audio, nil
}
