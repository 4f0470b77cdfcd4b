package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Hurricane0017/agri-advisor/internal/providers/translate"
)

type fakeTranslateProvider struct {
	result translate.Result
	err    error
}

func (f *fakeTranslateProvider) Name() string { return "fake_translate" }

func (f *fakeTranslateProvider) Translate(ctx context.Context, text, source, target string) (translate.Result, error) {
	return f.result, f.err
}

type fakeTTS struct {
	calls int
	err   error
}

func (f *fakeTTS) Name() string { return "fake_tts" }

func (f *fakeTTS) Synthesize(ctx context.Context, text, language, voiceQuality string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio:" + text), nil
}

type fakeConcat struct {
	joined []string
	err    error
}

func (f *fakeConcat) Concatenate(ctx context.Context, chunkPaths []string, destPath string) error {
	if f.err != nil {
		return f.err
	}
	f.joined = chunkPaths
	return os.WriteFile(destPath, []byte("concatenated"), 0o644)
}

func newTestDelivery(t *testing.T, ttsProvider TTSProvider, concat Concatenator, translateSuccess bool) (*Delivery, string) {
	t.Helper()
	dir := t.TempDir()
	var res translate.Result
	if translateSuccess {
		res = translate.Result{TranslatedText: "अनुवादित संदेश", Success: true, Service: "fake_translate"}
	}
	return &Delivery{
		TranslateChain:    translate.NewChain(&fakeTranslateProvider{result: res}),
		TTS:               ttsProvider,
		Concat:            concat,
		GeneratedAudioDir: filepath.Join(dir, "generated_audio"),
		PlaybackDir:       filepath.Join(dir, "playback"),
		ResponsesDir:      filepath.Join(dir, "responses"),
		VoiceQuality:      "standard",
		DefaultLanguage:   "en",
	}, dir
}

func TestDelivery_Deliver_SingleChunkSuccess(t *testing.T) {
	d, _ := newTestDelivery(t, &fakeTTS{}, &fakeConcat{}, true)

	artifact, err := d.Deliver(context.Background(), "call123", "transcripts/call123_transcript.json",
		"farmer question", "9876543210", "short farmer-facing message", "hi")
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !artifact.Metadata.Success {
		t.Error("expected Metadata.Success true")
	}
	if artifact.Metadata.Chunks != 1 {
		t.Errorf("Chunks = %d, want 1", artifact.Metadata.Chunks)
	}

	playbackPath := filepath.Join(d.PlaybackDir, "call123_response.mp3")
	if _, err := os.Stat(playbackPath); err != nil {
		t.Errorf("expected playback artifact at %s: %v", playbackPath, err)
	}

	responsePath := filepath.Join(d.ResponsesDir, "call123_response.json")
	data, err := os.ReadFile(responsePath)
	if err != nil {
		t.Fatalf("expected response artifact: %v", err)
	}
	var got ResponseArtifact
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal response artifact: %v", err)
	}
	if got.FarmerPhone != "9876543210" {
		t.Errorf("FarmerPhone = %q", got.FarmerPhone)
	}
	if got.Metadata.TargetLanguage != "hi" {
		t.Errorf("TargetLanguage = %q, want hi", got.Metadata.TargetLanguage)
	}
}

func TestDelivery_Deliver_DefaultsToConfiguredLanguageWhenSourceEmpty(t *testing.T) {
	d, _ := newTestDelivery(t, &fakeTTS{}, &fakeConcat{}, true)

	artifact, err := d.Deliver(context.Background(), "call456", "", "q", "", "message", "")
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if artifact.Metadata.TargetLanguage != "en" {
		t.Errorf("TargetLanguage = %q, want configured default %q", artifact.Metadata.TargetLanguage, "en")
	}
}

func TestDelivery_Deliver_MultiChunkUsesConcatenator(t *testing.T) {
	concat := &fakeConcat{}
	d, _ := newTestDelivery(t, &fakeTTS{}, concat, true)

	// Target equals the pivot language so TranslateChunked takes its
	// identity path and the long message reaches TTS chunking unshortened
	// (the fake translate provider would otherwise return a fixed-length
	// canned string regardless of input size).
	long := strings.Repeat("अ", 3000) + ". " + strings.Repeat("ब", 3000) + "."
	_, err := d.Deliver(context.Background(), "call789", "t.json", "q", "9876543210", long, pivotLanguage)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(concat.joined) < 2 {
		t.Errorf("expected concatenator to join multiple chunks, got %d", len(concat.joined))
	}
}

func TestDelivery_Deliver_TTSFailureStillWritesResponseJSON(t *testing.T) {
	d, _ := newTestDelivery(t, &fakeTTS{err: errors.New("tts down")}, &fakeConcat{}, true)

	artifact, err := d.Deliver(context.Background(), "call999", "t.json", "q", "9876543210", "message", "hi")
	if err == nil {
		t.Fatal("expected an error when TTS fails entirely")
	}
	if artifact.Metadata.Success {
		t.Error("expected Metadata.Success false on TTS failure")
	}

	responsePath := filepath.Join(d.ResponsesDir, "call999_response.json")
	if _, statErr := os.Stat(responsePath); statErr != nil {
		t.Errorf("expected response artifact to still be written: %v", statErr)
	}

	playbackPath := filepath.Join(d.PlaybackDir, "call999_response.mp3")
	if _, statErr := os.Stat(playbackPath); statErr == nil {
		t.Error("expected no playback artifact when TTS fails entirely")
	}
}

func TestDelivery_Deliver_TranslationFailureFallsBackToOriginalText(t *testing.T) {
	d, _ := newTestDelivery(t, &fakeTTS{}, &fakeConcat{}, false)
	// No provider configured to succeed; translate.Chain has one provider
	// that reports failure (zero-value Result), so TranslateChunked falls
	// through to the phrasebook, then to the original text verbatim.

	artifact, err := d.Deliver(context.Background(), "call001", "t.json", "q", "9876543210", "hello", "hi")
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if artifact.Metadata.TranslationService != "phrasebook" {
		t.Errorf("TranslationService = %q, want phrasebook fallback for a greeting", artifact.Metadata.TranslationService)
	}
}
