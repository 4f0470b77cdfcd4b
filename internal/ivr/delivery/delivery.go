// Package delivery implements C5: translate the orchestrator's final
// message to the farmer's language, synthesise speech, concatenate
// multi-chunk audio, and publish the result, per spec §4.5.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Hurricane0017/agri-advisor/core"
	"github.com/Hurricane0017/agri-advisor/internal/providers/translate"
	"github.com/Hurricane0017/agri-advisor/internal/providers/tts"
)

// pivotLanguage is the intermediate language the orchestrator's final
// message is produced in, per the GLOSSARY.
const pivotLanguage = "en"

// ResponseMetadata records every service used to produce one response, per
// spec §4.5's "metadata JSON recording every service used".
type ResponseMetadata struct {
	TargetLanguage     string `json:"target_language"`
	TranslationService string `json:"translation_service"`
	TTSService         string `json:"tts_service"`
	Chunks             int    `json:"chunks"`
	Success            bool   `json:"success"`
	Error              string `json:"error,omitempty"`
}

// ResponseArtifact is the persisted response JSON, per spec §6's "Response
// artifact" schema.
type ResponseArtifact struct {
	AudioTaskID            string           `json:"-"`
	Timestamp              time.Time        `json:"timestamp"`
	OriginalTranscriptFile string           `json:"original_transcript_file"`
	FarmerInput            string           `json:"farmer_input"`
	FarmerPhone            string           `json:"farmer_phone"`
	OrchestratorResponse   string           `json:"orchestrator_response"`
	Metadata               ResponseMetadata `json:"metadata"`
}

// TTSProvider synthesizes one chunk of text into audio bytes. tts.Provider
// (teacher's own chunking/TTS package, built earlier this pass) implements
// it; tests substitute a fake.
type TTSProvider interface {
	Name() string
	Synthesize(ctx context.Context, text, language, voiceQuality string) ([]byte, error)
}

// Concatenator joins ordered MP3 chunk files into one audio file.
type Concatenator interface {
	Concatenate(ctx context.Context, chunkPaths []string, destPath string) error
}

// Delivery wires together C5's stages for one finalised response.
type Delivery struct {
	TranslateChain *translate.Chain
	TTS            TTSProvider
	Concat         Concatenator

	GeneratedAudioDir string
	PlaybackDir       string
	ResponsesDir      string
	VoiceQuality      string
	DefaultLanguage   string
}

// Deliver runs C5 for one orchestration result: translate, synthesise,
// concatenate, publish. It writes a response artifact both on success and
// when TTS fails entirely (spec §7's TTSFailed policy: "response JSON is
// still written; no playback artifact"); when publishing the audio fails,
// it returns that error without writing the artifact.
func (d *Delivery) Deliver(ctx context.Context, audioTaskID, originalTranscriptFile, farmerInput, farmerPhone, message, detectedSourceLanguage string) (ResponseArtifact, error) {
	target := detectedSourceLanguage
	if target == "" {
		target = d.DefaultLanguage
	}

	artifact := ResponseArtifact{
		AudioTaskID:            audioTaskID,
		Timestamp:              time.Now().UTC(),
		OriginalTranscriptFile: originalTranscriptFile,
		FarmerInput:            farmerInput,
		FarmerPhone:            farmerPhone,
		OrchestratorResponse:   message,
		Metadata:               ResponseMetadata{TargetLanguage: target},
	}

	translated, ok, service := translate.TranslateChunked(ctx, d.TranslateChain, message, pivotLanguage, target, 4500)
	artifact.Metadata.TranslationService = service
	if !ok {
		translated = message
	}

	audioPath, ttsService, chunks, err := d.synthesize(ctx, audioTaskID, translated, target)
	artifact.Metadata.TTSService = ttsService
	artifact.Metadata.Chunks = chunks
	if err != nil {
		artifact.Metadata.Success = false
		artifact.Metadata.Error = err.Error()
		if _, writeErr := writeResponse(d.ResponsesDir, artifact); writeErr != nil {
			return artifact, writeErr
		}
		return artifact, core.NewError("delivery.deliver", core.ErrTTSFailed, "speech synthesis failed", err)
	}
	artifact.Metadata.Success = true

	if err := d.publish(audioTaskID, audioPath); err != nil {
		return artifact, err
	}

	if _, err := writeResponse(d.ResponsesDir, artifact); err != nil {
		return artifact, err
	}
	return artifact, nil
}

// synthesize chunks translated text, synthesises each chunk, and
// concatenates multi-chunk output, writing the result to the generated
// audio directory.
func (d *Delivery) synthesize(ctx context.Context, audioTaskID, text, language string) (audioPath, service string, chunkCount int, err error) {
	chunks := tts.Chunk(text)
	chunkCount = len(chunks)

	if len(chunks) == 1 {
		audio, err := d.TTS.Synthesize(ctx, chunks[0], language, d.VoiceQuality)
		if err != nil {
			return "", "", chunkCount, fmt.Errorf("delivery: synthesize: %w", err)
		}
		dest := filepath.Join(d.GeneratedAudioDir, audioTaskID+"_response.mp3")
		if err := os.MkdirAll(d.GeneratedAudioDir, 0o755); err != nil {
			return "", "", chunkCount, fmt.Errorf("delivery: mkdir generated audio dir: %w", err)
		}
		if err := os.WriteFile(dest, audio, 0o644); err != nil {
			return "", "", chunkCount, fmt.Errorf("delivery: write audio: %w", err)
		}
		return dest, d.TTS.Name(), chunkCount, nil
	}

	var chunkPaths []string
	if err := os.MkdirAll(d.GeneratedAudioDir, 0o755); err != nil {
		return "", "", chunkCount, fmt.Errorf("delivery: mkdir generated audio dir: %w", err)
	}
	for i, chunk := range chunks {
		audio, err := d.TTS.Synthesize(ctx, chunk, language, d.VoiceQuality)
		if err != nil {
			return "", "", chunkCount, fmt.Errorf("delivery: synthesize chunk %d: %w", i, err)
		}
		path := filepath.Join(d.GeneratedAudioDir, fmt.Sprintf("%s_chunk%d.mp3", audioTaskID, i))
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			return "", "", chunkCount, fmt.Errorf("delivery: write chunk %d: %w", i, err)
		}
		chunkPaths = append(chunkPaths, path)
	}

	dest := filepath.Join(d.GeneratedAudioDir, audioTaskID+"_response.mp3")
	if err := d.Concat.Concatenate(ctx, chunkPaths, dest); err != nil {
		return "", "", chunkCount, fmt.Errorf("delivery: concatenate: %w", err)
	}
	for _, p := range chunkPaths {
		_ = os.Remove(p)
	}
	return dest, d.TTS.Name(), chunkCount, nil
}

// publish copies the generated audio to the playback directory using the
// deterministic filename spec §4.5 names, via temp-name-then-rename so the
// playback reader never observes a partial file.
func (d *Delivery) publish(audioTaskID, audioPath string) error {
	if err := os.MkdirAll(d.PlaybackDir, 0o755); err != nil {
		return fmt.Errorf("delivery: mkdir playback dir: %w", err)
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("delivery: read generated audio: %w", err)
	}

	final := filepath.Join(d.PlaybackDir, audioTaskID+"_response"+filepath.Ext(audioPath))
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("delivery: write playback temp: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("delivery: rename playback artifact: %w", err)
	}
	return nil
}

// writeResponse persists the response artifact as
// <dir>/<id>_response.json, temp-name-then-rename per spec §5's
// shared-resource policy.
func writeResponse(dir string, a ResponseArtifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("delivery: mkdir responses dir: %w", err)
	}
	final := filepath.Join(dir, a.AudioTaskID+"_response.json")
	tmp := final + ".tmp"

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("delivery: marshal response: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("delivery: write response temp: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("delivery: rename response: %w", err)
	}
	return final, nil
}
