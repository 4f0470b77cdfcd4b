package stt

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper transcribes audio via the OpenAI Whisper transcription endpoint.
// sashabaranov/go-openai's client already owns auth and retries for chat
// completions elsewhere in this module; this reuses the same client type
// for the Audio API.
type Whisper struct {
	client *openai.Client
	model  string
}

// NewWhisper builds a Whisper provider. baseURL may be empty to use the
// OpenAI-hosted default; an alternate Whisper-compatible endpoint (e.g. a
// local faster-whisper server) can be supplied instead.
func NewWhisper(apiKey, baseURL, model string) *Whisper {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: openai.NewClientWithConfig(cfg), model: model}
}

func (w *Whisper) Name() string { return "whisper" }

// Transcribe sends the audio file at audioPath for synchronous transcription.
func (w *Whisper) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Language: language,
	}
	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("stt: whisper: %w", err)
	}
	return Result{Text: resp.Text, Confidence: 1.0, Language: language}, nil
}

// TranscribeLongRunning runs the same synchronous call under an extended
// deadline context; Whisper's hosted API has no separate async job mode, so
// "long-running" here just means a longer client-side timeout before the
// caller falls back to chunked transcription.
func (w *Whisper) TranscribeLongRunning(ctx context.Context, audioPath, language string, deadline time.Duration) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	return w.Transcribe(ctx, audioPath, language)
}
