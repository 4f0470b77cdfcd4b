// Package stt transcribes recorded audio to text, supporting the spec's
// three modes: synchronous (clips under ~60s), long-running (a single
// background job polled to completion), and chunked (split into
// overlapping windows and stitched back together) per spec §4.2 stage 2.
package stt

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Result is one clip's or chunk's transcription outcome.
type Result struct {
	Text       string
	Confidence float64
	Language   string
}

// Provider transcribes a single audio file synchronously.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audioPath, language string) (Result, error)
}

// LongRunningProvider additionally supports submitting a job and polling
// it to completion, for clips too long for a single synchronous call.
type LongRunningProvider interface {
	Provider
	TranscribeLongRunning(ctx context.Context, audioPath, language string, deadline time.Duration) (Result, error)
}

// chunkWindow and chunkOverlap mirror spec §4.2 stage 2's chunked fallback:
// 50-second windows with 5-second overlap, results concatenated and
// confidences averaged.
const (
	chunkWindow  = 50 * time.Second
	chunkOverlap = 5 * time.Second
)

// Chunker splits an audio file into overlapping windows for providers (or
// clip lengths) that cannot be transcribed in one synchronous call.
type Chunker interface {
	// Split divides the audio at audioPath into window files, returning
	// their paths in playback order. Callers are responsible for removing
	// the returned temporary files once done.
	Split(ctx context.Context, audioPath string, window, overlap time.Duration) ([]string, error)
}

// TranscribeChunked splits audioPath via chunker, transcribes every window
// with provider, and stitches the results into one Result: text is joined
// in order, confidence is the arithmetic mean across chunks.
func TranscribeChunked(ctx context.Context, provider Provider, chunker Chunker, audioPath, language string) (Result, error) {
	windows, err := chunker.Split(ctx, audioPath, chunkWindow, chunkOverlap)
	if err != nil {
		return Result{}, fmt.Errorf("stt: split into chunks: %w", err)
	}
	if len(windows) == 0 {
		return Result{}, fmt.Errorf("stt: chunker produced no windows for %s", audioPath)
	}

	var texts []string
	var confidenceSum float64
	for i, w := range windows {
		res, err := provider.Transcribe(ctx, w, language)
		if err != nil {
			return Result{}, fmt.Errorf("stt: chunk %d/%d: %w", i+1, len(windows), err)
		}
		texts = append(texts, strings.TrimSpace(res.Text))
		confidenceSum += res.Confidence
	}

	return Result{
		Text:       strings.Join(texts, " "),
		Confidence: confidenceSum / float64(len(windows)),
		Language:   language,
	}, nil
}

// Transcribe dispatches audioPath to the synchronous path, the
// long-running path, or chunked fallback, depending on clipDuration and
// what provider supports, per spec §4.2 stage 2's mode-selection rule:
// sync for clips up to syncThreshold; otherwise long-running (bounded by
// longRunningDeadline) when provider supports it, and chunked when the
// long-running call fails or provider has no long-running support. A
// long-running failure is returned as is when no chunker is configured.
func Transcribe(ctx context.Context, provider Provider, chunker Chunker, audioPath, language string, clipDuration, syncThreshold, longRunningDeadline time.Duration) (Result, error) {
	if clipDuration <= syncThreshold {
		return provider.Transcribe(ctx, audioPath, language)
	}

	if lr, ok := provider.(LongRunningProvider); ok {
		res, err := lr.TranscribeLongRunning(ctx, audioPath, language, longRunningDeadline)
		if err == nil || chunker == nil {
			return res, err
		}
	}

	if chunker == nil {
		return Result{}, fmt.Errorf("stt: clip exceeds sync threshold and provider %s has no long-running mode, but no chunker was configured", provider.Name())
	}
	return TranscribeChunked(ctx, provider, chunker, audioPath, language)
}
