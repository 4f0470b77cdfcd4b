// Package pipeline implements C2, the recording pipeline: per audio task,
// convert → transcribe → translate-in → persist transcript artifact, per
// spec §4.2. Stages run strictly in order for one task and in parallel
// across tasks via a worker pool.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Hurricane0017/agri-advisor/core"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/task"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/transcript"
	"github.com/Hurricane0017/agri-advisor/internal/providers/stt"
	"github.com/Hurricane0017/agri-advisor/internal/providers/translate"
)

// pivotLanguage is the intermediate language all specialists read, per the
// GLOSSARY.
const pivotLanguage = "en"

// syncThreshold is the longest clip duration handled by synchronous STT
// before falling to long-running/chunked modes, per spec §4.2 stage 2.
const syncThreshold = 60 * time.Second

// translateChunkBudget is the conservative per-request byte budget shared
// across the translation preference chain's providers.
const translateChunkBudget = 4500

// AudioConverter converts a raw recording to 16-bit mono PCM WAV.
// *Converter implements it via an external codec tool; tests substitute a
// fake to avoid depending on a real codec binary.
type AudioConverter interface {
	Convert(ctx context.Context, id, sourcePath, destDir string) (string, error)
}

// Pipeline wires together the stages of C2 for one task at a time; a
// worker pool of these runs tasks concurrently (see Pool).
type Pipeline struct {
	Converter      AudioConverter
	STTProvider    stt.Provider
	Chunker        stt.Chunker
	TranslateChain *translate.Chain

	ConvertedDir        string
	TranscriptsDir      string
	LongRunningDeadline time.Duration
	PrimaryLanguage     string
}

// Process runs all four stages for task t and returns the transcript
// record it persisted (or, on an early failure, the partial record). It is
// idempotent on t.ID: re-running against
// an id that already has a transcript overwrites it (the dedup gate upstream
// in the watcher is what actually enforces at-most-once).
func (p *Pipeline) Process(ctx context.Context, t *task.AudioTask) (transcript.Transcript, error) {
	rec := transcript.Transcript{
		AudioTaskID: t.ID,
		FilePath:    t.SourcePath,
		Timestamp:   time.Now().UTC(),
	}

	if err := t.Advance(task.Converting); err != nil {
		return rec, err
	}
	wavPath, err := p.Converter.Convert(ctx, t.ID, t.SourcePath, p.ConvertedDir)
	if err != nil {
		t.Fail(core.ErrConversionFailed, err)
		return rec, err
	}

	if err := t.Advance(task.Transcribing); err != nil {
		return rec, err
	}
	transcription := p.transcribe(ctx, wavPath)
	rec.Transcription = transcription

	if transcription.Error != "" && transcription.Transcript == "" {
		// Total transcription failure: write the partial artifact and skip
		// translation/orchestration per spec §7 ErrTranscriptionFailed.
		t.Fail(core.ErrTranscriptionFailed, fmt.Errorf("%s", transcription.Error))
		path, writeErr := transcript.Write(p.TranscriptsDir, rec)
		if writeErr != nil {
			return rec, writeErr
		}
		_ = path
		return rec, core.NewError("pipeline.process", core.ErrTranscriptionFailed,
			"all speech-to-text strategies failed", fmt.Errorf("%s", transcription.Error))
	}

	if err := t.Advance(task.Translating); err != nil {
		return rec, err
	}
	rec.Translation = p.translate(ctx, transcription.Transcript, transcription.Language)

	rec.Success = rec.Transcription.Error == "" && (rec.Translation.Success || rec.Translation.Error == "")

	if err := t.Advance(task.TranscriptReady); err != nil {
		return rec, err
	}

	if _, err := transcript.Write(p.TranscriptsDir, rec); err != nil {
		return rec, err
	}

	return rec, nil
}

// transcribe dispatches to sync/long-running/chunked STT per clip duration
// and provider capability, normalising the detected language code by
// stripping any region suffix ("hi-IN" -> "hi").
func (p *Pipeline) transcribe(ctx context.Context, wavPath string) transcript.Transcription {
	duration, err := probeDuration(ctx, wavPath)
	if err != nil {
		// Duration probing itself failing shouldn't abort transcription;
		// treat as short and let the provider's own limits apply.
		duration = 0
	}

	res, err := stt.Transcribe(ctx, p.STTProvider, p.Chunker, wavPath, p.PrimaryLanguage, duration, syncThreshold, p.LongRunningDeadline)
	if err != nil {
		return transcript.Transcription{Error: err.Error()}
	}

	return transcript.Transcription{
		Transcript: res.Text,
		Language:   normalizeLanguage(res.Language),
		Confidence: res.Confidence,
		Duration:   duration.Seconds(),
	}
}

// translate runs stage 3: translation to the pivot language, identity if
// the source already is the pivot, else the configured preference chain
// with phrasebook fallback per spec §4.2 stage 3.
func (p *Pipeline) translate(ctx context.Context, text, sourceLanguage string) transcript.Translation {
	if text == "" {
		return transcript.Translation{SourceLanguage: sourceLanguage, TargetLanguage: pivotLanguage, Success: true, Service: "identity"}
	}

	translated, ok, service := translate.TranslateChunked(ctx, p.TranslateChain, text, sourceLanguage, pivotLanguage, translateChunkBudget)

	out := transcript.Translation{
		TranslatedText: translated,
		SourceLanguage: sourceLanguage,
		TargetLanguage: pivotLanguage,
		Service:        service,
		Success:        ok,
	}
	if !ok {
		out.Error = "every configured translation provider failed and the offline phrase table had no coverage"
	}
	return out
}

func normalizeLanguage(code string) string {
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		return code[:i]
	}
	return code
}
