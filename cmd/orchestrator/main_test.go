package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Hurricane0017/agri-advisor/config"
)

func TestExitCode_NilIsOK(t *testing.T) {
	if got := exitCode(nil); got != ExitOK {
		t.Errorf("exitCode(nil) = %d, want %d", got, ExitOK)
	}
}

func TestExitCode_MisconfigErrorMapsToExitMisconfigured(t *testing.T) {
	err := misconfigf("bad value")
	if got := exitCode(err); got != ExitMisconfigured {
		t.Errorf("exitCode(misconfig) = %d, want %d", got, ExitMisconfigured)
	}
}

func TestExitCode_OtherErrorsMapToFatalStartup(t *testing.T) {
	if got := exitCode(errors.New("boom")); got != ExitFatalStartup {
		t.Errorf("exitCode(other) = %d, want %d", got, ExitFatalStartup)
	}
}

func TestLayout_DerivesExpectedSubdirectories(t *testing.T) {
	d := layout("/srv/agri")
	want := map[string]string{
		"monitor":     filepath.Join("/srv/agri", "monitor"),
		"converted":   filepath.Join("/srv/agri", "recordings", "converted"),
		"transcripts": filepath.Join("/srv/agri", "recordings", "transcripts"),
		"responses":   filepath.Join("/srv/agri", "recordings", "responses"),
	}
	if d.Monitor != want["monitor"] {
		t.Errorf("Monitor = %s, want %s", d.Monitor, want["monitor"])
	}
	if d.Converted != want["converted"] {
		t.Errorf("Converted = %s, want %s", d.Converted, want["converted"])
	}
	if d.Transcripts != want["transcripts"] {
		t.Errorf("Transcripts = %s, want %s", d.Transcripts, want["transcripts"])
	}
	if d.Responses != want["responses"] {
		t.Errorf("Responses = %s, want %s", d.Responses, want["responses"])
	}
}

func TestDirs_EnsureCreatesEveryDirectory(t *testing.T) {
	root := t.TempDir()
	d := layout(root)
	if err := d.ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, dir := range []string{d.Monitor, d.Converted, d.Transcripts, d.Responses, d.GeneratedAudio, d.Playback, d.ChunkWork} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestValidateConfig_RejectsNegativeWorkerCount(t *testing.T) {
	cfg := config.Config{IVRRoot: "x", AudioSampleRate: 16000, PipelineWorkers: -1}
	err := validateConfig(cfg)
	if err == nil {
		t.Fatal("expected an error for negative pipeline_workers")
	}
	if _, ok := err.(*misconfigError); !ok {
		t.Errorf("expected *misconfigError, got %T", err)
	}
}

func TestValidateConfig_RejectsZeroSampleRate(t *testing.T) {
	cfg := config.Config{IVRRoot: "x", AudioSampleRate: 0}
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected an error for zero audio_sample_rate")
	}
}

func TestValidateConfig_AcceptsReasonableDefaults(t *testing.T) {
	cfg := config.Config{IVRRoot: "./ivr-data", AudioSampleRate: 16000, PipelineWorkers: 4, MaxConcurrentAgents: 4}
	if err := validateConfig(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
