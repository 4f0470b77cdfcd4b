package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/task"
)

func newTestDedup(t *testing.T) DedupStore {
	t.Helper()
	s, err := NewFileDedupStore(filepath.Join(t.TempDir(), "processed_files.json"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWatcher_MarkerShortCircuitsStabilityWindow(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "a001.wav")
	if err := os.WriteFile(audioPath, []byte("audio-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(audioPath+completeMarkerSuffix, nil, 0644); err != nil {
		t.Fatal(err)
	}

	w := New(dir, newTestDedup(t), WithStabilityWindow(time.Hour), WithMaxWait(time.Hour))

	sink := make(chan *task.AudioTask, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go w.Start(ctx, sink)

	select {
	case got := <-sink:
		if got.ID != "a001.wav" {
			t.Errorf("id = %q, want a001.wav", got.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected marker-present file to be emitted immediately, without waiting the stability window")
	}
}

func TestWatcher_StabilityWindowGatesReadiness(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "a002.wav")
	if err := os.WriteFile(audioPath, make([]byte, 2048), 0644); err != nil {
		t.Fatal(err)
	}

	w := New(dir, newTestDedup(t), WithStabilityWindow(300*time.Millisecond), WithMaxWait(5*time.Second))

	sink := make(chan *task.AudioTask, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go w.Start(ctx, sink)

	select {
	case <-sink:
		t.Fatal("file should not be emitted before its stability window elapses")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case got := <-sink:
		if got.ID != "a002.wav" {
			t.Errorf("id = %q, want a002.wav", got.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected file to be emitted once stable")
	}
}

func TestWatcher_DedupSuppressesAlreadySeen(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "a003.wav")
	if err := os.WriteFile(audioPath, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(audioPath+completeMarkerSuffix, nil, 0644); err != nil {
		t.Fatal(err)
	}

	dedup := newTestDedup(t)
	if err := dedup.MarkSeen("a003.wav"); err != nil {
		t.Fatal(err)
	}

	w := New(dir, dedup)
	sink := make(chan *task.AudioTask, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	w.Start(ctx, sink)

	select {
	case got := <-sink:
		t.Fatalf("expected already-seen file to be suppressed, got %v", got)
	default:
	}
}

func TestWatcher_NonAudioSuffixIgnored(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	w := New(dir, newTestDedup(t))
	sink := make(chan *task.AudioTask, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	w.Start(ctx, sink)

	select {
	case got := <-sink:
		t.Fatalf("expected non-audio file to be ignored, got %v", got)
	default:
	}
}
