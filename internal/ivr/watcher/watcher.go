// Package watcher implements C1: detecting new audio recordings in a
// monitored directory and emitting one AudioTask per file, once the file
// is confirmed write-complete.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/task"
)

// audioSuffixes are the recognised recording formats per spec §6.
var audioSuffixes = map[string]bool{
	".wav": true, ".mp3": true, ".gsm": true, ".ulaw": true,
	".alaw": true, ".sln": true, ".g722": true, ".au": true,
}

// completeMarkerSuffix names the optional sidecar file that marks a
// recording as finalised immediately, bypassing the stability-window poll.
const completeMarkerSuffix = ".complete"

const (
	// defaultStabilityWindow is how long a file's size must be unchanged
	// before it is considered write-complete.
	defaultStabilityWindow = 5 * time.Second

	// defaultMaxWait is how long Watcher will poll a single file before
	// giving up and logging a warning.
	defaultMaxWait = 120 * time.Second

	// smallFileThreshold and smallFileInitialDelay implement the "files
	// under 1 KiB wait an initial 2s before polling begins" rule.
	smallFileThreshold    = 1024
	smallFileInitialDelay = 2 * time.Second

	pollInterval = 1 * time.Second
)

// DedupStore records which task ids have already been emitted, across
// process restarts, per spec §4.1's persistent de-duplication requirement.
type DedupStore interface {
	// Seen reports whether id has already been emitted.
	Seen(id string) bool
	// MarkSeen records id as emitted, persisting the change before returning.
	MarkSeen(id string) error
}

// Watcher watches a directory (non-recursively) for new audio files and
// emits an AudioTask for each one once it passes the completeness gate.
type Watcher struct {
	dir             string
	stabilityWindow time.Duration
	maxWait         time.Duration
	dedup           DedupStore
	logger          *slog.Logger

	inFlight map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithStabilityWindow overrides the default 5s stability window.
func WithStabilityWindow(d time.Duration) Option {
	return func(w *Watcher) { w.stabilityWindow = d }
}

// WithMaxWait overrides the default 120s abandon-after duration.
func WithMaxWait(d time.Duration) Option {
	return func(w *Watcher) { w.maxWait = d }
}

// WithLogger overrides the default logger, slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New builds a Watcher over dir, backed by dedup for at-most-once emission
// across restarts.
func New(dir string, dedup DedupStore, opts ...Option) *Watcher {
	w := &Watcher{
		dir:             dir,
		stabilityWindow: defaultStabilityWindow,
		maxWait:         defaultMaxWait,
		dedup:           dedup,
		logger:          slog.Default(),
		inFlight:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// deriveID normalises a source path to a stable task id: directory
// stripped, separators forbidden, extension preserved.
func deriveID(path string) string {
	base := filepath.Base(path)
	return strings.ReplaceAll(base, string(filepath.Separator), "_")
}

// Start runs the watch loop until ctx is cancelled: it first sweeps dir for
// pre-existing unseen files, then subscribes to fsnotify create/write
// events, gating each candidate on completeness before sending it to sink.
func (w *Watcher) Start(ctx context.Context, sink chan<- *task.AudioTask) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("watcher: read %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		w.considerCandidate(ctx, filepath.Join(w.dir, e.Name()), sink)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.considerCandidate(ctx, ev.Name, sink)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher: fsnotify error", "error", err)
		}
	}
}

// considerCandidate filters path to recognised audio suffixes, skips
// sidecar marker files themselves, and (if not already seen or in flight)
// launches the completeness gate in its own goroutine so a slow-to-stabilise
// file does not block other events.
func (w *Watcher) considerCandidate(ctx context.Context, path string, sink chan<- *task.AudioTask) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == strings.TrimSuffix(completeMarkerSuffix, filepath.Ext(completeMarkerSuffix)) {
		return
	}
	if strings.HasSuffix(path, completeMarkerSuffix) {
		// A marker landing after its audio file may unblock a file already
		// being polled; the poll loop below re-checks the marker itself.
		return
	}
	if !audioSuffixes[ext] {
		return
	}

	id := deriveID(path)
	if w.dedup.Seen(id) || w.inFlight[id] {
		return
	}
	w.inFlight[id] = true

	go func() {
		defer delete(w.inFlight, id)
		ready, err := w.awaitComplete(ctx, path)
		if err != nil {
			w.logger.Warn("watcher: file did not become ready", "path", path, "error", err)
			return
		}
		if !ready {
			return
		}
		if w.dedup.Seen(id) {
			return
		}
		if err := w.dedup.MarkSeen(id); err != nil {
			w.logger.Warn("watcher: failed to persist dedup record", "id", id, "error", err)
			return
		}
		t := task.New(path)
		select {
		case sink <- t:
		case <-ctx.Done():
		}
	}()
}

// awaitComplete implements the completeness gate: a sidecar marker short-
// circuits readiness; otherwise poll size at 1s intervals until it holds
// steady for stabilityWindow, or abandon after maxWait.
func (w *Watcher) awaitComplete(ctx context.Context, path string) (bool, error) {
	if _, err := os.Stat(path + completeMarkerSuffix); err == nil {
		return true, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size() < smallFileThreshold {
		select {
		case <-time.After(smallFileInitialDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	deadline := time.Now().Add(w.maxWait)
	lastSize := info.Size()
	stableSince := time.Now()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(path + completeMarkerSuffix); err == nil {
			return true, nil
		}

		if time.Since(stableSince) >= w.stabilityWindow {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, fmt.Errorf("stability window not reached within max_wait")
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() != lastSize {
			lastSize = info.Size()
			stableSince = time.Now()
		}
	}
}
