package watcher

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileDedupStore_MarkAndSeen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed_files.json")

	s, err := NewFileDedupStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Seen("a001.wav") {
		t.Fatal("expected unseen id to report false")
	}

	if err := s.MarkSeen("a001.wav"); err != nil {
		t.Fatal(err)
	}
	if !s.Seen("a001.wav") {
		t.Fatal("expected marked id to report true")
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
}

func TestFileDedupStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed_files.json")

	s1, err := NewFileDedupStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.MarkSeen("a002.wav"); err != nil {
		t.Fatal(err)
	}

	s2, err := NewFileDedupStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if !s2.Seen("a002.wav") {
		t.Fatal("expected reloaded store to recall previously-marked id")
	}
}

func TestFileDedupStore_MissingFileIsEmptyLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.json")

	s, err := NewFileDedupStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Seen("anything") {
		t.Fatal("expected empty log for missing file")
	}
}
