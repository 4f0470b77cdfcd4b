package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/providers/stt"
)

// FFmpegChunker splits a WAV file into overlapping windows using ffmpeg's
// segment muxer, satisfying stt.Chunker for the chunked-transcription
// fallback (50s windows / 5s overlap per spec §4.2 stage 2).
type FFmpegChunker struct {
	Tool    string
	WorkDir string
}

// NewFFmpegChunker builds an FFmpegChunker that writes window files under
// workDir.
func NewFFmpegChunker(workDir string) *FFmpegChunker {
	return &FFmpegChunker{Tool: "ffmpeg", WorkDir: workDir}
}

var _ stt.Chunker = (*FFmpegChunker)(nil)

// Split extracts successive [start, start+window] windows from audioPath,
// advancing by window-overlap each time, until the source is exhausted.
// ffmpeg silently produces a shorter final segment if the source ends
// before a full window, which is the desired behaviour here.
func (c *FFmpegChunker) Split(ctx context.Context, audioPath string, window, overlap time.Duration) ([]string, error) {
	duration, err := probeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("chunker: probe duration: %w", err)
	}

	step := window - overlap
	if step <= 0 {
		return nil, fmt.Errorf("chunker: overlap %v must be smaller than window %v", overlap, window)
	}

	base := filepath.Base(audioPath)
	var windows []string
	for start := time.Duration(0); start < duration; start += step {
		idx := len(windows)
		dest := filepath.Join(c.WorkDir, fmt.Sprintf("%s.chunk%03d.wav", base, idx))

		cmd := exec.CommandContext(ctx, c.Tool,
			"-y",
			"-ss", fmt.Sprintf("%.3f", start.Seconds()),
			"-i", audioPath,
			"-t", fmt.Sprintf("%.3f", window.Seconds()),
			dest,
		)
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("chunker: extract window %d: %w", idx, err)
		}
		windows = append(windows, dest)

		if start+window >= duration {
			break
		}
	}
	return windows, nil
}

// probeDuration shells out to ffprobe to learn the source clip's length.
func probeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	var seconds float64
	if _, err := fmt.Sscanf(string(out), "%f", &seconds); err != nil {
		return 0, fmt.Errorf("parse ffprobe output %q: %w", out, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// cleanup removes the temporary window files once transcription is done.
func cleanup(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
