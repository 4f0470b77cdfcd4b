package delivery

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Hurricane0017/agri-advisor/core"
)

// FFmpegConcatenator joins ordered MP3 chunks via ffmpeg's concat demuxer,
// the same external-tool pattern pipeline.Converter uses for conversion
// (spec §4.5: "concatenate via an external audio concatenation tool").
type FFmpegConcatenator struct {
	Tool    string
	Timeout time.Duration
}

// NewFFmpegConcatenator builds a Concatenator backed by ffmpeg.
func NewFFmpegConcatenator(timeout time.Duration) *FFmpegConcatenator {
	return &FFmpegConcatenator{Tool: "ffmpeg", Timeout: timeout}
}

// Concatenate writes a concat-demuxer list file alongside the chunks and
// invokes ffmpeg with "-c copy" so no re-encoding is needed for MP3's
// frame-independent format.
func (c *FFmpegConcatenator) Concatenate(ctx context.Context, chunkPaths []string, destPath string) error {
	if len(chunkPaths) == 0 {
		return core.NewError("delivery.concat", core.ErrTTSFailed, "no chunks to concatenate", nil)
	}
	if len(chunkPaths) == 1 {
		data, err := os.ReadFile(chunkPaths[0])
		if err != nil {
			return fmt.Errorf("delivery/concat: read sole chunk: %w", err)
		}
		return os.WriteFile(destPath, data, 0o644)
	}

	listPath := destPath + ".concat.txt"
	var list bytes.Buffer
	for _, p := range chunkPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("delivery/concat: resolve chunk path: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, list.Bytes(), 0o644); err != nil {
		return fmt.Errorf("delivery/concat: write concat list: %w", err)
	}
	defer os.Remove(listPath)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Tool,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		destPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return core.NewError("delivery.concat", core.ErrTTSFailed,
			"audio concatenation tool failed", fmt.Errorf("%w: %s", err, stderr.String()))
	}
	return nil
}
