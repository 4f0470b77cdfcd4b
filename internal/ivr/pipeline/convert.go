package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Hurricane0017/agri-advisor/core"
)

// Converter turns an arbitrary recording into 16-bit mono PCM WAV at the
// configured sample rate, via an external codec tool.
type Converter struct {
	// Tool is the codec binary name, invoked as:
	//   tool -i <source> -ar <sampleRate> -ac 1 -sample_fmt s16 -y <dest>.
	// ffmpeg's flags are used as the reference shape since it accepts every
	// format spec §6 lists (wav/mp3/gsm/ulaw/alaw/sln/g722/au).
	Tool       string
	SampleRate int
	Timeout    time.Duration
}

// NewConverter builds a Converter backed by ffmpeg.
func NewConverter(sampleRate int, timeout time.Duration) *Converter {
	return &Converter{Tool: "ffmpeg", SampleRate: sampleRate, Timeout: timeout}
}

// Convert runs the codec tool against sourcePath, writing 16-bit mono PCM
// WAV to destDir/<id>.wav. A nonzero exit status is classified as
// ErrConversionFailed per spec §4.2 stage 1.
func (c *Converter) Convert(ctx context.Context, id, sourcePath, destDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	dest := filepath.Join(destDir, id+".wav")

	cmd := exec.CommandContext(ctx, c.Tool,
		"-y",
		"-i", sourcePath,
		"-ar", fmt.Sprintf("%d", c.SampleRate),
		"-ac", "1",
		"-sample_fmt", "s16",
		dest,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", core.NewError("pipeline.convert", core.ErrConversionFailed,
			fmt.Sprintf("codec tool failed for %s", sourcePath),
			fmt.Errorf("%w: %s", err, stderr.String()))
	}
	return dest, nil
}
