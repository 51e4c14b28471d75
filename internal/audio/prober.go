package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrProbeFailed is returned when ffprobe cannot measure a file.
var ErrProbeFailed = errors.New("audio: ffprobe execution failed")

// Bytes per second assumed by the size heuristic. Roughly 16kbps; almost
// certainly wrong for variable-bitrate output, kept only as a documented
// low-confidence fallback.
const fallbackBytesPerSec = 2000

// FFprobeProber implements Prober using the ffprobe CLI.
type FFprobeProber struct {
	ffprobePath string
}

// NewFFprobeProber creates a new FFprobeProber.
// If ffprobePath is empty, it defaults to "ffprobe" (found in PATH).
func NewFFprobeProber(ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{ffprobePath: ffprobePath}
}

// Duration returns the duration in seconds of a media file.
func (p *FFprobeProber) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrProbeFailed, err, stderr.String())
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration); err != nil {
		return 0, fmt.Errorf("audio: parse duration: %w", err)
	}

	return duration, nil
}

// FallbackDuration approximates a file's duration in seconds from its byte
// size. Empty or unreadable files report 2 seconds.
func FallbackDuration(path string) float64 {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return 2.0
	}
	return float64(info.Size()) / fallbackBytesPerSec
}

// Compile-time check that FFprobeProber implements Prober.
var _ Prober = (*FFprobeProber)(nil)
