package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Static errors for stitcher operations.
var (
	// ErrNoInputs is returned when no clip paths are provided.
	ErrNoInputs = errors.New("audio: no input clips provided")
)

// FFmpegStitcher implements Stitcher using the ffmpeg CLI.
type FFmpegStitcher struct {
	ffmpegPath string
	opts       TrimOpts
	logger     *slog.Logger
}

// StitcherOption configures an FFmpegStitcher.
type StitcherOption func(*FFmpegStitcher)

// WithTrimOpts overrides the silence trim options.
func WithTrimOpts(opts TrimOpts) StitcherOption {
	return func(s *FFmpegStitcher) {
		s.opts = opts
	}
}

// WithLogger sets the logger used for degraded-path warnings.
func WithLogger(logger *slog.Logger) StitcherOption {
	return func(s *FFmpegStitcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFFmpegStitcher creates a new FFmpegStitcher.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegStitcher(ffmpegPath string, opts ...StitcherOption) *FFmpegStitcher {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	s := &FFmpegStitcher{
		ffmpegPath: ffmpegPath,
		opts:       DefaultTrimOpts(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Combine implements Stitcher. Trim failures and concat failures degrade per
// the fallback chain instead of aborting; only a totally unwritable output is
// fatal.
func (s *FFmpegStitcher) Combine(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}

	// Phase 1: trim each clip independently. A failed trim falls back to
	// the untrimmed original for that position.
	trimmed := make([]string, len(inputs))
	for i, in := range inputs {
		dst := trimOutputPath(in, i)
		if err := s.TrimSilence(ctx, in, dst); err != nil {
			s.logger.Warn("silence trim failed, using untrimmed clip",
				slog.String("clip", in),
				slog.String("error", err.Error()),
			)
			trimmed[i] = in
			continue
		}
		trimmed[i] = dst
	}

	// Phase 2: lossless concatenation via the concat demuxer with stream
	// copy. Falls back to first-clip-only output so the run still produces
	// an audio file.
	if err := s.concat(ctx, trimmed, output); err != nil {
		s.logger.Warn("concat failed, falling back to first clip",
			slog.String("error", err.Error()),
		)
		if copyErr := copyFile(trimmed[0], output); copyErr != nil {
			s.overwriteInputs(inputs, trimmed)
			return fmt.Errorf("audio: combine fallback: %w", copyErr)
		}
	}

	// Downstream timing estimation measures the same temp files, so they
	// must reflect the trimmed durations.
	s.overwriteInputs(inputs, trimmed)
	return nil
}

// TrimSilence removes low-amplitude regions from both ends of a clip. The
// silenceremove filter only trims the head, so it runs once forward and once
// on the reversed signal.
func (s *FFmpegStitcher) TrimSilence(ctx context.Context, src, dst string) error {
	remove := fmt.Sprintf("silenceremove=start_periods=1:start_silence=%g:start_threshold=%gdB",
		s.opts.StartSilenceSec, s.opts.ThresholdDB)
	filter := remove + ",areverse," + remove + ",areverse"

	args := []string{
		"-y", "-v", "quiet",
		"-i", src,
		"-af", filter,
		dst,
	}
	return s.runFFmpeg(ctx, args)
}

// concat joins clips in order without re-encoding.
func (s *FFmpegStitcher) concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 1 {
		return copyFile(inputs[0], output)
	}

	listFile, err := createConcatList(inputs)
	if err != nil {
		return fmt.Errorf("audio: create concat list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	args := []string{
		"-y", "-v", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}
	return s.runFFmpeg(ctx, args)
}

// overwriteInputs moves each trimmed clip back over its original input path.
func (s *FFmpegStitcher) overwriteInputs(inputs, trimmed []string) {
	for i, t := range trimmed {
		if t == inputs[i] {
			continue
		}
		if err := os.Rename(t, inputs[i]); err != nil {
			// Rename fails across filesystems; fall back to copy.
			if copyErr := copyFile(t, inputs[i]); copyErr != nil {
				s.logger.Warn("failed to write trimmed clip back",
					slog.String("clip", inputs[i]),
					slog.String("error", copyErr.Error()),
				)
				continue
			}
			_ = os.Remove(t)
		}
	}
}

// createConcatList writes the ffmpeg concat demuxer file list.
func createConcatList(paths []string) (string, error) {
	f, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", path, err)
		}
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("write concat list: %w", err)
		}
	}

	return f.Name(), nil
}

// trimOutputPath derives the temp path for a clip's trimmed copy.
func trimOutputPath(in string, i int) string {
	ext := filepath.Ext(in)
	return fmt.Sprintf("%s_trimmed_%d%s", strings.TrimSuffix(in, ext), i, ext)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - paths come from trusted internal code
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}

// runFFmpeg executes ffmpeg and wraps a non-zero exit with the stderr output.
func (s *FFmpegStitcher) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Compile-time check that FFmpegStitcher implements Stitcher.
var _ Stitcher = (*FFmpegStitcher)(nil)
