package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"
)

// DefaultCommand invokes the edge-tts CLI found in PATH.
const DefaultCommand = "edge-tts"

// EdgeEngine synthesizes speech by invoking the edge-tts command line tool.
// Transient network failures inside the tool are handled with retries and a
// linear backoff.
type EdgeEngine struct {
	cmd         []string
	maxRetries  int
	baseBackoff time.Duration
	timeout     time.Duration
}

// EdgeOption configures an EdgeEngine.
type EdgeOption func(*EdgeEngine)

// WithMaxRetries sets how many attempts are made per request.
func WithMaxRetries(n int) EdgeOption {
	return func(e *EdgeEngine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the backoff unit between attempts.
func WithBaseBackoff(d time.Duration) EdgeOption {
	return func(e *EdgeEngine) {
		e.baseBackoff = d
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) EdgeOption {
	return func(e *EdgeEngine) {
		e.timeout = d
	}
}

// NewEdgeEngine creates an engine around the given command line. The command
// may carry its own arguments ("python3 -m edge_tts"); an empty command
// defaults to the edge-tts binary in PATH.
func NewEdgeEngine(command string, opts ...EdgeOption) (*EdgeEngine, error) {
	if command == "" {
		command = DefaultCommand
	}
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("tts: parse command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts: empty command")
	}

	e := &EdgeEngine{
		cmd:         args,
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
		timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Synthesize implements Engine. It retries transient failures and verifies
// the output file is non-empty before reporting success.
func (e *EdgeEngine) Synthesize(ctx context.Context, req Request) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	if req.OutputPath == "" {
		return ErrEmptyOutput
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("tts: cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * e.baseBackoff):
			}
		}

		if err := e.runOnce(ctx, req); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return fmt.Errorf("tts: cancelled: %w", ctx.Err())
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("tts: synthesis failed after %d attempts: %w", e.maxRetries, lastErr)
}

func (e *EdgeEngine) runOnce(ctx context.Context, req Request) error {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := append([]string{}, e.cmd[1:]...)
	args = append(args,
		"--text", req.Text,
		"--voice", req.Voice,
		"--write-media", req.OutputPath,
	)
	if req.Pitch != "" {
		args = append(args, "--pitch", req.Pitch)
	}
	if req.Rate != "" {
		args = append(args, "--rate", req.Rate)
	}

	// #nosec G204 - the command comes from configuration, not user input
	cmd := exec.CommandContext(attemptCtx, e.cmd[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("tts: attempt timed out after %s", e.timeout)
		}
		return fmt.Errorf("tts: engine failed: %w, stderr: %s", err, stderr.String())
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return fmt.Errorf("tts: stat output: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmptyAudio
	}
	return nil
}

// Compile-time check that EdgeEngine implements Engine.
var _ Engine = (*EdgeEngine)(nil)
