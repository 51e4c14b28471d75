// Package compose defines the port to the external video compositor.
// Audio generation and timing estimation happen in-process; the visual
// composition step is delegated to a separately installed tool that
// consumes the timing document.
package compose

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"
)

// ErrNotConfigured is returned when no compositor command is configured.
var ErrNotConfigured = errors.New("compositor not configured")

// Compositor renders a video from a timing document.
type Compositor interface {
	// Render composes the final video described by the timing document at
	// documentPath and writes it to outputPath.
	Render(ctx context.Context, documentPath, outputPath string) error
}

// ExecCompositor invokes an external command, passing the timing document
// and output paths as trailing arguments.
type ExecCompositor struct {
	cmd     []string
	timeout time.Duration
}

// ExecOption configures an ExecCompositor.
type ExecOption func(*ExecCompositor)

// WithTimeout sets the maximum duration for a single render.
func WithTimeout(d time.Duration) ExecOption {
	return func(c *ExecCompositor) {
		c.timeout = d
	}
}

// NewExecCompositor creates a compositor from a shell-style command string,
// e.g. "python3 compositor.py --preset fast".
func NewExecCompositor(command string, opts ...ExecOption) (*ExecCompositor, error) {
	if command == "" {
		return nil, ErrNotConfigured
	}
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse compositor command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrNotConfigured
	}
	c := &ExecCompositor{
		cmd:     args,
		timeout: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Render runs the configured command with the document and output paths
// appended as its final two arguments.
func (c *ExecCompositor) Render(ctx context.Context, documentPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := make([]string, 0, len(c.cmd)+1)
	args = append(args, c.cmd[1:]...)
	args = append(args, documentPath, outputPath)

	cmd := exec.CommandContext(ctx, c.cmd[0], args...) // #nosec G204 - command comes from operator config
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("compositor: %w", ctx.Err())
		}
		return fmt.Errorf("compositor failed: %w: %s", err, string(output))
	}
	return nil
}
