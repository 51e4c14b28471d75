// Package tts provides the synthesis engine port and its edge-tts backed
// implementation. One request synthesizes one chunk of text into an audio
// file at a caller-chosen path.
package tts

import (
	"context"
	"errors"
)

// Static errors for engine operations.
var (
	// ErrEmptyText is returned when the request carries no text.
	ErrEmptyText = errors.New("tts: text is required")
	// ErrEmptyOutput is returned when no output path was given.
	ErrEmptyOutput = errors.New("tts: output path is required")
	// ErrEmptyAudio is returned when the engine exits cleanly but wrote
	// nothing usable.
	ErrEmptyAudio = errors.New("tts: engine produced empty audio")
)

// Request describes one synthesis call. Pitch and rate use the engine's
// signed textual forms ("+10Hz", "-5%") and are expected to be normalized
// already.
type Request struct {
	Text       string
	Voice      string
	Pitch      string
	Rate       string
	OutputPath string
}

// Engine is the synthesis port. Implementations write the synthesized audio
// to req.OutputPath and return only after the file is complete. Errors from
// the engine are opaque and must be surfaced, never swallowed.
type Engine interface {
	Synthesize(ctx context.Context, req Request) error
}
