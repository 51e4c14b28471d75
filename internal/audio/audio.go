// Package audio provides interfaces and implementations for stitching
// synthesized speech clips and measuring their durations.
package audio

import "context"

// TrimOpts configures per-clip silence trimming.
type TrimOpts struct {
	// StartSilenceSec is the minimum silence length in seconds kept at
	// each end before trimming begins.
	// Default: 0.01 seconds.
	StartSilenceSec float64

	// ThresholdDB is the volume threshold in dBFS below which audio is
	// considered silence.
	// Default: -30 dBFS.
	ThresholdDB float64
}

// DefaultTrimOpts returns the default silence trim options.
func DefaultTrimOpts() TrimOpts {
	return TrimOpts{
		StartSilenceSec: 0.01,
		ThresholdDB:     -30,
	}
}

// Stitcher joins ordered speech clips into a single track.
type Stitcher interface {
	// Combine trims leading and trailing silence from every input clip,
	// then concatenates the trimmed clips in order into output without
	// re-encoding.
	//
	// Trimmed content is written back over the input paths so callers
	// measuring those files afterwards see the trimmed durations. A clip
	// whose trim fails is used untrimmed; if concatenation itself fails,
	// the first clip alone becomes the output. Combine fails only when no
	// output can be produced at all.
	Combine(ctx context.Context, inputs []string, output string) error
}

// Prober measures media durations.
type Prober interface {
	// Duration returns the duration of the media file in seconds.
	Duration(ctx context.Context, path string) (float64, error)
}
