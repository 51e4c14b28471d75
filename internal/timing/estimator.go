package timing

import (
	"context"
	"log/slog"
	"os"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/audio"
)

// Estimator derives absolute sentence and word timestamps from the final
// (trimmed) per-sentence clips. Word intervals are a length-proportional
// approximation, not acoustic ground truth.
type Estimator struct {
	prober audio.Prober
	logger *slog.Logger
}

// NewEstimator creates an Estimator. A nil logger falls back to slog.Default.
func NewEstimator(prober audio.Prober, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{prober: prober, logger: logger}
}

// Estimate refines the preliminary entries using the measured duration of
// each sentence clip. clips[i] corresponds to preliminary[i]. A sentence
// whose clip cannot be measured at all keeps its preliminary entry and does
// not advance the timeline cursor.
func (e *Estimator) Estimate(ctx context.Context, clips []string, preliminary []Sentence) []Sentence {
	out := make([]Sentence, 0, len(preliminary))
	var cursor int64

	for i, clip := range clips {
		if i >= len(preliminary) {
			break
		}

		durationMs, ok := e.measure(ctx, clip)
		if !ok {
			out = append(out, preliminary[i])
			continue
		}

		entry := preliminary[i]
		entry.StartMs = cursor
		entry.EndMs = cursor + durationMs
		entry.Words = partitionWords(preliminary[i].Words, cursor, durationMs)
		out = append(out, entry)

		cursor += durationMs
	}

	return out
}

// measure returns the clip duration in milliseconds, trying ffprobe first
// and the byte-size heuristic second. It reports false only when the file
// cannot be read at all.
func (e *Estimator) measure(ctx context.Context, clip string) (int64, bool) {
	if seconds, err := e.prober.Duration(ctx, clip); err == nil {
		return int64(seconds * 1000), true
	} else {
		e.logger.Warn("duration probe failed, using byte-size heuristic",
			slog.String("clip", clip),
			slog.String("error", err.Error()),
		)
	}

	if _, err := os.Stat(clip); err != nil {
		e.logger.Warn("clip unreadable, keeping preliminary timestamps",
			slog.String("clip", clip),
			slog.String("error", err.Error()),
		)
		return 0, false
	}
	return int64(audio.FallbackDuration(clip) * 1000), true
}

// partitionWords allocates the sentence duration across words proportionally
// to character length. Punctuation-only words keep their character share,
// matching how the preliminary word list was built. The partition is exact:
// no gaps, no overlaps, the final word ends at the sentence end.
func partitionWords(words []Word, startMs, durationMs int64) []Word {
	if len(words) == 0 {
		return words
	}

	totalChars := 0
	for _, w := range words {
		totalChars += len(w.Text)
	}

	out := make([]Word, len(words))
	cursor := float64(startMs)
	for i, w := range words {
		var wordDuration float64
		if totalChars > 0 {
			wordDuration = float64(len(w.Text)) / float64(totalChars) * float64(durationMs)
		} else {
			wordDuration = float64(durationMs) / float64(len(words))
		}

		w.StartMs = int64(cursor)
		w.EndMs = int64(cursor + wordDuration)
		if i == len(words)-1 {
			// Absorb accumulated rounding so the partition is exact.
			w.EndMs = startMs + durationMs
		}

		if w.Image != nil {
			cue := *w.Image
			cue.AbsoluteStartMs = w.StartMs + cue.StartMs
			w.Image = &cue
		}
		if w.Audio != nil {
			cue := *w.Audio
			cue.AbsoluteStartMs = w.StartMs + cue.StartMs
			w.Audio = &cue
		}

		out[i] = w
		cursor += wordDuration
	}
	return out
}
