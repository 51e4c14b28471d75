// Package prosody normalizes pitch and rate parameters for the speech engine.
// The engine rejects out-of-range values outright, so values are clamped to
// the accepted range before a request is built. Strings that cannot be parsed
// are passed through unchanged; the engine surfaces its own error for those.
package prosody

import (
	"fmt"
	"strconv"
	"strings"
)

// Accepted ranges for the edge-tts engine.
const (
	MinPitchHz = -100
	MaxPitchHz = 100
	MinRatePct = -50
	MaxRatePct = 100
)

// Default values meaning "no override".
const (
	DefaultPitch = "+0Hz"
	DefaultRate  = "+0%"
)

// Params is a (pitch, rate) pair as the engine consumes it, e.g. "+10Hz"/"-5%".
type Params struct {
	Pitch string
	Rate  string
}

// DefaultParams returns the no-override parameter pair.
func DefaultParams() Params {
	return Params{Pitch: DefaultPitch, Rate: DefaultRate}
}

// Normalize returns the clamped form of both parameters.
func (p Params) Normalize() Params {
	return Params{
		Pitch: ClampPitch(p.Pitch),
		Rate:  ClampRate(p.Rate),
	}
}

// IsDefault reports whether neither parameter overrides the default.
func (p Params) IsDefault() bool {
	return (p.Pitch == DefaultPitch || p.Pitch == "") &&
		(p.Rate == DefaultRate || p.Rate == "")
}

// ClampPitch clamps a pitch string of the form "±NHz" to [-100, 100] Hz.
// Unparseable input is returned unchanged.
func ClampPitch(pitch string) string {
	n, err := parseSigned(pitch, "Hz")
	if err != nil {
		return pitch
	}
	return fmt.Sprintf("%+dHz", clamp(n, MinPitchHz, MaxPitchHz))
}

// ClampRate clamps a rate string of the form "±N%" to [-50, 100] %.
// Unparseable input is returned unchanged.
func ClampRate(rate string) string {
	n, err := parseSigned(rate, "%")
	if err != nil {
		return rate
	}
	return fmt.Sprintf("%+d%%", clamp(n, MinRatePct, MaxRatePct))
}

// Resolve merges a word-level override with sentence and global defaults.
// The first non-default value wins, word first. This replaces in-place
// mutation of word settings with a pure merge applied before chunking.
func Resolve(word, sentence, global Params) Params {
	out := global.Normalize()
	if out.Pitch == "" {
		out.Pitch = DefaultPitch
	}
	if out.Rate == "" {
		out.Rate = DefaultRate
	}
	if !sentence.IsDefault() {
		if sentence.Pitch != DefaultPitch && sentence.Pitch != "" {
			out.Pitch = ClampPitch(sentence.Pitch)
		}
		if sentence.Rate != DefaultRate && sentence.Rate != "" {
			out.Rate = ClampRate(sentence.Rate)
		}
	}
	if word.Pitch != DefaultPitch && word.Pitch != "" {
		out.Pitch = ClampPitch(word.Pitch)
	}
	if word.Rate != DefaultRate && word.Rate != "" {
		out.Rate = ClampRate(word.Rate)
	}
	return out
}

// parseSigned extracts the signed integer from a value like "+20Hz" or "-5%".
func parseSigned(s, unit string) (int, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), unit)
	trimmed = strings.TrimPrefix(trimmed, "+")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
