// Package script models the narration script: sentences, words, their prosody
// settings and overlay descriptors, plus parsing of raw text into that model.
package script

import (
	"regexp"
	"strings"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/prosody"
)

// Position is where an image overlay is placed on the frame.
type Position string

// Valid overlay positions. The compositor understands exactly these.
const (
	PositionCenter      Position = "center"
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// IsValid reports whether the position is one of the closed set.
func (p Position) IsValid() bool {
	switch p {
	case PositionCenter, PositionTopLeft, PositionTopRight,
		PositionBottomLeft, PositionBottomRight:
		return true
	default:
		return false
	}
}

// ImageOverlay attaches an image to a word. StartMs is relative to the word's
// start; nil means 0.
type ImageOverlay struct {
	Path       string   `json:"path"`
	StartMs    *int64   `json:"start_ms,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Position   Position `json:"position"`
	Scale      float64  `json:"scale"`
}

// AudioOverlay attaches a sound effect to a word. StartMs is relative to the
// word's start; nil means 0. A nil DurationMs plays the full effect.
type AudioOverlay struct {
	Path       string `json:"path"`
	StartMs    *int64 `json:"start_ms,omitempty"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
	// Volume is 0.0 to 1.0.
	Volume float64 `json:"volume"`
}

// Word is a single token of a sentence with optional prosody override and
// overlay descriptors. The pipeline reads words, it never mutates them.
type Word struct {
	Text  string `json:"text"`
	Pitch string `json:"pitch"`
	Rate  string `json:"rate"`

	Image *ImageOverlay `json:"image,omitempty"`
	Audio *AudioOverlay `json:"audio,omitempty"`
}

// Params returns the word's prosody pair.
func (w Word) Params() prosody.Params {
	return prosody.Params{Pitch: w.Pitch, Rate: w.Rate}
}

// Sentence is an ordered run of words spoken with one voice. Word order is
// speech order.
type Sentence struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`
	Voice string `json:"voice"`
	Pitch string `json:"pitch"`
	Rate  string `json:"rate"`

	BackgroundVideo string `json:"background_video,omitempty"`
	CaptionStyle    string `json:"caption_style,omitempty"`
}

// Params returns the sentence-level prosody defaults.
func (s Sentence) Params() prosody.Params {
	return prosody.Params{Pitch: s.Pitch, Rate: s.Rate}
}

// DefaultVoice is used when a sentence does not name one.
const DefaultVoice = "en-US-ChristopherNeural"

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+\s+`)
	wordTokenRe     = regexp.MustCompile(`\w+|[^\w\s]`)
)

// SplitSentences splits raw script text into sentence strings at terminal
// punctuation followed by whitespace, keeping the punctuation with the
// sentence it ends. Empty sentences are dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	rest := text
	for {
		loc := sentenceSplitRe.FindStringIndex(rest)
		if loc == nil {
			if s := strings.TrimSpace(rest); s != "" {
				sentences = append(sentences, s)
			}
			return sentences
		}
		// Keep the punctuation, drop the trailing whitespace.
		head := strings.TrimSpace(rest[:loc[1]])
		if head != "" {
			sentences = append(sentences, head)
		}
		rest = rest[loc[1]:]
	}
}

// Tokenize splits a sentence into word tokens, keeping punctuation marks as
// their own tokens.
func Tokenize(sentence string) []string {
	return wordTokenRe.FindAllString(sentence, -1)
}

// Parse turns raw script text into sentences with default prosody. The voice
// applies to every sentence; empty voice falls back to DefaultVoice.
func Parse(text, voice string) []Sentence {
	if voice == "" {
		voice = DefaultVoice
	}

	var sentences []Sentence
	for _, s := range SplitSentences(text) {
		tokens := Tokenize(s)
		words := make([]Word, 0, len(tokens))
		for _, tok := range tokens {
			words = append(words, Word{
				Text:  tok,
				Pitch: prosody.DefaultPitch,
				Rate:  prosody.DefaultRate,
			})
		}
		sentences = append(sentences, Sentence{
			Text:         s,
			Words:        words,
			Voice:        voice,
			Pitch:        prosody.DefaultPitch,
			Rate:         prosody.DefaultRate,
			CaptionStyle: "default",
		})
	}
	return sentences
}

// ResolveProsody returns a copy of the sentence with every word's prosody
// replaced by the effective merged value of word override, sentence default
// and global default. Applied once before chunking so the chunker only ever
// compares final values.
func ResolveProsody(s Sentence, global prosody.Params) Sentence {
	out := s
	out.Words = make([]Word, len(s.Words))
	for i, w := range s.Words {
		eff := prosody.Resolve(w.Params(), s.Params(), global)
		w.Pitch = eff.Pitch
		w.Rate = eff.Rate
		out.Words[i] = w
	}
	return out
}
