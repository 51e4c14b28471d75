// Package timing reconstructs sentence and word timestamps from synthesized
// clip durations and serializes the resulting timing document for the video
// compositor.
package timing

import (
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/script"
)

// Metadata is the document envelope describing the run's shared assets.
type Metadata struct {
	Title           string `json:"title"`
	BackgroundVideo string `json:"background_video,omitempty"`
	CaptionStyle    string `json:"caption_style"`
	AudioFile       string `json:"audio_file"`
}

// Document is the contract handed to the external compositor: the combined
// audio plus absolute timing for every sentence, word and overlay cue.
type Document struct {
	Metadata  Metadata   `json:"metadata"`
	Sentences []Sentence `json:"sentences"`
}

// Sentence is one sentence's resolved interval and word timings.
type Sentence struct {
	SentenceIndex int    `json:"sentence_index"`
	Text          string `json:"text"`
	StartMs       int64  `json:"start_ms"`
	EndMs         int64  `json:"end_ms"`
	Words         []Word `json:"words"`
}

// Word is one word's interval plus any overlay cues.
type Word struct {
	Text    string    `json:"text"`
	StartMs int64     `json:"start_ms"`
	EndMs   int64     `json:"end_ms"`
	Image   *ImageCue `json:"image,omitempty"`
	Audio   *AudioCue `json:"audio,omitempty"`
}

// ImageCue is an image overlay with its offset resolved to absolute time.
// StartMs stays relative to the word start; AbsoluteStartMs is the final
// timeline position.
type ImageCue struct {
	Path            string          `json:"path"`
	StartMs         int64           `json:"start_ms"`
	DurationMs      int64           `json:"duration_ms"`
	Position        script.Position `json:"position"`
	Scale           float64         `json:"scale"`
	AbsoluteStartMs int64           `json:"absolute_start_ms"`
}

// AudioCue is a sound-effect overlay. A nil DurationMs plays the full effect.
type AudioCue struct {
	Path            string `json:"path"`
	StartMs         int64  `json:"start_ms"`
	DurationMs      *int64 `json:"duration_ms"`
	Volume          float64 `json:"volume"`
	AbsoluteStartMs int64  `json:"absolute_start_ms"`
}

// Preliminary builds the pre-measurement entry for a sentence. Sentence
// bounds are placeholders (2s per sentence) and word intervals are zero; the
// estimator refines both once clip durations are known. Overlay descriptors
// are carried over so a measurement failure still yields a complete entry.
func Preliminary(idx int, s script.Sentence) Sentence {
	entry := Sentence{
		SentenceIndex: idx,
		Text:          s.Text,
		StartMs:       int64(idx) * 2000,
		EndMs:         int64(idx+1) * 2000,
		Words:         make([]Word, 0, len(s.Words)),
	}

	for _, w := range s.Words {
		word := Word{Text: w.Text}
		if w.Image != nil {
			word.Image = &ImageCue{
				Path:       w.Image.Path,
				StartMs:    offsetOrZero(w.Image.StartMs),
				DurationMs: w.Image.DurationMs,
				Position:   w.Image.Position,
				Scale:      w.Image.Scale,
			}
		}
		if w.Audio != nil {
			word.Audio = &AudioCue{
				Path:       w.Audio.Path,
				StartMs:    offsetOrZero(w.Audio.StartMs),
				DurationMs: w.Audio.DurationMs,
				Volume:     w.Audio.Volume,
			}
		}
		entry.Words = append(entry.Words, word)
	}
	return entry
}

func offsetOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
