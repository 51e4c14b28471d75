package script

import (
	"strings"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/prosody"
)

// Chunk is a maximal contiguous run of words sharing identical prosody,
// synthesized as a single engine request. Chunks are transient: they exist
// only for the duration of one generation run.
type Chunk struct {
	Words  []string
	Params prosody.Params
}

// Text joins the chunk's words with spaces for the synthesis request.
func (c Chunk) Text() string {
	return strings.Join(c.Words, " ")
}

// Speakable reports whether the chunk contains anything the engine can
// vocalize. Punctuation-only chunks waste a request and the engine does not
// reliably voice them.
func (c Chunk) Speakable() bool {
	for _, w := range c.Words {
		for _, r := range w {
			if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
				return true
			}
		}
	}
	return false
}

// BuildChunks groups a sentence's words into maximal runs with identical
// (pitch, rate). Boundaries occur only where the prosody changes, so
// concatenating chunk word lists in order reproduces the word sequence.
// An empty word list yields no chunks.
func BuildChunks(words []Word) []Chunk {
	if len(words) == 0 {
		return nil
	}

	current := Chunk{Params: words[0].Params()}
	var chunks []Chunk
	for _, w := range words {
		if w.Params() == current.Params {
			current.Words = append(current.Words, w.Text)
			continue
		}
		chunks = append(chunks, current)
		current = Chunk{Words: []string{w.Text}, Params: w.Params()}
	}
	return append(chunks, current)
}

// SpeakableChunks returns the chunks that survive the punctuation-only drop,
// in original order.
func SpeakableChunks(chunks []Chunk) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Speakable() {
			out = append(out, c)
		}
	}
	return out
}
