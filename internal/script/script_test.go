package script

import (
	"reflect"
	"testing"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/prosody"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic",
			text: "Hello world. How are you? Fine!",
			want: []string{"Hello world.", "How are you?", "Fine!"},
		},
		{
			name: "single sentence no trailing space",
			text: "Just one sentence.",
			want: []string{"Just one sentence."},
		},
		{
			name: "no terminal punctuation",
			text: "trailing fragment",
			want: []string{"trailing fragment"},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
		{
			name: "newlines between sentences",
			text: "First one.\nSecond one!",
			want: []string{"First one.", "Second one!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		sentence string
		want     []string
	}{
		{"Hi there.", []string{"Hi", "there", "."}},
		{"Wait, what?!", []string{"Wait", ",", "what", "?", "!"}},
		{"100 percent", []string{"100", "percent"}},
	}

	for _, tt := range tests {
		got := Tokenize(tt.sentence)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.sentence, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	sentences := Parse("Hi there. Bye!", "")
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[0].Voice != DefaultVoice {
		t.Errorf("expected default voice, got %q", sentences[0].Voice)
	}
	if sentences[0].Text != "Hi there." {
		t.Errorf("unexpected sentence text %q", sentences[0].Text)
	}
	wantWords := []string{"Hi", "there", "."}
	for i, w := range sentences[0].Words {
		if w.Text != wantWords[i] {
			t.Errorf("word %d = %q, want %q", i, w.Text, wantWords[i])
		}
		if w.Pitch != prosody.DefaultPitch || w.Rate != prosody.DefaultRate {
			t.Errorf("word %d has non-default prosody %q/%q", i, w.Pitch, w.Rate)
		}
	}
}

func TestResolveProsody(t *testing.T) {
	s := Sentence{
		Text: "a b",
		Words: []Word{
			{Text: "a", Pitch: "+30Hz", Rate: "+0%"},
			{Text: "b", Pitch: "+0Hz", Rate: "+0%"},
		},
		Pitch: "+0Hz",
		Rate:  "+0%",
	}

	resolved := ResolveProsody(s, prosody.Params{Pitch: "-10Hz", Rate: "+20%"})

	if resolved.Words[0].Pitch != "+30Hz" {
		t.Errorf("word override lost: %q", resolved.Words[0].Pitch)
	}
	if resolved.Words[0].Rate != "+20%" {
		t.Errorf("global rate not applied: %q", resolved.Words[0].Rate)
	}
	if resolved.Words[1].Pitch != "-10Hz" {
		t.Errorf("global pitch not applied: %q", resolved.Words[1].Pitch)
	}

	// Input sentence must be untouched.
	if s.Words[1].Pitch != "+0Hz" {
		t.Errorf("input mutated: %q", s.Words[1].Pitch)
	}
}

func TestPositionIsValid(t *testing.T) {
	for _, p := range []Position{PositionCenter, PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight} {
		if !p.IsValid() {
			t.Errorf("expected %q to be valid", p)
		}
	}
	if Position("middle").IsValid() {
		t.Error("expected unknown position to be invalid")
	}
}
