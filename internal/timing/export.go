package timing

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Format is a timing export format.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
)

// ErrUnknownFormat is returned for a format outside the supported set.
var ErrUnknownFormat = errors.New("timing: unknown export format")

// IsValid reports whether the format is one of the supported set.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatSRT, FormatVTT:
		return true
	default:
		return false
	}
}

// Export serializes the sentence timings in the requested format.
func Export(sentences []Sentence, f Format) (string, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(sentences, "", "  ")
		if err != nil {
			return "", fmt.Errorf("timing: marshal: %w", err)
		}
		return string(data), nil
	case FormatCSV:
		return exportCSV(sentences)
	case FormatSRT:
		return exportSRT(sentences), nil
	case FormatVTT:
		return exportVTT(sentences), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func exportCSV(sentences []Sentence) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"sentence_index", "start_ms", "end_ms", "text"}); err != nil {
		return "", fmt.Errorf("timing: write csv: %w", err)
	}
	for _, s := range sentences {
		record := []string{
			strconv.Itoa(s.SentenceIndex),
			strconv.FormatInt(s.StartMs, 10),
			strconv.FormatInt(s.EndMs, 10),
			s.Text,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("timing: write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("timing: flush csv: %w", err)
	}
	return buf.String(), nil
}

func exportSRT(sentences []Sentence) string {
	var b strings.Builder
	for i, s := range sentences {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(msToSRT(s.StartMs))
		b.WriteString(" --> ")
		b.WriteString(msToSRT(s.EndMs))
		b.WriteByte('\n')
		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func exportVTT(sentences []Sentence) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range sentences {
		b.WriteString(msToVTT(s.StartMs))
		b.WriteString(" --> ")
		b.WriteString(msToVTT(s.EndMs))
		b.WriteByte('\n')
		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// msToSRT renders milliseconds as HH:MM:SS,mmm.
func msToSRT(ms int64) string {
	h, m, s, rem := splitMs(ms)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, rem)
}

// msToVTT renders milliseconds as HH:MM:SS.mmm.
func msToVTT(ms int64) string {
	h, m, s, rem := splitMs(ms)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, rem)
}

func splitMs(ms int64) (h, m, s, rem int64) {
	h = ms / 3600000
	ms %= 3600000
	m = ms / 60000
	ms %= 60000
	s = ms / 1000
	rem = ms % 1000
	return h, m, s, rem
}
