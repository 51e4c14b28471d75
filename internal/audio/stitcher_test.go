package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestClip writes a short tone with silence padding on both ends.
func createTestClip(t *testing.T, path string, toneSec, padSec float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("sine=frequency=440:duration=%.2f", toneSec),
		"-af", fmt.Sprintf("adelay=%d|%d,apad=pad_dur=%.2f", int(padSec*1000), int(padSec*1000), padSec),
		"-q:a", "4",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test clip: %v\noutput: %s", err, output)
	}
}

func clipDuration(t *testing.T, path string) float64 {
	t.Helper()
	d, err := NewFFprobeProber("").Duration(context.Background(), path)
	if err != nil {
		t.Fatalf("probe %s: %v", path, err)
	}
	return d
}

func TestNewFFmpegStitcher(t *testing.T) {
	s := NewFFmpegStitcher("")
	if s.ffmpegPath != "ffmpeg" {
		t.Errorf("expected default path 'ffmpeg', got %q", s.ffmpegPath)
	}
	if s.opts != DefaultTrimOpts() {
		t.Errorf("expected default trim opts, got %+v", s.opts)
	}

	custom := TrimOpts{StartSilenceSec: 0.1, ThresholdDB: -40}
	s2 := NewFFmpegStitcher("/opt/ffmpeg", WithTrimOpts(custom))
	if s2.ffmpegPath != "/opt/ffmpeg" {
		t.Errorf("expected custom path, got %q", s2.ffmpegPath)
	}
	if s2.opts != custom {
		t.Errorf("expected custom trim opts, got %+v", s2.opts)
	}
}

func TestTrimSilence(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "padded.mp3")
	dst := filepath.Join(tmpDir, "trimmed.mp3")

	// 0.5s tone wrapped in 0.4s silence on each end.
	createTestClip(t, src, 0.5, 0.4)

	s := NewFFmpegStitcher("")
	if err := s.TrimSilence(context.Background(), src, dst); err != nil {
		t.Fatalf("TrimSilence failed: %v", err)
	}

	before := clipDuration(t, src)
	after := clipDuration(t, dst)
	if after >= before {
		t.Errorf("expected trimmed clip shorter than original: %.3fs >= %.3fs", after, before)
	}
	if after < 0.3 {
		t.Errorf("trim removed the tone itself: %.3fs", after)
	}
}

func TestCombine(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	ctx := context.Background()

	var inputs []string
	for i := 0; i < 3; i++ {
		p := filepath.Join(tmpDir, fmt.Sprintf("clip_%d.mp3", i))
		createTestClip(t, p, 0.4, 0.3)
		inputs = append(inputs, p)
	}
	untrimmed := clipDuration(t, inputs[0])

	output := filepath.Join(tmpDir, "combined.mp3")
	s := NewFFmpegStitcher("")
	if err := s.Combine(ctx, inputs, output); err != nil {
		t.Fatalf("Combine failed: %v", err)
	}

	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output not created: %v", err)
	}

	// Inputs must be overwritten with their trimmed versions.
	for _, in := range inputs {
		if d := clipDuration(t, in); d >= untrimmed {
			t.Errorf("input %s not overwritten with trimmed clip: %.3fs", in, d)
		}
	}

	// Combined duration is roughly the sum of the trimmed inputs.
	var sum float64
	for _, in := range inputs {
		sum += clipDuration(t, in)
	}
	combined := clipDuration(t, output)
	if diff := combined - sum; diff > 0.2 || diff < -0.2 {
		t.Errorf("combined duration %.3fs, trimmed inputs sum %.3fs", combined, sum)
	}
}

func TestCombine_SingleClip(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "only.mp3")
	createTestClip(t, in, 0.4, 0.3)

	output := filepath.Join(tmpDir, "combined.mp3")
	s := NewFFmpegStitcher("")
	if err := s.Combine(context.Background(), []string{in}, output); err != nil {
		t.Fatalf("Combine failed: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output not created: %v", err)
	}
}

func TestCombine_TrimFailureFallsBackToOriginal(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	good := filepath.Join(tmpDir, "good.mp3")
	createTestClip(t, good, 0.4, 0.2)

	// Not audio at all: trim fails for this clip, concat then fails, and
	// the combine degrades to first-clip-only output.
	bad := filepath.Join(tmpDir, "bad.mp3")
	if err := os.WriteFile(bad, []byte("not audio"), 0600); err != nil {
		t.Fatal(err)
	}

	output := filepath.Join(tmpDir, "combined.mp3")
	s := NewFFmpegStitcher("")
	if err := s.Combine(context.Background(), []string{good, bad}, output); err != nil {
		t.Fatalf("Combine must degrade, not fail: %v", err)
	}
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		t.Fatalf("expected non-empty fallback output, err=%v", err)
	}
}

func TestCombine_NoInputs(t *testing.T) {
	s := NewFFmpegStitcher("")
	err := s.Combine(context.Background(), nil, "out.mp3")
	if err != ErrNoInputs {
		t.Errorf("expected ErrNoInputs, got %v", err)
	}
}
