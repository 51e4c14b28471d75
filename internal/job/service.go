package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/audio"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/compose"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/prosody"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/script"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/storage"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/timing"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/tts"
)

// DefaultAudioName is the combined audio filename when the input names none.
const DefaultAudioName = "narration.mp3"

// GenerateInput contains the parameters for one generation run.
type GenerateInput struct {
	// Sentences is the parsed script in speech order.
	Sentences []script.Sentence
	// Global is the script-wide prosody default merged under sentence and
	// word settings.
	Global prosody.Params
	// Title goes into the timing document metadata.
	Title string
	// AudioName is the output audio filename. Defaults to DefaultAudioName.
	AudioName string
	// PushToS3 uploads the audio and timing document when S3 is configured.
	PushToS3 bool
}

// GenerateOutput contains the result of a completed generation run.
type GenerateOutput struct {
	RunID        string
	Status       Status
	AudioPath    string
	DocumentPath string
	AudioURL     string
	DocumentURL  string
	Document     *timing.Document
}

// GenerateService orchestrates audio generation: chunking, concurrent
// synthesis, stitching and timestamp estimation, producing the combined
// audio file and the timing document as one atomic result.
type GenerateService struct {
	repo       Repository
	engine     tts.Engine
	stitcher   audio.Stitcher
	estimator  *timing.Estimator
	store      storage.Storage
	compositor compose.Compositor
	logger     *slog.Logger

	// maxConcurrentSentences bounds the sentence-level fan-out.
	maxConcurrentSentences int
}

// ServiceOption configures a GenerateService.
type ServiceOption func(*GenerateService)

// WithMaxConcurrentSentences bounds how many sentences synthesize in
// parallel. Values below 1 are ignored.
func WithMaxConcurrentSentences(n int) ServiceOption {
	return func(s *GenerateService) {
		if n > 0 {
			s.maxConcurrentSentences = n
		}
	}
}

// WithCompositor enables video rendering through the external compositor.
func WithCompositor(c compose.Compositor) ServiceOption {
	return func(s *GenerateService) {
		s.compositor = c
	}
}

// NewGenerateService creates a new GenerateService.
func NewGenerateService(
	repo Repository,
	engine tts.Engine,
	stitcher audio.Stitcher,
	estimator *timing.Estimator,
	store storage.Storage,
	logger *slog.Logger,
	opts ...ServiceOption,
) *GenerateService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &GenerateService{
		repo:                   repo,
		engine:                 engine,
		stitcher:               stitcher,
		estimator:              estimator,
		store:                  store,
		logger:                 logger,
		maxConcurrentSentences: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRun creates and persists a run in IN_QUEUE state.
func (s *GenerateService) CreateRun(ctx context.Context, input GenerateInput) (*Run, error) {
	run := NewRun()
	run.SentenceCount = len(input.Sentences)

	s.logger.Info("creating generation run",
		slog.String("run_id", run.ID),
		slog.Int("sentences", len(input.Sentences)),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *GenerateService) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.repo.FindByID(ctx, id)
}

// ListRuns returns all runs.
func (s *GenerateService) ListRuns(ctx context.Context) ([]*Run, error) {
	return s.repo.List(ctx)
}

// DeleteRun removes a run and its local artifacts.
func (s *GenerateService) DeleteRun(ctx context.Context, id string) error {
	run, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range []string{run.AudioPath, run.DocumentPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("artifact cleanup failed",
				slog.String("run_id", id),
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.repo.Delete(ctx, id)
}

// Process executes the generation workflow for a previously created run.
// A failed sentence fails the whole run; partial audio is never produced.
func (s *GenerateService) Process(ctx context.Context, run *Run, input GenerateInput) (*GenerateOutput, error) {
	if err := run.Start(); err != nil {
		return nil, fmt.Errorf("start run %s: %w", run.ID, err)
	}
	if err := s.repo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	out, err := s.generate(ctx, run, input)
	if err != nil {
		s.logger.Error("generation run failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
		_ = run.Fail(err.Error())
		_ = s.repo.Save(ctx, run)
		return nil, err
	}

	_ = run.Complete()
	if err := s.repo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	s.logger.Info("generation run completed",
		slog.String("run_id", run.ID),
		slog.String("audio", out.AudioPath),
	)
	out.Status = run.GetStatus()
	return out, nil
}

// sentenceResult is one sentence's synthesized clip and preliminary entry.
// A sentence whose chunks were all dropped has no clip.
type sentenceResult struct {
	clip    string
	prelim  timing.Sentence
	hasClip bool
}

func (s *GenerateService) generate(ctx context.Context, run *Run, input GenerateInput) (*GenerateOutput, error) {
	if len(input.Sentences) == 0 {
		return nil, fmt.Errorf("run %s: script has no sentences", run.ID)
	}

	ws, err := NewWorkspace(s.store.TempDir(), run.ID)
	if err != nil {
		return nil, err
	}
	// Everything temporary lives in the workspace; release on every path.
	defer func() {
		if relErr := ws.Release(); relErr != nil {
			s.logger.Warn("workspace cleanup failed",
				slog.String("run_id", run.ID),
				slog.String("error", relErr.Error()),
			)
		}
	}()

	results := make([]sentenceResult, len(input.Sentences))
	errs := make([]error, len(input.Sentences))

	sem := make(chan struct{}, s.maxConcurrentSentences)
	var wg sync.WaitGroup
	for i, sentence := range input.Sentences {
		wg.Add(1)
		go func(idx int, sentence script.Sentence) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx], errs[idx] = s.processSentence(ctx, idx, sentence, input.Global, ws)
			if errs[idx] == nil {
				run.MarkSentenceDone()
			}
		}(i, sentence)
	}
	wg.Wait()

	// Results are collected by original index, never completion order. The
	// first failed sentence fails the run.
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
	}

	var clips []string
	var measured []timing.Sentence
	for _, res := range results {
		if res.hasClip {
			clips = append(clips, res.clip)
			measured = append(measured, res.prelim)
		}
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("run %s: no speakable sentences", run.ID)
	}

	audioName := input.AudioName
	if audioName == "" {
		audioName = DefaultAudioName
	}
	audioPath := filepath.Join(s.store.TempDir(), run.ID+"_"+audioName)

	if err := s.stitcher.Combine(ctx, clips, audioPath); err != nil {
		return nil, fmt.Errorf("combine sentence clips: %w", err)
	}

	// Combine wrote trimmed content back over the clip paths, so the
	// estimator measures the same durations that were concatenated.
	refined := s.estimator.Estimate(ctx, clips, measured)

	doc := s.buildDocument(input, audioName, results, refined)

	docPath := filepath.Join(s.store.TempDir(), run.ID+"_project.json")
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal timing document: %w", err)
	}
	if err := os.WriteFile(docPath, docJSON, 0600); err != nil {
		return nil, fmt.Errorf("write timing document: %w", err)
	}

	run.SetResult(audioPath, docPath, doc)

	out := &GenerateOutput{
		RunID:        run.ID,
		AudioPath:    audioPath,
		DocumentPath: docPath,
		Document:     doc,
	}

	if input.PushToS3 {
		if err := s.upload(ctx, run, out, audioName, docJSON); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// processSentence synthesizes one sentence into a single clip. Chunks of the
// sentence are launched concurrently and re-joined in chunk order.
func (s *GenerateService) processSentence(ctx context.Context, idx int, sentence script.Sentence, global prosody.Params, ws *Workspace) (sentenceResult, error) {
	resolved := script.ResolveProsody(sentence, global)
	prelim := timing.Preliminary(idx, resolved)

	chunks := script.SpeakableChunks(script.BuildChunks(resolved.Words))
	if len(chunks) == 0 {
		// Nothing to vocalize. The words still appear in the document
		// with zero timing.
		return sentenceResult{prelim: prelim}, nil
	}

	voice := resolved.Voice
	if voice == "" {
		voice = script.DefaultVoice
	}

	clip := ws.Path(fmt.Sprintf("sentence_%03d.mp3", idx))

	if len(chunks) == 1 {
		req := tts.Request{
			Text:       chunks[0].Text(),
			Voice:      voice,
			Pitch:      chunks[0].Params.Pitch,
			Rate:       chunks[0].Params.Rate,
			OutputPath: clip,
		}
		if err := s.engine.Synthesize(ctx, req); err != nil {
			return sentenceResult{}, err
		}
		return sentenceResult{clip: clip, prelim: prelim, hasClip: true}, nil
	}

	chunkPaths := make([]string, len(chunks))
	chunkErrs := make([]error, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		chunkPaths[i] = ws.Path(fmt.Sprintf("sentence_%03d_chunk_%02d.mp3", idx, i))
		wg.Add(1)
		go func(i int, chunk script.Chunk) {
			defer wg.Done()
			chunkErrs[i] = s.engine.Synthesize(ctx, tts.Request{
				Text:       chunk.Text(),
				Voice:      voice,
				Pitch:      chunk.Params.Pitch,
				Rate:       chunk.Params.Rate,
				OutputPath: chunkPaths[i],
			})
		}(i, chunk)
	}
	wg.Wait()

	for i, err := range chunkErrs {
		if err != nil {
			return sentenceResult{}, fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	// Re-join in chunk order regardless of completion order.
	if err := s.stitcher.Combine(ctx, chunkPaths, clip); err != nil {
		return sentenceResult{}, fmt.Errorf("combine chunks: %w", err)
	}

	// Chunk files have been folded into the sentence clip.
	for _, p := range chunkPaths {
		_ = os.Remove(p)
	}

	return sentenceResult{clip: clip, prelim: prelim, hasClip: true}, nil
}

// buildDocument assembles the final timing document in original sentence
// order, merging measured entries with the zero-timed entries of sentences
// that produced no audio.
func (s *GenerateService) buildDocument(input GenerateInput, audioName string, results []sentenceResult, refined []timing.Sentence) *timing.Document {
	sentences := make([]timing.Sentence, 0, len(results))
	ri := 0
	var cursor int64
	for _, res := range results {
		if res.hasClip {
			entry := refined[ri]
			ri++
			cursor = entry.EndMs
			sentences = append(sentences, entry)
			continue
		}
		// No audio: anchor a zero-duration entry at the current position.
		entry := res.prelim
		entry.StartMs = cursor
		entry.EndMs = cursor
		for i := range entry.Words {
			entry.Words[i].StartMs = cursor
			entry.Words[i].EndMs = cursor
		}
		sentences = append(sentences, entry)
	}

	title := input.Title
	if title == "" {
		title = "Generated Video"
	}
	meta := timing.Metadata{
		Title:        title,
		CaptionStyle: "default",
		AudioFile:    audioName,
	}
	if len(input.Sentences) > 0 {
		if bg := input.Sentences[0].BackgroundVideo; bg != "" {
			meta.BackgroundVideo = bg
		}
		if cs := input.Sentences[0].CaptionStyle; cs != "" {
			meta.CaptionStyle = cs
		}
	}

	return &timing.Document{Metadata: meta, Sentences: sentences}
}

// upload pushes the final artifacts to S3 and records their URLs.
func (s *GenerateService) upload(ctx context.Context, run *Run, out *GenerateOutput, audioName string, docJSON []byte) error {
	f, err := os.Open(out.AudioPath) // #nosec G304 - path built by this service
	if err != nil {
		return fmt.Errorf("open audio for upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	audioURL, err := s.store.UploadToS3(ctx, run.ID+"/"+audioName, f)
	if err != nil {
		return fmt.Errorf("upload audio: %w", err)
	}

	docURL, err := s.store.UploadToS3(ctx, run.ID+"/project.json", bytes.NewReader(docJSON))
	if err != nil {
		return fmt.Errorf("upload timing document: %w", err)
	}

	run.SetUploads(audioURL, docURL)
	out.AudioURL = audioURL
	out.DocumentURL = docURL
	return nil
}

// RenderVideo hands a completed run's timing document to the external
// compositor and returns the rendered video path.
func (s *GenerateService) RenderVideo(ctx context.Context, runID string) (string, error) {
	if s.compositor == nil {
		return "", compose.ErrNotConfigured
	}

	run, err := s.repo.FindByID(ctx, runID)
	if err != nil {
		return "", err
	}
	if run.Status != StatusCompleted || run.DocumentPath == "" {
		return "", fmt.Errorf("run %s has no timing document to render", runID)
	}

	outputPath := filepath.Join(s.store.TempDir(), runID+"_video.mp4")
	if err := s.compositor.Render(ctx, run.DocumentPath, outputPath); err != nil {
		return "", fmt.Errorf("render video: %w", err)
	}
	return outputPath, nil
}
