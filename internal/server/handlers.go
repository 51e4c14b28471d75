package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/assets"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/compose"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/job"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/prosody"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/script"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/storage"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/timing"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.GenerateService
	store              storage.Storage
	validator          *validator.Validate
	logger             *slog.Logger
	defaultVoice       string
	memes              *assets.Library
	sounds             *assets.Library
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateRun only creates the run and returns immediately
// without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithDefaultVoice sets the voice used when a request names none.
func WithDefaultVoice(voice string) HandlerOption {
	return func(h *Handlers) {
		if voice != "" {
			h.defaultVoice = voice
		}
	}
}

// WithAssetLibraries wires the image and sound libraries into the listing
// endpoints.
func WithAssetLibraries(memes, sounds *assets.Library) HandlerOption {
	return func(h *Handlers) {
		h.memes = memes
		h.sounds = sounds
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.GenerateService, store storage.Storage, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		store:              store,
		validator:          validator.New(),
		logger:             logger,
		defaultVoice:       script.DefaultVoice,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateRun handles POST /runs requests.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	voice := req.Voice
	if voice == "" {
		voice = h.defaultVoice
	}
	sentences := script.Parse(req.Script, voice)
	if len(sentences) == 0 {
		writeError(w, http.StatusBadRequest, "script has no sentences", "EMPTY_SCRIPT")
		return
	}

	input := job.GenerateInput{
		Sentences: sentences,
		Global: prosody.Params{
			Pitch: prosody.ClampPitch(req.Pitch),
			Rate:  prosody.ClampRate(req.Rate),
		},
		Title:     req.Title,
		AudioName: req.AudioName,
		PushToS3:  req.PushToS3,
	}

	// Create run first (synchronously)
	run, err := h.service.CreateRun(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create run",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create run", "RUN_CREATION_FAILED")
		return
	}

	// Start processing in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go func(ctx context.Context, run *job.Run, inp job.GenerateInput) {
			if _, processErr := h.service.Process(ctx, run, inp); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("run_id", run.ID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), run, input)
	}

	h.logger.Info("run created",
		slog.String("run_id", run.ID),
		slog.Int("sentences", len(sentences)),
	)

	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		ID:     run.ID,
		Status: string(run.GetStatus()),
	})
}

// GetRun handles GET /runs/{id} requests.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run ID is required", "MISSING_RUN_ID")
		return
	}

	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, job.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get run",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run", "RUN_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, runResponse(run))
}

// ListRuns handles GET /runs requests.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns(r.Context())
	if err != nil {
		h.logger.Error("failed to list runs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs", "RUN_LIST_FAILED")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, runResponse(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteRun handles DELETE /runs/{id} requests.
func (h *Handlers) DeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	if err := h.service.DeleteRun(r.Context(), runID); err != nil {
		if errors.Is(err, job.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete run",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete run", "RUN_DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAudio handles GET /runs/{id}/audio requests, streaming the combined
// narration audio of a completed run.
func (h *Handlers) GetAudio(w http.ResponseWriter, r *http.Request) {
	run, ok := h.completedRun(w, r)
	if !ok {
		return
	}
	if run.AudioPath == "" {
		writeError(w, http.StatusNotFound, "run has no audio", "AUDIO_NOT_FOUND")
		return
	}

	f, err := h.store.LoadTemp(r.Context(), run.AudioPath)
	if err != nil {
		h.logger.Error("failed to open audio",
			slog.String("run_id", run.ID),
			slog.String("path", run.AudioPath),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read audio", "AUDIO_READ_FAILED")
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("audio stream interrupted",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ExportTimings handles GET /runs/{id}/exports?format= requests.
func (h *Handlers) ExportTimings(w http.ResponseWriter, r *http.Request) {
	run, ok := h.completedRun(w, r)
	if !ok {
		return
	}
	if run.Document == nil {
		writeError(w, http.StatusNotFound, "run has no timing document", "DOCUMENT_NOT_FOUND")
		return
	}

	format := timing.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = timing.FormatJSON
	}
	if !format.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown export format", "UNKNOWN_FORMAT")
		return
	}

	out, err := timing.Export(run.Document.Sentences, format)
	if err != nil {
		h.logger.Error("export failed",
			slog.String("run_id", run.ID),
			slog.String("format", string(format)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "export failed", "EXPORT_FAILED")
		return
	}

	w.Header().Set("Content-Type", exportContentType(format))
	_, _ = io.WriteString(w, out)
}

// RenderVideo handles POST /runs/{id}/render requests.
func (h *Handlers) RenderVideo(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	videoPath, err := h.service.RenderVideo(r.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, compose.ErrNotConfigured):
			writeError(w, http.StatusNotImplemented, "no compositor configured", "COMPOSITOR_NOT_CONFIGURED")
		case errors.Is(err, job.ErrRunNotFound):
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
		default:
			h.logger.Error("render failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "render failed", "RENDER_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusOK, RenderResponse{VideoPath: videoPath})
}

// ListMemes handles GET /assets/memes requests.
func (h *Handlers) ListMemes(w http.ResponseWriter, r *http.Request) {
	h.listAssets(w, h.memes)
}

// ListSounds handles GET /assets/sounds requests.
func (h *Handlers) ListSounds(w http.ResponseWriter, r *http.Request) {
	h.listAssets(w, h.sounds)
}

func (h *Handlers) listAssets(w http.ResponseWriter, lib *assets.Library) {
	if lib == nil {
		writeError(w, http.StatusNotImplemented, "no asset library configured", "ASSETS_NOT_CONFIGURED")
		return
	}
	if err := lib.Refresh(); err != nil {
		h.logger.Error("asset refresh failed",
			slog.String("dir", lib.Dir()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list assets", "ASSET_LIST_FAILED")
		return
	}
	files := lib.List()
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, AssetListResponse{Files: files})
}

// completedRun fetches the run and requires it to be COMPLETED, writing the
// appropriate error response otherwise.
func (h *Handlers) completedRun(w http.ResponseWriter, r *http.Request) (*job.Run, bool) {
	runID := r.PathValue("id")

	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, job.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get run",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run", "RUN_FETCH_FAILED")
		return nil, false
	}

	if run.Status != job.StatusCompleted {
		writeError(w, http.StatusConflict, "run is not completed", "RUN_NOT_COMPLETED")
		return nil, false
	}
	return run, true
}

func runResponse(run *job.Run) RunResponse {
	resp := RunResponse{
		ID:            run.ID,
		Status:        string(run.Status),
		SentenceCount: run.SentenceCount,
		Completed:     run.Completed,
		Error:         run.Error,
	}
	if run.Status == job.StatusCompleted {
		resp.AudioURL = run.AudioURL
		resp.DocumentURL = run.DocumentURL
		resp.Document = run.Document
	}
	return resp
}

func exportContentType(f timing.Format) string {
	switch f {
	case timing.FormatJSON:
		return "application/json"
	case timing.FormatCSV:
		return "text/csv"
	case timing.FormatVTT:
		return "text/vtt"
	default:
		return "text/plain"
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
