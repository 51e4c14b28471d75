package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/assets"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/job"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/script"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/storage"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/timing"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/tts"
)

// catStitcher concatenates input file contents into the output file.
type catStitcher struct{}

func (catStitcher) Combine(_ context.Context, inputs []string, output string) error {
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// fixedProber reports the same duration for every clip.
type fixedProber struct {
	seconds float64
}

func (p fixedProber) Duration(_ context.Context, _ string) (float64, error) {
	return p.seconds, nil
}

type testEnv struct {
	handlers *Handlers
	service  *job.GenerateService
	store    *storage.LocalStorage
	engine   *tts.MockEngine
}

func newTestEnv(t *testing.T, opts ...HandlerOption) *testEnv {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	engine := &tts.MockEngine{}
	svc := job.NewGenerateService(
		job.NewMemoryRepository(),
		engine,
		catStitcher{},
		timing.NewEstimator(fixedProber{seconds: 2.0}, logger),
		store,
		logger,
	)

	// Disable async processing so tests drive runs deterministically
	opts = append([]HandlerOption{WithAsyncProcessing(false)}, opts...)
	handlers := NewHandlers(svc, store, logger, opts...)
	return &testEnv{handlers: handlers, service: svc, store: store, engine: engine}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewRouter(e.handlers, logger, DefaultConfig()).ServeHTTP(rec, req)
	return rec
}

// completedRun creates and synchronously processes a run.
func (e *testEnv) completedRun(t *testing.T, text string) *job.Run {
	t.Helper()

	input := job.GenerateInput{Sentences: script.Parse(text, "")}
	run, err := e.service.CreateRun(context.Background(), input)
	require.NoError(t, err)
	_, err = e.service.Process(context.Background(), run, input)
	require.NoError(t, err)
	return run
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateRun(t *testing.T) {
	t.Run("valid request is accepted", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.request(t, http.MethodPost, "/runs", CreateRunRequest{
			Script: "Hello world. Good bye.",
			Title:  "My Rant",
		})

		assert.Equal(t, http.StatusAccepted, rec.Code)
		var resp CreateRunResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, string(job.StatusInQueue), resp.Status)
	})

	t.Run("invalid JSON returns 400", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		env.handlers.CreateRun(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
	})

	t.Run("missing script fails validation", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.request(t, http.MethodPost, "/runs", CreateRunRequest{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	})

	t.Run("whitespace-only script returns 400", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.request(t, http.MethodPost, "/runs", CreateRunRequest{Script: "   "})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "EMPTY_SCRIPT", decodeError(t, rec).Code)
	})
}

func TestGetRun(t *testing.T) {
	t.Run("unknown run returns 404", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.request(t, http.MethodGet, "/runs/run-missing", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "RUN_NOT_FOUND", decodeError(t, rec).Code)
	})

	t.Run("completed run includes document", func(t *testing.T) {
		env := newTestEnv(t)
		run := env.completedRun(t, "Hello world. Good bye.")

		rec := env.request(t, http.MethodGet, "/runs/"+run.ID, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp RunResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(job.StatusCompleted), resp.Status)
		assert.Equal(t, 2, resp.SentenceCount)
		assert.Equal(t, 2, resp.Completed)
		require.NotNil(t, resp.Document)
		assert.Len(t, resp.Document.Sentences, 2)
	})
}

func TestListRuns(t *testing.T) {
	env := newTestEnv(t)
	env.completedRun(t, "Hello world.")
	env.completedRun(t, "Good bye.")

	rec := env.request(t, http.MethodGet, "/runs", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestDeleteRun(t *testing.T) {
	env := newTestEnv(t)
	run := env.completedRun(t, "Hello world.")

	rec := env.request(t, http.MethodDelete, "/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.request(t, http.MethodGet, "/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAudio(t *testing.T) {
	t.Run("streams combined audio", func(t *testing.T) {
		env := newTestEnv(t)
		run := env.completedRun(t, "Hello world. Good bye.")

		rec := env.request(t, http.MethodGet, "/runs/"+run.ID+"/audio", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, "ID3mockaudioID3mockaudio", rec.Body.String())
	})

	t.Run("queued run returns 409", func(t *testing.T) {
		env := newTestEnv(t)

		input := job.GenerateInput{Sentences: script.Parse("Hello.", "")}
		run, err := env.service.CreateRun(context.Background(), input)
		require.NoError(t, err)

		rec := env.request(t, http.MethodGet, "/runs/"+run.ID+"/audio", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "RUN_NOT_COMPLETED", decodeError(t, rec).Code)
	})
}

func TestExportTimings(t *testing.T) {
	env := newTestEnv(t)
	run := env.completedRun(t, "Hello world.")

	t.Run("defaults to JSON", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/runs/"+run.ID+"/exports", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var sentences []timing.Sentence
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sentences))
		assert.Len(t, sentences, 1)
	})

	t.Run("srt format", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/runs/"+run.ID+"/exports?format=srt", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "00:00:00,000 --> 00:00:02,000")
		assert.Contains(t, rec.Body.String(), "Hello world.")
	})

	t.Run("unknown format returns 400", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/runs/"+run.ID+"/exports?format=xml", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UNKNOWN_FORMAT", decodeError(t, rec).Code)
	})
}

func TestRenderVideoNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	run := env.completedRun(t, "Hello world.")

	rec := env.request(t, http.MethodPost, "/runs/"+run.ID+"/render", nil)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "COMPOSITOR_NOT_CONFIGURED", decodeError(t, rec).Code)
}

func TestListAssets(t *testing.T) {
	t.Run("not configured returns 501", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.request(t, http.MethodGet, "/assets/memes", nil)

		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("lists library contents", func(t *testing.T) {
		dir := t.TempDir()
		memes, err := assets.NewImageLibrary(filepath.Join(dir, "memes"))
		require.NoError(t, err)
		sounds, err := assets.NewSoundLibrary(filepath.Join(dir, "sounds"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(memes.Dir(), "troll.png"), []byte("x"), 0600))

		env := newTestEnv(t, WithAssetLibraries(memes, sounds))

		rec := env.request(t, http.MethodGet, "/assets/memes", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		var resp AssetListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{"troll.png"}, resp.Files)

		rec = env.request(t, http.MethodGet, "/assets/sounds", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.Files)
	})
}
