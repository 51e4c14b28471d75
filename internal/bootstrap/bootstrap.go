// Package bootstrap provides dependency initialization for the narration API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/assets"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/audio"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/compose"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/config"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/job"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/storage"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/timing"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/tts"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	GenerateService *job.GenerateService
	Store           storage.Storage
	Memes           *assets.Library
	Sounds          *assets.Library
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the synthesis engine
	engine, err := tts.NewEdgeEngine(cfg.TTSCommand)
	if err != nil {
		return nil, fmt.Errorf("create synthesis engine: %w", err)
	}

	// Initialize the ffmpeg stitcher and the duration prober
	stitcher := audio.NewFFmpegStitcher("", audio.WithLogger(logger))
	estimator := timing.NewEstimator(audio.NewFFprobeProber(""), logger)

	// Initialize run repository
	repo := job.NewMemoryRepository()

	opts := []job.ServiceOption{
		job.WithMaxConcurrentSentences(cfg.MaxConcurrentSentences),
	}
	if cfg.CompositorEnabled() {
		compositor, err := compose.NewExecCompositor(cfg.CompositorCommand)
		if err != nil {
			return nil, fmt.Errorf("create compositor: %w", err)
		}
		opts = append(opts, job.WithCompositor(compositor))
		logger.Info("compositor configured",
			slog.String("command", cfg.CompositorCommand),
		)
	}

	svc := job.NewGenerateService(
		repo,
		engine,
		stitcher,
		estimator,
		store,
		logger,
		opts...,
	)

	// Initialize asset libraries
	memes, err := assets.NewImageLibrary(cfg.MemeDir)
	if err != nil {
		return nil, fmt.Errorf("create image library: %w", err)
	}
	sounds, err := assets.NewSoundLibrary(cfg.SoundDir)
	if err != nil {
		return nil, fmt.Errorf("create sound library: %w", err)
	}

	return &Dependencies{
		GenerateService: svc,
		Store:           store,
		Memes:           memes,
		Sounds:          sounds,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
