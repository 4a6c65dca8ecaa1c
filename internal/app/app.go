// Package app wires configuration, stores, the transcription pipeline and the
// dispatcher into one container shared by the CLI commands and the HTTP server.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"subgen/internal/config"
	"subgen/internal/dispatch"
	"subgen/internal/executor"
	"subgen/internal/media"
	"subgen/internal/services"
	"subgen/internal/store"
	"subgen/internal/store/primary"
	"subgen/internal/store/sqlite"
	"subgen/internal/transcribe"
)

type App struct {
	Config *config.Config

	Store       store.Store
	Transcoder  media.Transcoder
	Transcriber transcribe.Transcriber
	Executor    *executor.Executor
	Dispatcher  dispatch.Dispatcher

	TaskService     *services.TaskService
	SubtitleService *services.SubtitleService
}

// Options tweak construction for specific entrypoints.
type Options struct {
	// WithoutDispatcher skips dispatcher startup. The worker process uses
	// this: it consumes from asynq itself and must not spin up a second
	// local pool.
	WithoutDispatcher bool
}

func NewApp(cfg *config.Config) (*App, error) {
	return NewAppWithOptions(cfg, Options{})
}

func NewAppWithOptions(cfg *config.Config, opts Options) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initPipeline(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initDispatcher(opts); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	app.initServices()

	log.Debug("Application initialization complete")
	return app, nil
}

// initStore selects the backend from the DSN: postgres URLs use the pgx
// store, everything else is treated as a SQLite path.
func (a *App) initStore(ctx context.Context) error {
	dsn := a.Config.Database.DSN
	var (
		s   store.Store
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err = primary.New(ctx, dsn)
	} else {
		s, err = sqlite.Open(dsn)
	}
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	a.Store = s
	return nil
}

func (a *App) initPipeline() error {
	cfg := a.Config
	a.Transcoder = media.NewFFmpegTranscoder(cfg.FFmpeg.Binary)

	if cfg.OpenAI.APIKey != "" {
		t, err := transcribe.NewOpenAITranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		if err != nil {
			return fmt.Errorf("init openai transcriber: %w", err)
		}
		a.Transcriber = t
		log.Debug("Using OpenAI transcription")
	} else {
		a.Transcriber = transcribe.NewWhisperCLITranscriber(
			cfg.Whisper.Binary, cfg.Whisper.ModelDir, cfg.Whisper.Model, cfg.Whisper.ModelCacheSize)
		log.WithField("binary", cfg.Whisper.Binary).Debug("Using local whisper transcription")
	}

	exec, err := executor.New(executor.Deps{
		Tasks:       a.Store,
		Subtitles:   a.Store,
		Transcoder:  a.Transcoder,
		Transcriber: a.Transcriber,
		MaxCueChars: cfg.Subtitle.MaxCueChars,
	})
	if err != nil {
		return fmt.Errorf("init executor: %w", err)
	}
	a.Executor = exec
	return nil
}

func (a *App) initDispatcher(opts Options) error {
	if opts.WithoutDispatcher {
		return nil
	}
	switch a.Config.Dispatcher.Mode {
	case "asynq":
		a.Dispatcher = dispatch.NewAsynqDispatcher(asynq.RedisClientOpt{
			Addr:     a.Config.Redis.Address,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		}, a.Executor)
	default:
		a.Dispatcher = dispatch.NewPool(a.Executor, a.Config.Dispatcher.Workers)
	}
	return nil
}

func (a *App) initServices() {
	a.TaskService = services.NewTaskService(services.TaskServiceDeps{
		Tasks:        a.Store,
		Subtitles:    a.Store,
		Dispatcher:   a.Dispatcher,
		MaxFileSize:  a.Config.Upload.MaxFileSize,
		DefaultModel: a.Config.Whisper.Model,
	})
	a.SubtitleService = services.NewSubtitleService(a.Store, a.Store)
}

func (a *App) cleanupPartialInit() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			log.WithError(err).Warn("Closing store during cleanup")
		}
	}
}

// Close stops the dispatcher (draining running work) and closes the store.
func (a *App) Close() error {
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
