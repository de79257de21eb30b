package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/okolin/scribe/internal/config"
	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/usecase"
	"github.com/okolin/scribe/internal/infrastructure/llm/ollama"
	"github.com/okolin/scribe/internal/infrastructure/media/diffusion"
	"github.com/okolin/scribe/internal/infrastructure/media/flagart"
	"github.com/okolin/scribe/internal/infrastructure/media/websearch"
	"github.com/okolin/scribe/internal/infrastructure/queue/nats"
	"github.com/okolin/scribe/internal/infrastructure/repository/postgres"
	"github.com/okolin/scribe/internal/infrastructure/resilience"
	"github.com/okolin/scribe/internal/infrastructure/storage/localfs"
	"github.com/okolin/scribe/internal/infrastructure/tabular"
)

type App struct {
	Config config.Config

	Queue      *nats.Queue
	Artifacts  *postgres.ArtifactRepository
	Runs       *postgres.RunRepository
	Pipeline   *usecase.Pipeline
	Dispatcher *usecase.Dispatcher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	artifacts := postgres.NewArtifactRepository(db)
	if err := artifacts.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure artifact schema: %w", err)
	}
	runs := postgres.NewRunRepository(db)
	if err := runs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure run schema: %w", err)
	}

	workspace, err := localfs.New(cfg.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init run queue: %w", err)
	}

	drafter := ollama.NewResilientDrafter(
		ollama.NewDrafter(ollama.New(cfg.OllamaURL, cfg.OllamaGenModel)),
		executor,
	)

	catalog, err := flagart.LoadCatalog(cfg.FlagCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load flag catalog: %w", err)
	}
	media := usecase.NewMediaCoordinator(
		flagart.NewSynthesizer(catalog),
		websearch.New(cfg.ImageSearchURL),
		diffusion.New(cfg.ImageGenURL, cfg.ImageGenAPIKey),
		tabular.New(filepath.Join(workspace.BasePath(), "tables")),
		workspace,
		cfg.ImageSize,
	)

	registries := usecase.NewRegistryManager()
	pipeline := usecase.NewPipeline(
		drafter,
		media,
		workspace,
		artifacts,
		runs,
		registries,
		usecase.NewReviewer(),
		domain.PipelinePolicy{
			MaxRevisions:   cfg.MaxRevisions,
			DraftTimeout:   time.Duration(cfg.DraftTimeoutSeconds) * time.Second,
			MediaTimeout:   time.Duration(cfg.MediaTimeoutSeconds) * time.Second,
			PersistTimeout: time.Duration(cfg.PersistTimeoutSecs) * time.Second,
		},
	)

	dispatcher := usecase.NewDispatcher(
		usecase.NewClassifier(),
		usecase.NewExtractor(cfg.DefaultTargetWords),
		registries,
		pipeline,
		runs,
		queue,
	)

	return &App{
		Config:     cfg,
		Queue:      queue,
		Artifacts:  artifacts,
		Runs:       runs,
		Pipeline:   pipeline,
		Dispatcher: dispatcher,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
