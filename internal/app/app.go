package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"PaperRadar/internal/collector"
	"PaperRadar/internal/config"
	"PaperRadar/internal/infrastructure/llm"
	"PaperRadar/internal/infrastructure/sources"
	"PaperRadar/internal/infrastructure/storage"
	"PaperRadar/internal/logging"
	"PaperRadar/internal/search"
	"PaperRadar/internal/server"
	"PaperRadar/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	db        *sql.DB
	scheduler *usecase.Scheduler
	server    *server.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	papers := storage.NewPaperStore(db)
	enrichments := storage.NewEnrichmentStore(db)
	statusStore := storage.NewStatusStore(db)

	registry := collector.NewRegistry()
	registry.Register(sources.NewArxivCollector(nil, logging.Component(baseLogger, "collector.arxiv")))
	registry.Register(sources.NewSSRNCollector(nil, logging.Component(baseLogger, "collector.ssrn")))

	chat := llm.NewClient(cfg.OpenAI)
	embedder := llm.NewEmbeddingClient(cfg.OpenAI)

	collection := usecase.NewCollection(usecase.CollectionDeps{
		Registry:   registry,
		Sources:    cfg.Sources,
		Repository: papers,
		Logger:     logging.Component(baseLogger, "collection"),
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Papers:      papers,
		Enrichments: enrichments,
		Summarizer:  chat,
		Embedder:    embedder,
		PaperDelay:  cfg.Pipeline.PaperDelay,
		Logger:      logging.Component(baseLogger, "pipeline"),
	})

	scheduler := usecase.NewScheduler(usecase.SchedulerDeps{
		Collection: collection,
		Pipeline:   pipeline,
		Status:     statusStore,
		Config:     cfg.Scheduler,
		Logger:     logging.Component(baseLogger, "scheduler"),
	}, cfg.Pipeline.BatchLimit)

	engine := search.NewEngine(papers, enrichments, cfg.OpenAI.Dimensions)

	research := usecase.NewResearch(usecase.ResearchDeps{
		Searcher: engine,
		Embedder: embedder,
		Briefs:   chat,
		Queries:  enrichments,
		Logger:   logging.Component(baseLogger, "research"),
	})

	srv := server.New(server.Deps{
		Scheduler:   scheduler,
		Research:    research,
		Papers:      papers,
		Enrichments: enrichments,
		Logger:      logging.Component(baseLogger, "http"),
	})

	return &Application{cfg: cfg, db: db, scheduler: scheduler, server: srv}, nil
}

// Run starts the scheduler and serves the HTTP API until the listener
// stops.
func (a *Application) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)
	return a.server.Start(a.cfg.Server.Addr)
}

// Shutdown stops the scheduler, drains the HTTP server, and closes the
// database.
func (a *Application) Shutdown(ctx context.Context) error {
	a.scheduler.Stop(ctx)

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}
