package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/corporate-agent/internal/config"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
	"github.com/kirillkom/corporate-agent/internal/core/usecase"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/checklist/yamlfile"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/docx"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/parser/pdftext"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/parser/plaintext"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/queue/nats"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/report/excel"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Repo     ports.BatchRepository
	Storage  ports.ObjectStorage
	Exporter ports.ReportExporter

	SubmitUC  ports.BatchIngestor
	ProcessUC ports.BatchProcessor

	closeFn func()
}

// New wires every service. observer may be nil; the worker passes its
// metrics so per-document outcomes are counted.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer ports.AnalysisObserver) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewBatchRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	// An unreadable checklist makes every batch unanalyzable, so it is a
	// startup failure rather than a per-batch degradation.
	mapping, err := yamlfile.New(cfg.ChecklistPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load checklist: %w", err)
	}

	executorCfg := resilience.DefaultConfig()
	executorCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(executorCfg, logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		RequestTimeout:    time.Duration(cfg.OllamaTimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.OllamaRequestsPerSec,
		Executor:          executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	completer := ollama.NewCompleter(ollamaClient)
	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	analyzer := usecase.NewDocumentAnalyzer(embedder, index, completer, usecase.AnalyzerConfig{
		ClassifyTopK:         cfg.ClassifyTopK,
		ReviewTopK:           cfg.ReviewTopK,
		ComplianceTopK:       cfg.ComplianceTopK,
		ClassifySnippetChars: cfg.ClassifySnippetChars,
		ReviewSnippetChars:   cfg.ReviewSnippetChars,
		CallTimeout:          time.Duration(cfg.LLMCallTimeoutSeconds) * time.Second,
	})
	locator := usecase.NewSemanticLocator(embedder, cfg.LocateMinSimilarity)
	checklistEngine := usecase.NewChecklistEngine(mapping, embedder, cfg.ChecklistMatchThreshold)

	parsers := []ports.DocumentParser{
		docx.NewParser(),
		pdftext.NewParser(),
		plaintext.NewParser(),
	}
	annotators := map[domain.DocumentFormat]ports.DocumentAnnotator{
		domain.FormatDOCX: docx.NewAnnotator(),
		domain.FormatPDF:  plaintext.NewAnnotator(),
		domain.FormatText: plaintext.NewAnnotator(),
	}

	reviewUC := usecase.NewReviewBatchUseCase(parsers, annotators, analyzer, locator, checklistEngine, observer, logger)
	submitUC := usecase.NewSubmitBatchUseCase(repo, storage, queue)
	processUC := usecase.NewProcessBatchUseCase(repo, storage, reviewUC)

	return &App{
		Config:   cfg,
		Queue:    queue,
		Repo:     repo,
		Storage:  storage,
		Exporter: excel.NewExporter(),

		SubmitUC:  submitUC,
		ProcessUC: processUC,

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
