package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/corporate-agent/internal/bootstrap"
	"github.com/kirillkom/corporate-agent/internal/config"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/observability/logging"
	"github.com/kirillkom/corporate-agent/internal/observability/metrics"
)

// outcomeRecorder counts per-document analysis outcomes on the worker
// registry.
type outcomeRecorder struct {
	metrics *metrics.WorkerMetrics
}

func (r outcomeRecorder) ObserveDocumentOutcome(outcome domain.Outcome) {
	r.metrics.ObserveDocumentOutcome("worker", string(outcome))
}

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")

	app, err := bootstrap.New(ctx, cfg, logger, outcomeRecorder{metrics: workerMetrics})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	batchTimeout := time.Duration(cfg.BatchTimeoutSeconds) * time.Second

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeBatchSubmitted(ctx, func(handlerCtx context.Context, event domain.BatchSubmittedEvent) error {
		batchID := event.BatchID
		if !event.SubmittedAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(event.SubmittedAt))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, batchTimeout)
		defer cancel()

		workerMetrics.StartBatch()
		start := time.Now()
		batchLogger := logging.WithBatch(logger, batchID)
		batchLogger.Info("batch_processing_started")

		processErr := app.ProcessUC.ProcessByID(processCtx, batchID)
		workerMetrics.FinishBatch("worker", time.Since(start), processErr)
		if processErr != nil {
			batchLogger.Error("batch_processing_failed", "error", processErr)
			return processErr
		}
		batchLogger.Info("batch_processing_finished", "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
