package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

// ProcessBatchUseCase is the worker-side entrypoint: it loads a submitted
// batch, runs the review pipeline over it and persists the combined report
// and annotated copies. Analysis degradation is absorbed inside the review
// use case; only storage and database failures mark the batch failed.
type ProcessBatchUseCase struct {
	repo    ports.BatchRepository
	storage ports.ObjectStorage
	review  *ReviewBatchUseCase
}

func NewProcessBatchUseCase(
	repo ports.BatchRepository,
	storage ports.ObjectStorage,
	review *ReviewBatchUseCase,
) *ProcessBatchUseCase {
	return &ProcessBatchUseCase{
		repo:    repo,
		storage: storage,
		review:  review,
	}
}

func (uc *ProcessBatchUseCase) ProcessByID(ctx context.Context, batchID string) error {
	batch, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	// Redelivered events and concurrent workers must not reprocess.
	if batch.Status == domain.BatchStatusProcessing || batch.Status == domain.BatchStatusReady {
		return nil
	}

	if err := uc.repo.UpdateStatus(ctx, batchID, domain.BatchStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, batchID); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, batchID, domain.BatchStatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, batchID, domain.BatchStatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessBatchUseCase) processPipeline(ctx context.Context, batchID string) error {
	docs, err := uc.repo.ListBatchDocuments(ctx, batchID)
	if err != nil {
		return fmt.Errorf("list batch documents: %w", err)
	}
	if len(docs) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "process batch", fmt.Errorf("batch has no documents"))
	}

	uploads := make([]domain.Upload, 0, len(docs))
	for _, doc := range docs {
		content, err := uc.readObject(ctx, doc.StoragePath)
		if err != nil {
			return fmt.Errorf("read source document %s: %w", doc.Filename, err)
		}
		uploads = append(uploads, domain.Upload{
			Filename: doc.Filename,
			MimeType: doc.MimeType,
			Content:  content,
		})
	}

	annotated, report, err := uc.review.Run(ctx, uploads)
	if err != nil {
		return fmt.Errorf("run review pipeline: %w", err)
	}

	for i := range annotated {
		key := fmt.Sprintf("%s/annotated/%s", batchID, sanitizeFilename(annotated[i].Filename))
		if err := uc.storage.Save(ctx, key, bytes.NewReader(annotated[i].Content)); err != nil {
			return fmt.Errorf("save annotated document %s: %w", annotated[i].Filename, err)
		}
		docs[i].AnnotatedPath = key
		if i < len(report.Reviews) {
			docs[i].DetectedType = report.Reviews[i].Document
		}
	}

	if err := uc.repo.SaveReport(ctx, batchID, report, docs); err != nil {
		return fmt.Errorf("save combined report: %w", err)
	}
	return nil
}

func (uc *ProcessBatchUseCase) readObject(ctx context.Context, key string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
