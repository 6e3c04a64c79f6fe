package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

// SubmitBatchUseCase accepts an uploaded batch, persists the raw documents
// and batch record, and publishes the event that triggers analysis.
type SubmitBatchUseCase struct {
	repo    ports.BatchRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitBatchUseCase(
	repo ports.BatchRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitBatchUseCase {
	return &SubmitBatchUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *SubmitBatchUseCase) Submit(ctx context.Context, uploads []domain.Upload) (*domain.Batch, error) {
	if len(uploads) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("no files in request"))
	}

	// Filenames key both the batch_documents rows and the storage layout,
	// so a collision (before or after sanitization) is a client error.
	seen := make(map[string]struct{}, len(uploads))
	for _, upload := range uploads {
		name := sanitizeFilename(upload.Filename)
		if _, dup := seen[name]; dup {
			return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch",
				fmt.Errorf("duplicate filename %q in batch", upload.Filename))
		}
		seen[name] = struct{}{}
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	docs := make([]domain.BatchDocument, 0, len(uploads))
	for i, upload := range uploads {
		storageKey := fmt.Sprintf("%s/source/%s", id, sanitizeFilename(upload.Filename))
		if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(upload.Content)); err != nil {
			return nil, fmt.Errorf("save upload to object storage: %w", err)
		}
		docs = append(docs, domain.BatchDocument{
			BatchID:     id,
			Filename:    upload.Filename,
			MimeType:    upload.MimeType,
			StoragePath: storageKey,
			Position:    i,
		})
	}

	batch := &domain.Batch{
		ID:        id,
		Status:    domain.BatchStatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.CreateBatch(ctx, batch, docs); err != nil {
		return nil, fmt.Errorf("create batch record: %w", err)
	}

	event := domain.BatchSubmittedEvent{BatchID: batch.ID, SubmittedAt: now}
	if err := uc.queue.PublishBatchSubmitted(ctx, event); err != nil {
		return nil, fmt.Errorf("publish batch event: %w", err)
	}

	return batch, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
