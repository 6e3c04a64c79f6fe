package ports

import (
	"context"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// BatchIngestor is the inbound contract for batch upload orchestration.
type BatchIngestor interface {
	Submit(ctx context.Context, uploads []domain.Upload) (*domain.Batch, error)
}

// BatchProcessor is the inbound contract for asynchronous batch analysis.
type BatchProcessor interface {
	ProcessByID(ctx context.Context, batchID string) error
}

// BatchReader is the inbound read model for batch state and results.
type BatchReader interface {
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	ListBatchDocuments(ctx context.Context, batchID string) ([]domain.BatchDocument, error)
}
