package ports

import (
	"context"
	"io"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// BatchRepository persists batch state and results.
type BatchRepository interface {
	CreateBatch(ctx context.Context, batch *domain.Batch, docs []domain.BatchDocument) error
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	ListBatchDocuments(ctx context.Context, batchID string) ([]domain.BatchDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error
	SaveReport(ctx context.Context, id string, report *domain.CombinedReport, docs []domain.BatchDocument) error
}

// ObjectStorage stores source and annotated documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes batch-submitted events.
type MessageQueue interface {
	PublishBatchSubmitted(ctx context.Context, event domain.BatchSubmittedEvent) error
	SubscribeBatchSubmitted(ctx context.Context, handler func(context.Context, domain.BatchSubmittedEvent) error) error
}

// DocumentParser turns raw upload bytes into an ordered paragraph sequence.
type DocumentParser interface {
	Supports(filename string) bool
	Parse(filename string, content []byte) (*domain.ParsedDocument, error)
}

// DocumentAnnotator renders an annotated copy of a parsed document.
type DocumentAnnotator interface {
	Annotate(doc *domain.ParsedDocument, annotation domain.Annotation) ([]byte, error)
}

// Embedder builds vectors for paragraphs and query text. Deterministic for
// identical input within a session.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Completer runs one deterministic completion. The response carries no
// format guarantee; callers parse defensively.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// SimilarityIndex queries the pre-built reference knowledge base.
type SimilarityIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]domain.Passage, error)
}

// ReportExporter renders a combined report for download.
type ReportExporter interface {
	Export(report *domain.CombinedReport) ([]byte, error)
}

// ChecklistSource loads the immutable process-to-required-documents mapping.
type ChecklistSource interface {
	Load() (domain.ChecklistMapping, error)
}

// AnalysisObserver receives the overall analysis outcome of each document
// as the batch pipeline finishes it.
type AnalysisObserver interface {
	ObserveDocumentOutcome(outcome domain.Outcome)
}
