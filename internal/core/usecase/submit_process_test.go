package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type memRepo struct {
	batches  map[string]*domain.Batch
	docs     map[string][]domain.BatchDocument
	reports  map[string]*domain.CombinedReport
	statuses []domain.BatchStatus
}

func newMemRepo() *memRepo {
	return &memRepo{
		batches: map[string]*domain.Batch{},
		docs:    map[string][]domain.BatchDocument{},
		reports: map[string]*domain.CombinedReport{},
	}
}

func (r *memRepo) CreateBatch(_ context.Context, batch *domain.Batch, docs []domain.BatchDocument) error {
	copied := *batch
	r.batches[batch.ID] = &copied
	r.docs[batch.ID] = append([]domain.BatchDocument(nil), docs...)
	return nil
}

func (r *memRepo) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	batch, ok := r.batches[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", errors.New(id))
	}
	copied := *batch
	return &copied, nil
}

func (r *memRepo) ListBatchDocuments(_ context.Context, batchID string) ([]domain.BatchDocument, error) {
	return append([]domain.BatchDocument(nil), r.docs[batchID]...), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, status domain.BatchStatus, errMessage string) error {
	batch, ok := r.batches[id]
	if !ok {
		return domain.WrapError(domain.ErrBatchNotFound, "update status", errors.New(id))
	}
	batch.Status = status
	batch.Error = errMessage
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memRepo) SaveReport(_ context.Context, id string, report *domain.CombinedReport, docs []domain.BatchDocument) error {
	r.reports[id] = report
	r.docs[id] = append([]domain.BatchDocument(nil), docs...)
	return nil
}

type memStorage struct {
	objects map[string][]byte
	openErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = content
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	content, ok := s.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(strings.NewReader(string(content))), nil
}

type memQueue struct {
	published []domain.BatchSubmittedEvent
	err       error
}

func (q *memQueue) PublishBatchSubmitted(_ context.Context, event domain.BatchSubmittedEvent) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, event)
	return nil
}

func (q *memQueue) SubscribeBatchSubmitted(context.Context, func(context.Context, domain.BatchSubmittedEvent) error) error {
	return nil
}

func TestSubmitPersistsUploadsAndPublishes(t *testing.T) {
	repo := newMemRepo()
	storage := newMemStorage()
	queue := &memQueue{}
	uc := NewSubmitBatchUseCase(repo, storage, queue)

	batch, err := uc.Submit(context.Background(), []domain.Upload{
		{Filename: "my articles.docx", MimeType: "application/octet-stream", Content: []byte("payload")},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if batch.Status != domain.BatchStatusUploaded {
		t.Fatalf("status = %s", batch.Status)
	}

	key := batch.ID + "/source/my_articles.docx"
	if string(storage.objects[key]) != "payload" {
		t.Fatalf("object not stored under %q; have %v", key, storage.objects)
	}

	docs := repo.docs[batch.ID]
	if len(docs) != 1 || docs[0].Filename != "my articles.docx" || docs[0].StoragePath != key {
		t.Fatalf("docs = %+v", docs)
	}
	if len(queue.published) != 1 || queue.published[0].BatchID != batch.ID {
		t.Fatalf("published = %v", queue.published)
	}
	if queue.published[0].SubmittedAt.IsZero() {
		t.Fatal("event submitted_at not set")
	}
}

func TestSubmitRejectsDuplicateFilenames(t *testing.T) {
	uc := NewSubmitBatchUseCase(newMemRepo(), newMemStorage(), &memQueue{})

	// "my articles.docx" and "my_articles.docx" collide after sanitization.
	_, err := uc.Submit(context.Background(), []domain.Upload{
		{Filename: "my articles.docx", Content: []byte("a")},
		{Filename: "my_articles.docx", Content: []byte("b")},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSubmitRejectsEmptyUploads(t *testing.T) {
	uc := NewSubmitBatchUseCase(newMemRepo(), newMemStorage(), &memQueue{})

	_, err := uc.Submit(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func newProcessFixture(t *testing.T) (*ProcessBatchUseCase, *memRepo, *memStorage, string) {
	t.Helper()
	repo := newMemRepo()
	storage := newMemStorage()

	submit := NewSubmitBatchUseCase(repo, storage, &memQueue{})
	batch, err := submit.Submit(context.Background(), []domain.Upload{
		{Filename: "aoa.txt", MimeType: "text/plain", Content: []byte("Clause 1. Name\nClause 2. Courts")},
	})
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	completer := &seqCompleter{
		classifications: []string{"Articles of Association"},
		review:          `{"summary": "Reviewed.", "recommendations": []}`,
		compliance:      "[]",
	}
	review := newReviewUseCase(completer, &stubEmbedder{})
	return NewProcessBatchUseCase(repo, storage, review), repo, storage, batch.ID
}

func TestProcessByIDHappyPath(t *testing.T) {
	uc, repo, storage, batchID := newProcessFixture(t)

	if err := uc.ProcessByID(context.Background(), batchID); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	batch := repo.batches[batchID]
	if batch.Status != domain.BatchStatusReady {
		t.Fatalf("status = %s, want ready", batch.Status)
	}
	report := repo.reports[batchID]
	if report == nil || report.Process == "" {
		t.Fatalf("report = %+v", report)
	}

	annotatedKey := batchID + "/annotated/aoa.txt"
	if _, ok := storage.objects[annotatedKey]; !ok {
		t.Fatalf("annotated object missing under %q; have %v", annotatedKey, keysOf(storage.objects))
	}
	docs := repo.docs[batchID]
	if docs[0].AnnotatedPath != annotatedKey {
		t.Fatalf("annotated path = %q", docs[0].AnnotatedPath)
	}
	if docs[0].DetectedType != "Articles of Association" {
		t.Fatalf("detected type = %q", docs[0].DetectedType)
	}
}

func TestProcessByIDIsIdempotentForTerminalBatches(t *testing.T) {
	uc, repo, _, batchID := newProcessFixture(t)

	if err := uc.ProcessByID(context.Background(), batchID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	statusWrites := len(repo.statuses)

	if err := uc.ProcessByID(context.Background(), batchID); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(repo.statuses) != statusWrites {
		t.Fatalf("redelivery changed status history: %v", repo.statuses)
	}
}

func TestProcessByIDMarksBatchFailedOnStorageError(t *testing.T) {
	uc, repo, storage, batchID := newProcessFixture(t)
	storage.openErr = errors.New("disk gone")

	if err := uc.ProcessByID(context.Background(), batchID); err == nil {
		t.Fatalf("expected error")
	}
	batch := repo.batches[batchID]
	if batch.Status != domain.BatchStatusFailed {
		t.Fatalf("status = %s, want failed", batch.Status)
	}
	if batch.Error == "" {
		t.Fatalf("error message must be recorded")
	}
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
