package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type fakeIngestor struct {
	batch   *domain.Batch
	err     error
	uploads []domain.Upload
}

func (f *fakeIngestor) Submit(_ context.Context, uploads []domain.Upload) (*domain.Batch, error) {
	f.uploads = uploads
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type fakeProcessor struct {
	processed []string
	err       error
	onProcess func()
}

func (f *fakeProcessor) ProcessByID(_ context.Context, batchID string) error {
	f.processed = append(f.processed, batchID)
	if f.onProcess != nil {
		f.onProcess()
	}
	return f.err
}

type fakeReader struct {
	batches map[string]*domain.Batch
	docs    map[string][]domain.BatchDocument
}

func (f *fakeReader) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	batch, ok := f.batches[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", errors.New(id))
	}
	return batch, nil
}

func (f *fakeReader) ListBatchDocuments(_ context.Context, batchID string) ([]domain.BatchDocument, error) {
	return f.docs[batchID], nil
}

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = content
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

type fakeExporter struct {
	data []byte
	err  error
}

func (f *fakeExporter) Export(*domain.CombinedReport) ([]byte, error) {
	return f.data, f.err
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestSubmitBatchRequiresFiles(t *testing.T) {
	router := NewRouter(&fakeIngestor{}, nil, &fakeReader{}, &fakeStorage{}, &fakeExporter{}, nil)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	body, contentType := multipartBody(t, map[string]string{})
	resp, err := http.Post(server.URL+"/v1/batches", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitBatchAcceptsUploadsAsync(t *testing.T) {
	ingestor := &fakeIngestor{batch: &domain.Batch{ID: "b1", Status: domain.BatchStatusUploaded}}
	router := NewRouter(ingestor, nil, &fakeReader{}, &fakeStorage{}, &fakeExporter{}, nil)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	body, contentType := multipartBody(t, map[string]string{"aoa.docx": "content"})
	resp, err := http.Post(server.URL+"/v1/batches", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var batch domain.Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.ID != "b1" {
		t.Fatalf("batch id = %q", batch.ID)
	}
	if len(ingestor.uploads) != 1 || ingestor.uploads[0].Filename != "aoa.docx" {
		t.Fatalf("uploads = %+v", ingestor.uploads)
	}
}

func TestSubmitBatchWaitReturnsTerminalBatch(t *testing.T) {
	batch := &domain.Batch{ID: "b1", Status: domain.BatchStatusUploaded}
	reader := &fakeReader{batches: map[string]*domain.Batch{"b1": batch}}
	processor := &fakeProcessor{onProcess: func() {
		batch.Status = domain.BatchStatusReady
		batch.Report = &domain.CombinedReport{Process: "Company Incorporation"}
	}}
	router := NewRouter(
		&fakeIngestor{batch: batch},
		processor,
		reader,
		&fakeStorage{},
		&fakeExporter{},
		nil,
	)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	body, contentType := multipartBody(t, map[string]string{"aoa.docx": "content"})
	resp, err := http.Post(server.URL+"/v1/batches?wait=true", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got domain.Batch
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != domain.BatchStatusReady {
		t.Fatalf("status = %s, want ready", got.Status)
	}
	if got.Report == nil || got.Report.Process != "Company Incorporation" {
		t.Fatalf("report = %+v", got.Report)
	}
	if len(processor.processed) != 1 || processor.processed[0] != "b1" {
		t.Fatalf("processed = %v", processor.processed)
	}
}

func TestGetBatchMapsNotFound(t *testing.T) {
	router := NewRouter(&fakeIngestor{}, nil, &fakeReader{batches: map[string]*domain.Batch{}}, &fakeStorage{}, &fakeExporter{}, nil)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/batches/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadReportConflictsBeforeReady(t *testing.T) {
	reader := &fakeReader{batches: map[string]*domain.Batch{
		"b1": {ID: "b1", Status: domain.BatchStatusProcessing},
	}}
	router := NewRouter(&fakeIngestor{}, nil, reader, &fakeStorage{}, &fakeExporter{}, nil)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/batches/b1/report.xlsx")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestDownloadReportStreamsWorkbook(t *testing.T) {
	reader := &fakeReader{batches: map[string]*domain.Batch{
		"b1": {ID: "b1", Status: domain.BatchStatusReady, Report: &domain.CombinedReport{Process: "Licensing"}},
	}}
	router := NewRouter(&fakeIngestor{}, nil, reader, &fakeStorage{}, &fakeExporter{data: []byte("xlsx-bytes")}, nil)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/batches/b1/report.xlsx")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("content type = %q", got)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "xlsx-bytes" {
		t.Fatalf("body = %q", data)
	}
}

func TestDownloadAnnotatedServesStoredObject(t *testing.T) {
	reader := &fakeReader{
		batches: map[string]*domain.Batch{"b1": {ID: "b1", Status: domain.BatchStatusReady}},
		docs: map[string][]domain.BatchDocument{
			"b1": {{BatchID: "b1", Filename: "aoa.docx", MimeType: "application/octet-stream", AnnotatedPath: "b1/annotated/aoa.docx"}},
		},
	}
	storage := &fakeStorage{objects: map[string][]byte{"b1/annotated/aoa.docx": []byte("annotated")}}
	router := NewRouter(&fakeIngestor{}, nil, reader, storage, &fakeExporter{}, nil)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/batches/b1/documents/aoa.docx")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "annotated" {
		t.Fatalf("body = %q", data)
	}
}

func TestDownloadAnnotatedUnknownFilenameIs404(t *testing.T) {
	reader := &fakeReader{
		batches: map[string]*domain.Batch{"b1": {ID: "b1", Status: domain.BatchStatusReady}},
		docs:    map[string][]domain.BatchDocument{"b1": {}},
	}
	router := NewRouter(&fakeIngestor{}, nil, reader, &fakeStorage{}, &fakeExporter{}, nil)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/batches/b1/documents/nope.docx")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
