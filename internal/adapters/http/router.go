package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
	"github.com/kirillkom/corporate-agent/internal/observability/metrics"
)

const (
	maxUploadBytes   = 64 << 20
	syncPollInterval = 500 * time.Millisecond
)

type Router struct {
	ingestor  ports.BatchIngestor
	processor ports.BatchProcessor
	reader    ports.BatchReader
	storage   ports.ObjectStorage
	exporter  ports.ReportExporter
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	ingestor ports.BatchIngestor,
	processor ports.BatchProcessor,
	reader ports.BatchReader,
	storage ports.ObjectStorage,
	exporter ports.ReportExporter,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingestor:  ingestor,
		processor: processor,
		reader:    reader,
		storage:   storage,
		exporter:  exporter,
		metrics:   httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/batches", rt.submitBatch)
	mux.HandleFunc("/v1/batches/", rt.batchSubresource)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("open upload %q", header.Filename)})
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read upload %q", header.Filename)})
			return
		}
		uploads = append(uploads, domain.Upload{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  content,
		})
	}

	wait := r.URL.Query().Get("wait") == "true"

	batch, err := rt.ingestor.Submit(r.Context(), uploads)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		mode := "async"
		if wait {
			mode = "sync"
		}
		rt.metrics.RecordBatchSubmission("api", mode, len(uploads))
	}

	if !wait || rt.processor == nil {
		writeJSON(w, http.StatusAccepted, batch)
		return
	}

	final, err := rt.waitForBatch(r, batch.ID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, final)
}

// waitForBatch drives processing inline and then polls until the batch
// reaches a terminal status. A queue worker may win the race and own the
// batch; polling covers both owners.
func (rt *Router) waitForBatch(r *http.Request, batchID string) (*domain.Batch, error) {
	ctx := r.Context()
	if err := rt.processor.ProcessByID(ctx, batchID); err != nil {
		return nil, fmt.Errorf("process batch: %w", err)
	}

	ticker := time.NewTicker(syncPollInterval)
	defer ticker.Stop()
	for {
		batch, err := rt.reader.GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if batch.Status == domain.BatchStatusReady || batch.Status == domain.BatchStatusFailed {
			return batch, nil
		}
		select {
		case <-ctx.Done():
			return nil, domain.WrapError(domain.ErrTemporary, "wait for batch", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (rt *Router) batchSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	segments := strings.Split(rest, "/")
	switch {
	case len(segments) == 1 && segments[0] != "":
		rt.getBatch(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "report.xlsx":
		rt.downloadReport(w, r, segments[0])
	case len(segments) == 3 && segments[1] == "documents" && segments[2] != "":
		rt.downloadAnnotated(w, r, segments[0], segments[2])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request, id string) {
	batch, err := rt.reader.GetBatch(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (rt *Router) downloadReport(w http.ResponseWriter, r *http.Request, id string) {
	batch, err := rt.reader.GetBatch(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if batch.Report == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": fmt.Sprintf("batch is %s, report not available", batch.Status)})
		return
	}

	data, err := rt.exporter.Export(batch.Report)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) downloadAnnotated(w http.ResponseWriter, r *http.Request, id, filename string) {
	docs, err := rt.reader.ListBatchDocuments(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	var target *domain.BatchDocument
	for i := range docs {
		if docs[i].Filename == filename {
			target = &docs[i]
			break
		}
	}
	if target == nil {
		err := domain.WrapError(domain.ErrDocumentNotFound, "download annotated", errors.New(filename))
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if target.AnnotatedPath == "" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "document not annotated yet"})
		return
	}

	reader, err := rt.storage.Open(r.Context(), target.AnnotatedPath)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	defer reader.Close()

	contentType := target.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
