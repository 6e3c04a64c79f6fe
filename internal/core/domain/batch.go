package domain

import "time"

type BatchStatus string

const (
	BatchStatusUploaded   BatchStatus = "uploaded"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusReady      BatchStatus = "ready"
	BatchStatusFailed     BatchStatus = "failed"
)

// Batch is one review request: a set of uploaded registration documents
// analyzed together so the checklist engine can reason over all of them.
type Batch struct {
	ID        string          `json:"id"`
	Status    BatchStatus     `json:"status"`
	Error     string          `json:"error,omitempty"`
	Report    *CombinedReport `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BatchSubmittedEvent is the queue payload that hands a batch to a worker.
// SubmittedAt lets the consumer measure how long the event sat in the queue.
type BatchSubmittedEvent struct {
	BatchID     string    `json:"batch_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// BatchDocument is the per-file record inside a batch.
type BatchDocument struct {
	BatchID       string `json:"batch_id"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mime_type"`
	StoragePath   string `json:"storage_path"`
	AnnotatedPath string `json:"annotated_path,omitempty"`
	DetectedType  string `json:"detected_type,omitempty"`
	Position      int    `json:"position"`
}
