package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	error_message TEXT,
	report JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_documents (
	batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	annotated_path TEXT,
	detected_type TEXT,
	position INTEGER NOT NULL,
	PRIMARY KEY (batch_id, filename)
);

CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) CreateBatch(ctx context.Context, batch *domain.Batch, docs []domain.BatchDocument) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO batches (id, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
`, batch.ID, string(batch.Status), batch.Error, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, doc := range docs {
		_, err = tx.ExecContext(ctx, `
INSERT INTO batch_documents (batch_id, filename, mime_type, storage_path, annotated_path, detected_type, position)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, batch.ID, doc.Filename, doc.MimeType, doc.StoragePath, doc.AnnotatedPath, doc.DetectedType, doc.Position)
		if err != nil {
			return fmt.Errorf("insert batch document %q: %w", doc.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, error_message, report, created_at, updated_at
FROM batches
WHERE id = $1
`, id)

	var batch domain.Batch
	var status string
	var errMessage sql.NullString
	var reportRaw []byte

	err := row.Scan(&batch.ID, &status, &errMessage, &reportRaw, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("batch %s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}

	batch.Status = domain.BatchStatus(status)
	batch.Error = errMessage.String
	if len(reportRaw) > 0 {
		var report domain.CombinedReport
		if err := json.Unmarshal(reportRaw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		batch.Report = &report
	}
	return &batch, nil
}

func (r *BatchRepository) ListBatchDocuments(ctx context.Context, batchID string) ([]domain.BatchDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT batch_id, filename, mime_type, storage_path, annotated_path, detected_type, position
FROM batch_documents
WHERE batch_id = $1
ORDER BY position
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.BatchDocument
	for rows.Next() {
		var doc domain.BatchDocument
		var annotatedPath, detectedType sql.NullString
		if err := rows.Scan(&doc.BatchID, &doc.Filename, &doc.MimeType, &doc.StoragePath, &annotatedPath, &detectedType, &doc.Position); err != nil {
			return nil, fmt.Errorf("scan batch document: %w", err)
		}
		doc.AnnotatedPath = annotatedPath.String
		doc.DetectedType = detectedType.String
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch documents: %w", err)
	}
	return docs, nil
}

func (r *BatchRepository) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batches
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrBatchNotFound, "update batch status", fmt.Errorf("batch %s", id))
	}
	return nil
}

func (r *BatchRepository) SaveReport(ctx context.Context, id string, report *domain.CombinedReport, docs []domain.BatchDocument) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
UPDATE batches
SET report = $2, updated_at = $3
WHERE id = $1
`, id, reportJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrBatchNotFound, "save report", fmt.Errorf("batch %s", id))
	}

	for _, doc := range docs {
		_, err = tx.ExecContext(ctx, `
UPDATE batch_documents
SET annotated_path = $3, detected_type = $4
WHERE batch_id = $1 AND filename = $2
`, id, doc.Filename, doc.AnnotatedPath, doc.DetectedType)
		if err != nil {
			return fmt.Errorf("update batch document %q: %w", doc.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report tx: %w", err)
	}
	return nil
}
