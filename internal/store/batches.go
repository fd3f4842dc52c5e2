package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/memberdesk/memberdesk/internal/importer"
)

// ErrBatchNotFound is returned when a batch id is unknown.
var ErrBatchNotFound = errors.New("import batch not found")

// Batches persists import batches and their row errors. It implements
// importer.BatchStore.
type Batches struct {
	db DBTX
}

// NewBatches creates a batch store backed by db.
func NewBatches(db DBTX) *Batches {
	return &Batches{db: db}
}

// InsertBatch persists a freshly-created batch in pending state.
func (b *Batches) InsertBatch(ctx context.Context, batch *importer.ImportBatch) error {
	_, err := b.db.Exec(ctx, `
		INSERT INTO import_batches (id, source_filename, status, started_at)
		VALUES ($1, $2, $3, $4)`,
		batch.ID, batch.SourceFilename, batch.Status, batch.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import batch: %w", err)
	}
	return nil
}

// MarkProcessing records the row count and moves the batch to
// processing.
func (b *Batches) MarkProcessing(ctx context.Context, batchID string, totalRows int) error {
	_, err := b.db.Exec(ctx, `
		UPDATE import_batches SET status = $2, total_rows = $3 WHERE id = $1`,
		batchID, importer.StatusProcessing, totalRows,
	)
	if err != nil {
		return fmt.Errorf("mark batch processing: %w", err)
	}
	return nil
}

// AddRowError persists one row error with its sanitized snapshot.
func (b *Batches) AddRowError(ctx context.Context, rowErr *importer.ImportRowError) error {
	snapshot, err := json.Marshal(rowErr.RawRow)
	if err != nil {
		return fmt.Errorf("marshal row snapshot: %w", err)
	}

	_, err = b.db.Exec(ctx, `
		INSERT INTO import_row_errors (batch_id, row_number, field, kind, message, raw_row)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`,
		rowErr.BatchID, rowErr.RowNumber, rowErr.Field, rowErr.Kind, rowErr.Message, snapshot,
	)
	if err != nil {
		return fmt.Errorf("insert row error: %w", err)
	}
	return nil
}

// Finalize writes the terminal status, counters and error summary.
func (b *Batches) Finalize(ctx context.Context, batch *importer.ImportBatch) error {
	summary, err := json.Marshal(batch.ErrorSummary)
	if err != nil {
		return fmt.Errorf("marshal error summary: %w", err)
	}

	_, err = b.db.Exec(ctx, `
		UPDATE import_batches
		SET status = $2, total_rows = $3, successful_rows = $4, failed_rows = $5,
		    skipped_rows = $6, completed_at = $7, error_summary = $8
		WHERE id = $1`,
		batch.ID, batch.Status, batch.TotalRows, batch.SuccessfulRows,
		batch.FailedRows, batch.SkippedRows, batch.CompletedAt, summary,
	)
	if err != nil {
		return fmt.Errorf("finalize batch: %w", err)
	}
	return nil
}

// GetBatch loads a batch summary by id.
func (b *Batches) GetBatch(ctx context.Context, batchID string) (*importer.ImportBatch, error) {
	var batch importer.ImportBatch
	var summary []byte

	err := b.db.QueryRow(ctx, `
		SELECT id, source_filename, status, total_rows, successful_rows,
		       failed_rows, skipped_rows, started_at,
		       COALESCE(completed_at, 'epoch'::timestamptz), COALESCE(error_summary, 'null')
		FROM import_batches WHERE id = $1`,
		batchID,
	).Scan(
		&batch.ID, &batch.SourceFilename, &batch.Status, &batch.TotalRows,
		&batch.SuccessfulRows, &batch.FailedRows, &batch.SkippedRows,
		&batch.StartedAt, &batch.CompletedAt, &summary,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}

	if err := json.Unmarshal(summary, &batch.ErrorSummary); err != nil {
		return nil, fmt.Errorf("decode error summary: %w", err)
	}
	return &batch, nil
}

// ListRowErrors returns all row errors for a batch in row order.
func (b *Batches) ListRowErrors(ctx context.Context, batchID string) ([]importer.ImportRowError, error) {
	rows, err := b.db.Query(ctx, `
		SELECT batch_id, row_number, COALESCE(field, ''), kind, message, raw_row
		FROM import_row_errors WHERE batch_id = $1 ORDER BY row_number`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list row errors: %w", err)
	}
	defer rows.Close()

	var out []importer.ImportRowError
	for rows.Next() {
		var re importer.ImportRowError
		var snapshot []byte
		if err := rows.Scan(&re.BatchID, &re.RowNumber, &re.Field, &re.Kind, &re.Message, &snapshot); err != nil {
			return nil, fmt.Errorf("scan row error: %w", err)
		}
		if err := json.Unmarshal(snapshot, &re.RawRow); err != nil {
			return nil, fmt.Errorf("decode row snapshot: %w", err)
		}
		out = append(out, re)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
