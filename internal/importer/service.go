package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/memberdesk/memberdesk/internal/schema"
)

// Service runs the member-ingestion pipeline. The alias table is
// immutable and shared by concurrent imports without locking; the
// member store is a shared resource whose uniqueness constraint is the
// final word on duplicates.
type Service struct {
	aliases *schema.AliasTable
	members MemberStore
	batches BatchStore
	logger  *slog.Logger

	defaults Options
}

// NewService wires the pipeline's collaborators. The alias table is
// injected here and never mutated afterwards.
func NewService(aliases *schema.AliasTable, members MemberStore, batches BatchStore, defaults Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		aliases:  aliases,
		members:  members,
		batches:  batches,
		logger:   logger,
		defaults: defaults,
	}
}

// Import runs one file through the whole pipeline synchronously: one
// batch, one sequential pass over rows, no intra-batch parallelism.
// Duplicate detection and counter updates are only correct when rows
// are serialized, so the simplest correct design stays single-threaded.
// The returned batch is always in a terminal state; an error return
// means the ledger itself could not be persisted.
func (s *Service) Import(ctx context.Context, filename string, r io.Reader, opts Options) (*ImportBatch, error) {
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = s.defaults.DefaultCountry
	}

	start := time.Now()
	log := s.logger.With("filename", filename)

	led, err := newLedger(ctx, s.batches, filename)
	if err != nil {
		return nil, err
	}
	log = log.With("batch_id", led.batch.ID)

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return led.fail(ctx, KindUnsupportedFormat, fmt.Sprintf("read file: %v", err))
	}
	if int64(len(data)) > MaxFileSize {
		return led.fail(ctx, KindUnsupportedFormat,
			fmt.Sprintf("file exceeds %dMB limit", MaxFileSize/(1024*1024)))
	}

	rows, err := LoadRows(filename, data)
	if err != nil {
		kind := KindUnsupportedFormat
		msg := err.Error()
		if !errors.Is(err, ErrUnsupportedFormat) {
			msg = fmt.Sprintf("file could not be parsed: %v", err)
		}
		log.Warn("import aborted before first row", "reason", msg)
		return led.fail(ctx, kind, msg)
	}

	if err := led.begin(ctx, len(rows)); err != nil {
		return nil, err
	}
	log.Info("import started",
		"total_rows", len(rows),
		"skip_duplicates", opts.SkipDuplicates,
		"default_country", opts.DefaultCountry,
	)

	for i, raw := range rows {
		rowNum := i + 1 // 1-based, header-adjusted

		row := NormalizeColumns(raw, s.aliases)
		outcome := s.processRow(ctx, row, rowNum, opts, log)

		if outcome.Status == RowSkipped {
			log.Info("row skipped", "row", rowNum, "reason", outcome.Message)
		}

		if err := led.record(ctx, rowNum, raw, outcome); err != nil {
			return nil, err
		}
	}

	batch, err := led.complete(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("import finished",
		"status", batch.Status,
		"successful", batch.SuccessfulRows,
		"failed", batch.FailedRows,
		"skipped", batch.SkippedRows,
		"duration", time.Since(start),
	)
	return batch, nil
}

// Batch returns the batch summary for an id.
func (s *Service) Batch(ctx context.Context, batchID string) (*ImportBatch, error) {
	return s.batches.GetBatch(ctx, batchID)
}

// RowErrors returns the full row-error list for a batch, including the
// sanitized raw-row snapshots.
func (s *Service) RowErrors(ctx context.Context, batchID string) ([]ImportRowError, error) {
	return s.batches.ListRowErrors(ctx, batchID)
}
