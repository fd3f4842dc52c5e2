package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxSummaryExamples bounds how many representative rows each error
// group in the summary carries.
const MaxSummaryExamples = 3

// ledger owns one ImportBatch and its row errors for the duration of a
// run. It increments exactly one counter per row outcome and persists
// failures as they happen, so a crash mid-batch leaves a legible trail.
type ledger struct {
	batch  *ImportBatch
	stores BatchStore

	groups     map[ErrorKind]*ErrorGroup
	groupOrder []ErrorKind
}

// newLedger creates the batch in pending state and persists it before
// any row work starts.
func newLedger(ctx context.Context, stores BatchStore, filename string) (*ledger, error) {
	batch := &ImportBatch{
		ID:             uuid.NewString(),
		SourceFilename: filename,
		Status:         StatusPending,
		StartedAt:      time.Now().UTC(),
	}
	if err := stores.InsertBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return &ledger{
		batch:  batch,
		stores: stores,
		groups: make(map[ErrorKind]*ErrorGroup),
	}, nil
}

// begin records the known row count and moves the batch to processing.
func (l *ledger) begin(ctx context.Context, totalRows int) error {
	l.batch.TotalRows = totalRows
	l.batch.Status = StatusProcessing
	if err := l.stores.MarkProcessing(ctx, l.batch.ID, totalRows); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

// record applies one row outcome: exactly one counter increment, plus a
// durable ImportRowError for failures. Row numbers are 1-based and
// counted after the header row.
func (l *ledger) record(ctx context.Context, rowNum int, row RawRow, outcome RowOutcome) error {
	switch outcome.Status {
	case RowCreated:
		l.batch.SuccessfulRows++
		return nil

	case RowSkipped:
		// Skips are not errors; they show up in the skipped counter and
		// the log, never in the error summary.
		l.batch.SkippedRows++
		return nil

	case RowFailed:
		l.batch.FailedRows++
		l.addToSummary(outcome.Kind, rowNum, outcome.Message)
		rowErr := &ImportRowError{
			BatchID:   l.batch.ID,
			RowNumber: rowNum,
			Field:     outcome.Field,
			Kind:      outcome.Kind,
			Message:   outcome.Message,
			RawRow:    snapshotRow(row),
		}
		if err := l.stores.AddRowError(ctx, rowErr); err != nil {
			return fmt.Errorf("persist row error: %w", err)
		}
		return nil
	}

	return fmt.Errorf("unknown row status %d", outcome.Status)
}

// addToSummary folds one outcome into the grouped error summary,
// keeping at most MaxSummaryExamples examples per kind.
func (l *ledger) addToSummary(kind ErrorKind, rowNum int, message string) {
	group, ok := l.groups[kind]
	if !ok {
		group = &ErrorGroup{Kind: kind}
		l.groups[kind] = group
		l.groupOrder = append(l.groupOrder, kind)
	}
	group.Count++
	if len(group.Examples) < MaxSummaryExamples {
		group.Examples = append(group.Examples, ErrorExample{RowNumber: rowNum, Message: message})
	}
}

// complete computes the terminal status, freezes the summary and
// persists the final batch record. Terminal states are never re-opened.
func (l *ledger) complete(ctx context.Context) (*ImportBatch, error) {
	switch {
	case l.batch.FailedRows == 0:
		l.batch.Status = StatusCompleted
	case l.batch.SuccessfulRows == 0:
		l.batch.Status = StatusFailed
	default:
		l.batch.Status = StatusCompletedWithErrors
	}

	l.batch.CompletedAt = time.Now().UTC()
	l.batch.ErrorSummary = l.summary()

	if err := l.stores.Finalize(ctx, l.batch); err != nil {
		return nil, fmt.Errorf("finalize batch: %w", err)
	}
	return l.batch, nil
}

// fail marks the whole batch failed before any row was processed, the
// one failure mode with no row-level granularity.
func (l *ledger) fail(ctx context.Context, kind ErrorKind, message string) (*ImportBatch, error) {
	l.batch.Status = StatusFailed
	l.batch.CompletedAt = time.Now().UTC()
	l.addToSummary(kind, 0, message)
	l.batch.ErrorSummary = l.summary()

	if err := l.stores.Finalize(ctx, l.batch); err != nil {
		return nil, fmt.Errorf("finalize batch: %w", err)
	}
	return l.batch, nil
}

// summary returns the grouped errors in first-seen order.
func (l *ledger) summary() []ErrorGroup {
	if len(l.groupOrder) == 0 {
		return nil
	}
	out := make([]ErrorGroup, 0, len(l.groupOrder))
	for _, kind := range l.groupOrder {
		out = append(out, *l.groups[kind])
	}
	return out
}
