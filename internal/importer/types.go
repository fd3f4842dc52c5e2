// Package importer implements the bulk member-ingestion pipeline:
// loading CSV/XLSX files of unknown schema, normalizing headers and
// field values, detecting duplicates, and recording a durable audit of
// the outcome. This package has no HTTP dependencies and can be driven
// by any frontend.
package importer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ErrDuplicateEmail is returned by MemberStore.Create when the store's
// uniqueness constraint rejects the record's email.
var ErrDuplicateEmail = errors.New("member email already exists")

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	StatusPending             BatchStatus = "pending"
	StatusProcessing          BatchStatus = "processing"
	StatusCompleted           BatchStatus = "completed"
	StatusCompletedWithErrors BatchStatus = "completed_with_errors"
	StatusFailed              BatchStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s BatchStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return true
	}
	return false
}

// ErrorKind classifies a row-level or batch-level import problem.
type ErrorKind string

const (
	KindUnsupportedFormat    ErrorKind = "unsupported_format"
	KindMissingRequiredField ErrorKind = "missing_required_field"
	KindInvalidPhoneFormat   ErrorKind = "invalid_phone_format"
	KindDuplicateSkipped     ErrorKind = "duplicate_skipped"
	KindPersistenceError     ErrorKind = "persistence_error"
)

// ImportBatch tracks one execution of the pipeline over one uploaded
// file. Once the status is terminal,
// TotalRows == SuccessfulRows + FailedRows + SkippedRows.
type ImportBatch struct {
	ID             string       `json:"id"`
	SourceFilename string       `json:"sourceFilename"`
	Status         BatchStatus  `json:"status"`
	TotalRows      int          `json:"totalRows"`
	SuccessfulRows int          `json:"successfulRows"`
	FailedRows     int          `json:"failedRows"`
	SkippedRows    int          `json:"skippedRows"`
	StartedAt      time.Time    `json:"startedAt"`
	CompletedAt    time.Time    `json:"completedAt,omitempty"`
	ErrorSummary   []ErrorGroup `json:"errorSummary,omitempty"`
}

// ErrorGroup aggregates all row errors of one kind, with up to
// MaxSummaryExamples representative rows, so the summary stays bounded
// regardless of file size.
type ErrorGroup struct {
	Kind     ErrorKind      `json:"kind"`
	Count    int            `json:"count"`
	Examples []ErrorExample `json:"examples"`
}

// ErrorExample is one representative failure inside an ErrorGroup.
type ErrorExample struct {
	RowNumber int    `json:"rowNumber"`
	Message   string `json:"message"`
}

// ImportRowError records a single failed row. RawRow is a sanitized
// snapshot of the original row with every value coerced to a string,
// safe for durable storage.
type ImportRowError struct {
	BatchID   string            `json:"batchId"`
	RowNumber int               `json:"rowNumber"` // 1-based, counted after the header row
	Field     string            `json:"field,omitempty"`
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	RawRow    map[string]string `json:"rawRow"`
}

// CanonicalMemberRecord is the normalized output of one row. Required
// fields are plain strings; every optional field is an explicit
// present-or-absent value decided once during normalization.
type CanonicalMemberRecord struct {
	FirstName string
	LastName  string
	Email     string

	Phone                  pgtype.Text
	AlternatePhone         pgtype.Text
	DateOfBirth            pgtype.Date
	Gender                 pgtype.Text
	Address                pgtype.Text
	EmergencyContactName   pgtype.Text
	EmergencyContactPhone  pgtype.Text
	PreferredName          pgtype.Text
	Notes                  pgtype.Text
	AccessibilityNeeds     pgtype.Text
	PreferredContactMethod pgtype.Text
	PreferredLanguage      pgtype.Text
}

// RowStatus tags the outcome of processing one row.
type RowStatus int

const (
	RowCreated RowStatus = iota
	RowSkipped
	RowFailed
)

// RowOutcome is the tagged result of one row: exactly one of Created
// (Record set), Skipped (Message set), or Failed (Kind, Field, Message
// set). A row produces at most one terminal error.
type RowOutcome struct {
	Status  RowStatus
	Record  *CanonicalMemberRecord // set when Status == RowCreated
	Kind    ErrorKind              // set when Status is RowSkipped or RowFailed
	Field   string                 // offending field, when known
	Message string
}

// MemberStore is the external persistence collaborator. FindByEmail
// matches case-insensitively. Create runs in its own unit of work
// scoped to one row and returns ErrDuplicateEmail when the store's
// uniqueness constraint rejects the record.
type MemberStore interface {
	FindByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, rec *CanonicalMemberRecord) error
}

// BatchStore persists ImportBatch records and their row errors.
type BatchStore interface {
	InsertBatch(ctx context.Context, batch *ImportBatch) error
	MarkProcessing(ctx context.Context, batchID string, totalRows int) error
	AddRowError(ctx context.Context, rowErr *ImportRowError) error
	Finalize(ctx context.Context, batch *ImportBatch) error
	GetBatch(ctx context.Context, batchID string) (*ImportBatch, error)
	ListRowErrors(ctx context.Context, batchID string) ([]ImportRowError, error)
}

// Options control one pipeline run.
type Options struct {
	// SkipDuplicates skips rows whose email already exists instead of
	// attempting creation. Best-effort only: two concurrent imports of
	// overlapping data can both pass the check, in which case the
	// store's uniqueness constraint turns the loser into a
	// persistence_error row.
	SkipDuplicates bool

	// DefaultCountry is the ISO country code assumed for phone numbers
	// written in local format.
	DefaultCountry string
}
