package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/memberdesk/memberdesk/internal/schema"
)

// ----------------------------------------------------------------------------
// In-memory fakes
// ----------------------------------------------------------------------------

type fakeMemberStore struct {
	existing map[string]bool // lowercase email -> exists
	created  []*CanonicalMemberRecord
	failWith map[string]error // lowercase email -> forced Create error
}

func newFakeMemberStore(existing ...string) *fakeMemberStore {
	m := &fakeMemberStore{
		existing: make(map[string]bool),
		failWith: make(map[string]error),
	}
	for _, e := range existing {
		m.existing[strings.ToLower(e)] = true
	}
	return m
}

func (m *fakeMemberStore) FindByEmail(ctx context.Context, email string) (bool, error) {
	return m.existing[strings.ToLower(email)], nil
}

func (m *fakeMemberStore) Create(ctx context.Context, rec *CanonicalMemberRecord) error {
	if err, ok := m.failWith[strings.ToLower(rec.Email)]; ok {
		return err
	}
	if m.existing[strings.ToLower(rec.Email)] {
		return ErrDuplicateEmail
	}
	m.existing[strings.ToLower(rec.Email)] = true
	m.created = append(m.created, rec)
	return nil
}

type fakeBatchStore struct {
	batches   map[string]*ImportBatch
	rowErrors map[string][]ImportRowError
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{
		batches:   make(map[string]*ImportBatch),
		rowErrors: make(map[string][]ImportRowError),
	}
}

func (b *fakeBatchStore) InsertBatch(ctx context.Context, batch *ImportBatch) error {
	cp := *batch
	b.batches[batch.ID] = &cp
	return nil
}

func (b *fakeBatchStore) MarkProcessing(ctx context.Context, batchID string, totalRows int) error {
	stored, ok := b.batches[batchID]
	if !ok {
		return fmt.Errorf("unknown batch %s", batchID)
	}
	stored.Status = StatusProcessing
	stored.TotalRows = totalRows
	return nil
}

func (b *fakeBatchStore) AddRowError(ctx context.Context, rowErr *ImportRowError) error {
	b.rowErrors[rowErr.BatchID] = append(b.rowErrors[rowErr.BatchID], *rowErr)
	return nil
}

func (b *fakeBatchStore) Finalize(ctx context.Context, batch *ImportBatch) error {
	cp := *batch
	b.batches[batch.ID] = &cp
	return nil
}

func (b *fakeBatchStore) GetBatch(ctx context.Context, batchID string) (*ImportBatch, error) {
	stored, ok := b.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("unknown batch %s", batchID)
	}
	cp := *stored
	return &cp, nil
}

func (b *fakeBatchStore) ListRowErrors(ctx context.Context, batchID string) ([]ImportRowError, error) {
	return b.rowErrors[batchID], nil
}

func newTestService(members MemberStore, batches BatchStore) *Service {
	return NewService(schema.DefaultAliases(), members, batches, Options{DefaultCountry: "GH"}, nil)
}

func runImport(t *testing.T, svc *Service, csvData string, opts Options) *ImportBatch {
	t.Helper()
	batch, err := svc.Import(context.Background(), "members.csv", strings.NewReader(csvData), opts)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	return batch
}

func checkCounters(t *testing.T, batch *ImportBatch, total, ok, failed, skipped int) {
	t.Helper()
	if batch.TotalRows != total || batch.SuccessfulRows != ok ||
		batch.FailedRows != failed || batch.SkippedRows != skipped {
		t.Errorf("counters = (total %d, ok %d, failed %d, skipped %d), want (%d, %d, %d, %d)",
			batch.TotalRows, batch.SuccessfulRows, batch.FailedRows, batch.SkippedRows,
			total, ok, failed, skipped)
	}
	if batch.Status.Terminal() && batch.TotalRows != batch.SuccessfulRows+batch.FailedRows+batch.SkippedRows {
		t.Errorf("counter invariant violated: %d != %d + %d + %d",
			batch.TotalRows, batch.SuccessfulRows, batch.FailedRows, batch.SkippedRows)
	}
}

// ----------------------------------------------------------------------------
// Import pipeline scenarios
// ----------------------------------------------------------------------------

func TestImport_RequiredFieldsOnly(t *testing.T) {
	members := newFakeMemberStore()
	svc := newTestService(members, newFakeBatchStore())

	batch := runImport(t, svc, "First Name,Last Name,Email\nAma,Mensah,Ama@Example.com\n", Options{})

	if batch.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", batch.Status, StatusCompleted)
	}
	checkCounters(t, batch, 1, 1, 0, 0)

	if len(members.created) != 1 {
		t.Fatalf("created %d members, want 1", len(members.created))
	}
	rec := members.created[0]
	if rec.FirstName != "Ama" || rec.LastName != "Mensah" {
		t.Errorf("record = %q %q, want Ama Mensah", rec.FirstName, rec.LastName)
	}
	if rec.Email != "ama@example.com" {
		t.Errorf("email = %q, want lowercased ama@example.com", rec.Email)
	}
	if rec.Phone.Valid || rec.DateOfBirth.Valid || rec.Gender.Valid {
		t.Error("optional fields should be absent when the file has no such columns")
	}
}

func TestImport_MissingRequiredField(t *testing.T) {
	batches := newFakeBatchStore()
	svc := newTestService(newFakeMemberStore(), batches)

	// Row 1 valid, row 2 missing last name.
	data := "First Name,Last Name,Email\nAma,Mensah,ama@example.com\nKofi,,kofi@example.com\n"
	batch := runImport(t, svc, data, Options{})

	if batch.Status != StatusCompletedWithErrors {
		t.Errorf("status = %s, want %s", batch.Status, StatusCompletedWithErrors)
	}
	checkCounters(t, batch, 2, 1, 1, 0)

	rowErrs := batches.rowErrors[batch.ID]
	if len(rowErrs) != 1 {
		t.Fatalf("got %d row errors, want 1", len(rowErrs))
	}
	re := rowErrs[0]
	if re.RowNumber != 2 {
		t.Errorf("RowNumber = %d, want 2", re.RowNumber)
	}
	if re.Field != schema.FieldLastName {
		t.Errorf("Field = %q, want %q", re.Field, schema.FieldLastName)
	}
	if re.Kind != KindMissingRequiredField {
		t.Errorf("Kind = %s, want %s", re.Kind, KindMissingRequiredField)
	}
	// The snapshot keeps the file's original header spellings.
	if re.RawRow["First Name"] != "Kofi" {
		t.Errorf(`snapshot["First Name"] = %q, want Kofi`, re.RawRow["First Name"])
	}
}

func TestImport_RequiredFieldSentinelIsMissing(t *testing.T) {
	svc := newTestService(newFakeMemberStore(), newFakeBatchStore())

	batch := runImport(t, svc, "First Name,Last Name,Email\nAma,N/A,ama@example.com\n", Options{})

	checkCounters(t, batch, 1, 0, 1, 0)
	if batch.Status != StatusFailed {
		t.Errorf("status = %s, want %s (zero successes, one failure)", batch.Status, StatusFailed)
	}
}

func TestImport_PhoneNormalization(t *testing.T) {
	members := newFakeMemberStore()
	svc := newTestService(members, newFakeBatchStore())

	data := "First Name,Last Name,Email,Phone\nAma,Mensah,ama@example.com,0241234567\n"
	batch := runImport(t, svc, data, Options{DefaultCountry: "GH"})

	checkCounters(t, batch, 1, 1, 0, 0)
	rec := members.created[0]
	if !rec.Phone.Valid || rec.Phone.String != "+233241234567" {
		t.Errorf("phone = %+v, want +233241234567", rec.Phone)
	}
}

func TestImport_EmptyPhoneNeverErrors(t *testing.T) {
	batches := newFakeBatchStore()
	svc := newTestService(newFakeMemberStore(), batches)

	data := "First Name,Last Name,Email,Phone\nAma,Mensah,ama@example.com,\nKofi,Boateng,kofi@example.com,N/A\n"
	batch := runImport(t, svc, data, Options{})

	checkCounters(t, batch, 2, 2, 0, 0)
	if len(batches.rowErrors[batch.ID]) != 0 {
		t.Errorf("got %d row errors, want 0", len(batches.rowErrors[batch.ID]))
	}
}

func TestImport_InvalidPhoneFailsRow(t *testing.T) {
	batches := newFakeBatchStore()
	svc := newTestService(newFakeMemberStore(), batches)

	data := "First Name,Last Name,Email,Phone\nAma,Mensah,ama@example.com,12345\n"
	batch := runImport(t, svc, data, Options{})

	checkCounters(t, batch, 1, 0, 1, 0)
	rowErrs := batches.rowErrors[batch.ID]
	if len(rowErrs) != 1 || rowErrs[0].Kind != KindInvalidPhoneFormat {
		t.Fatalf("row errors = %+v, want one invalid_phone_format", rowErrs)
	}
	if rowErrs[0].Field != schema.FieldPhone {
		t.Errorf("Field = %q, want %q", rowErrs[0].Field, schema.FieldPhone)
	}
}

func TestImport_BadSecondaryPhoneDropped(t *testing.T) {
	members := newFakeMemberStore()
	batches := newFakeBatchStore()
	svc := newTestService(members, batches)

	data := "First Name,Last Name,Email,Phone,Alternate Phone\nAma,Mensah,ama@example.com,0241234567,12345\n"
	batch := runImport(t, svc, data, Options{DefaultCountry: "GH"})

	// Only the primary phone is strict; a bad alternate is dropped.
	checkCounters(t, batch, 1, 1, 0, 0)
	rec := members.created[0]
	if rec.AlternatePhone.Valid {
		t.Errorf("AlternatePhone = %+v, want absent", rec.AlternatePhone)
	}
	if !rec.Phone.Valid || rec.Phone.String != "+233241234567" {
		t.Errorf("phone = %+v, want +233241234567", rec.Phone)
	}
	if len(batches.rowErrors[batch.ID]) != 0 {
		t.Error("soft failure must not create a row error")
	}
}

func TestImport_FutureBirthDateDropped(t *testing.T) {
	members := newFakeMemberStore()
	batches := newFakeBatchStore()
	svc := newTestService(members, batches)

	data := "First Name,Last Name,Email,Date of Birth\nAma,Mensah,ama@example.com,2099-01-01\n"
	batch := runImport(t, svc, data, Options{})

	// Soft failure: field dropped, row succeeds.
	checkCounters(t, batch, 1, 1, 0, 0)
	if members.created[0].DateOfBirth.Valid {
		t.Error("DateOfBirth should be absent after dropping a future date")
	}
	if len(batches.rowErrors[batch.ID]) != 0 {
		t.Error("soft failure must not create a row error")
	}
}

func TestImport_DuplicateSkipping(t *testing.T) {
	data := "First Name,Last Name,Email\nAma,Mensah,AMA@example.com\n"

	t.Run("enabled counts skipped", func(t *testing.T) {
		members := newFakeMemberStore("ama@example.com")
		svc := newTestService(members, newFakeBatchStore())

		batch := runImport(t, svc, data, Options{SkipDuplicates: true})

		if batch.Status != StatusCompleted {
			t.Errorf("status = %s, want %s", batch.Status, StatusCompleted)
		}
		checkCounters(t, batch, 1, 0, 0, 1)
		if len(members.created) != 0 {
			t.Errorf("created %d members, want 0", len(members.created))
		}
	})

	t.Run("disabled attempts creation", func(t *testing.T) {
		members := newFakeMemberStore("ama@example.com")
		batches := newFakeBatchStore()
		svc := newTestService(members, batches)

		batch := runImport(t, svc, data, Options{SkipDuplicates: false})

		// The store's uniqueness constraint rejects the row instead.
		checkCounters(t, batch, 1, 0, 1, 0)
		rowErrs := batches.rowErrors[batch.ID]
		if len(rowErrs) != 1 || rowErrs[0].Kind != KindPersistenceError {
			t.Fatalf("row errors = %+v, want one persistence_error", rowErrs)
		}
	})
}

func TestImport_PersistenceErrorDoesNotAbortBatch(t *testing.T) {
	members := newFakeMemberStore()
	members.failWith["bad@example.com"] = fmt.Errorf("connection reset")
	svc := newTestService(members, newFakeBatchStore())

	data := "First Name,Last Name,Email\n" +
		"Ama,Mensah,ama@example.com\n" +
		"Bad,Row,bad@example.com\n" +
		"Kofi,Boateng,kofi@example.com\n"
	batch := runImport(t, svc, data, Options{})

	// Row-level atomicity: the middle row's failure must not discard
	// the other rows' effects.
	checkCounters(t, batch, 3, 2, 1, 0)
	if batch.Status != StatusCompletedWithErrors {
		t.Errorf("status = %s, want %s", batch.Status, StatusCompletedWithErrors)
	}
	if len(members.created) != 2 {
		t.Errorf("created %d members, want 2", len(members.created))
	}
}

func TestImport_UnsupportedFormatFailsBatch(t *testing.T) {
	members := newFakeMemberStore()
	svc := newTestService(members, newFakeBatchStore())

	batch, err := svc.Import(context.Background(), "members.pdf", strings.NewReader("x"), Options{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if batch.Status != StatusFailed {
		t.Errorf("status = %s, want %s", batch.Status, StatusFailed)
	}
	checkCounters(t, batch, 0, 0, 0, 0)
	if len(members.created) != 0 {
		t.Error("no rows may be processed for an unsupported format")
	}
	if len(batch.ErrorSummary) != 1 || batch.ErrorSummary[0].Kind != KindUnsupportedFormat {
		t.Errorf("summary = %+v, want one unsupported_format group", batch.ErrorSummary)
	}
}

func TestImport_HeaderOnlyFileCompletes(t *testing.T) {
	svc := newTestService(newFakeMemberStore(), newFakeBatchStore())

	batch := runImport(t, svc, "First Name,Last Name,Email\n", Options{})

	if batch.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", batch.Status, StatusCompleted)
	}
	checkCounters(t, batch, 0, 0, 0, 0)
}

func TestImport_ErrorSummaryBounded(t *testing.T) {
	svc := newTestService(newFakeMemberStore(), newFakeBatchStore())

	var sb strings.Builder
	sb.WriteString("First Name,Last Name,Email\n")
	sb.WriteString("Ama,Mensah,ama@example.com\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&sb, "Missing%d,,missing%d@example.com\n", i, i)
	}
	batch := runImport(t, svc, sb.String(), Options{})

	checkCounters(t, batch, 6, 1, 5, 0)
	if len(batch.ErrorSummary) != 1 {
		t.Fatalf("got %d summary groups, want 1", len(batch.ErrorSummary))
	}
	group := batch.ErrorSummary[0]
	if group.Kind != KindMissingRequiredField {
		t.Errorf("group kind = %s, want %s", group.Kind, KindMissingRequiredField)
	}
	if group.Count != 5 {
		t.Errorf("group count = %d, want 5", group.Count)
	}
	if len(group.Examples) != MaxSummaryExamples {
		t.Errorf("got %d examples, want %d", len(group.Examples), MaxSummaryExamples)
	}
	if group.Examples[0].RowNumber != 2 {
		t.Errorf("first example row = %d, want 2", group.Examples[0].RowNumber)
	}
}

func TestImport_BatchPersistedThroughStore(t *testing.T) {
	batches := newFakeBatchStore()
	svc := newTestService(newFakeMemberStore(), batches)

	batch := runImport(t, svc, "First Name,Last Name,Email\nAma,Mensah,ama@example.com\n", Options{})

	stored, err := svc.Batch(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if stored.Status != StatusCompleted || stored.SuccessfulRows != 1 {
		t.Errorf("stored batch = %+v, want completed with 1 success", stored)
	}
	if stored.SourceFilename != "members.csv" {
		t.Errorf("SourceFilename = %q, want members.csv", stored.SourceFilename)
	}
	if stored.CompletedAt.Before(stored.StartedAt) {
		t.Error("CompletedAt must not precede StartedAt")
	}
}
