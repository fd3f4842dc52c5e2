package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/memberdesk/memberdesk/internal/schema"
)

// processRow runs one normalized row through the full pipeline:
// required-field check, field normalization, duplicate check, creation.
// Every failure is converted into the returned outcome; nothing escapes
// to abort the batch, so one row's failure never discards the effects
// of previously-succeeded rows.
func (s *Service) processRow(ctx context.Context, row RawRow, rowNum int, opts Options, log *slog.Logger) RowOutcome {
	// Required fields are strict: a missing one fails the row outright
	// and stops further validation of it.
	for _, field := range schema.RequiredFields {
		if cellValue(row, field) == "" {
			return RowOutcome{
				Status:  RowFailed,
				Kind:    KindMissingRequiredField,
				Field:   field,
				Message: fmt.Sprintf("required field %q is missing or empty", field),
			}
		}
	}

	rec, outcome := s.buildRecord(row, rowNum, opts, log)
	if outcome != nil {
		return *outcome
	}

	// Best-effort duplicate check; not isolated against a concurrent
	// import of the same file. The store's uniqueness constraint is the
	// real guarantee and surfaces below as a persistence error.
	if opts.SkipDuplicates {
		exists, err := s.members.FindByEmail(ctx, rec.Email)
		if err != nil {
			return RowOutcome{
				Status:  RowFailed,
				Kind:    KindPersistenceError,
				Field:   schema.FieldEmail,
				Message: fmt.Sprintf("duplicate lookup: %v", err),
			}
		}
		if exists {
			return RowOutcome{
				Status:  RowSkipped,
				Kind:    KindDuplicateSkipped,
				Field:   schema.FieldEmail,
				Message: fmt.Sprintf("a member with email %q already exists", rec.Email),
			}
		}
	}

	if err := s.members.Create(ctx, rec); err != nil {
		msg := fmt.Sprintf("create member: %v", err)
		if errors.Is(err, ErrDuplicateEmail) {
			msg = fmt.Sprintf("a member with email %q already exists", rec.Email)
		}
		return RowOutcome{
			Status:  RowFailed,
			Kind:    KindPersistenceError,
			Message: msg,
		}
	}

	return RowOutcome{Status: RowCreated, Record: rec}
}

// buildRecord normalizes the row's fields into a fresh
// CanonicalMemberRecord. It returns a non-nil outcome only on a hard
// failure; soft failures drop the field with a logged warning.
func (s *Service) buildRecord(row RawRow, rowNum int, opts Options, log *slog.Logger) (*CanonicalMemberRecord, *RowOutcome) {
	rec := &CanonicalMemberRecord{
		FirstName: cellValue(row, schema.FieldFirstName),
		LastName:  cellValue(row, schema.FieldLastName),
		Email:     strings.ToLower(cellValue(row, schema.FieldEmail)),
	}

	// The primary phone is strict when non-empty: an unparsable phone
	// on a member record is almost always a data-entry error worth
	// surfacing as a failed row.
	if raw := cellValue(row, schema.FieldPhone); raw != "" {
		normalized, err := NormalizePhone(raw, opts.DefaultCountry)
		if err != nil {
			return nil, &RowOutcome{
				Status:  RowFailed,
				Kind:    KindInvalidPhoneFormat,
				Field:   schema.FieldPhone,
				Message: fmt.Sprintf("invalid phone %q: %v", raw, err),
			}
		}
		rec.Phone = pgtype.Text{String: normalized, Valid: true}
	}

	// Secondary phone numbers degrade softly: a bad value is dropped
	// with a warning, the row continues.
	for _, pf := range []struct {
		field string
		dst   *pgtype.Text
	}{
		{schema.FieldAlternatePhone, &rec.AlternatePhone},
		{schema.FieldEmergencyContactPhone, &rec.EmergencyContactPhone},
	} {
		raw := cellValue(row, pf.field)
		if raw == "" {
			continue
		}
		normalized, err := NormalizePhone(raw, opts.DefaultCountry)
		if err != nil {
			log.Warn("dropping unparsable phone number",
				"row", rowNum,
				"field", pf.field,
				"value", raw,
				"reason", err.Error(),
			)
			continue
		}
		*pf.dst = pgtype.Text{String: normalized, Valid: true}
	}

	// Date of birth is genuinely optional: parse failures drop the
	// field, the row continues.
	if raw := cellValue(row, schema.FieldDateOfBirth); raw != "" {
		dob, err := ParseBirthDate(raw, time.Now())
		if err != nil {
			log.Warn("dropping unparsable date of birth",
				"row", rowNum,
				"value", raw,
				"reason", err.Error(),
			)
		} else {
			rec.DateOfBirth = pgtype.Date{Time: dob, Valid: true}
		}
	}

	if raw := cellValue(row, schema.FieldGender); raw != "" {
		rec.Gender = pgtype.Text{String: NormalizeGender(raw), Valid: true}
	}

	for _, tf := range []struct {
		field string
		dst   *pgtype.Text
	}{
		{schema.FieldAddress, &rec.Address},
		{schema.FieldEmergencyContactName, &rec.EmergencyContactName},
		{schema.FieldPreferredName, &rec.PreferredName},
		{schema.FieldNotes, &rec.Notes},
		{schema.FieldAccessibilityNeeds, &rec.AccessibilityNeeds},
		{schema.FieldPreferredContactMethod, &rec.PreferredContactMethod},
		{schema.FieldPreferredLanguage, &rec.PreferredLanguage},
	} {
		if raw := cellValue(row, tf.field); raw != "" {
			*tf.dst = pgtype.Text{String: raw, Valid: true}
		}
	}

	return rec, nil
}

// snapshotRow coerces every cell of the original row to a plain string
// so the snapshot stays durable and serializable regardless of input.
func snapshotRow(row RawRow) map[string]string {
	snap := make(map[string]string, len(row))
	for k, v := range row {
		snap[k] = v
	}
	return snap
}
