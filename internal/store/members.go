package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memberdesk/memberdesk/internal/importer"
)

// Members persists member records. It implements importer.MemberStore.
//
// The members.email column carries a case-insensitive unique index,
// which is the authoritative duplicate guard: the pipeline's
// check-then-create sequence is deliberately best-effort, and a
// concurrent import losing the race surfaces here as ErrDuplicateEmail.
type Members struct {
	db DBTX
}

// NewMembers creates a member store backed by db.
func NewMembers(db DBTX) *Members {
	return &Members{db: db}
}

// FindByEmail reports whether a member with the given email exists,
// matching case-insensitively.
func (m *Members) FindByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := m.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE LOWER(email) = LOWER($1))`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("find member by email: %w", err)
	}
	return exists, nil
}

// Create inserts one member record. Each call is its own unit of work:
// a single INSERT statement, atomic on its own, so one row's failure
// never touches previously-inserted rows.
func (m *Members) Create(ctx context.Context, rec *importer.CanonicalMemberRecord) error {
	_, err := m.db.Exec(ctx, `
		INSERT INTO members (
			first_name, last_name, email,
			phone, alternate_phone, date_of_birth, gender, address,
			emergency_contact_name, emergency_contact_phone,
			preferred_name, notes, accessibility_needs,
			preferred_contact_method, preferred_language
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rec.FirstName, rec.LastName, rec.Email,
		rec.Phone, rec.AlternatePhone, rec.DateOfBirth, rec.Gender, rec.Address,
		rec.EmergencyContactName, rec.EmergencyContactPhone,
		rec.PreferredName, rec.Notes, rec.AccessibilityNeeds,
		rec.PreferredContactMethod, rec.PreferredLanguage,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return importer.ErrDuplicateEmail
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}
