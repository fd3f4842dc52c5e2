package schema

import "strings"

// AliasTable maps normalized header spellings to canonical field names.
// It is built once at startup and shared read-only between imports;
// concurrent lookups need no locking.
type AliasTable struct {
	byAlias map[string]string
	fields  []string
}

// NewAliasTable builds a table from canonical field -> accepted header
// spellings. Aliases are normalized the same way incoming headers are,
// so entries may be written in any case/spacing. The canonical name
// itself is always accepted. Later fields never override an alias
// already claimed by an earlier one, so alias lists must be curated to
// stay unambiguous.
func NewAliasTable(aliases map[string][]string, order []string) *AliasTable {
	t := &AliasTable{
		byAlias: make(map[string]string),
		fields:  make([]string, 0, len(order)),
	}
	for _, field := range order {
		t.fields = append(t.fields, field)
		key := NormalizeHeader(field)
		if _, taken := t.byAlias[key]; !taken {
			t.byAlias[key] = field
		}
		for _, alias := range aliases[field] {
			key := NormalizeHeader(alias)
			if _, taken := t.byAlias[key]; !taken {
				t.byAlias[key] = field
			}
		}
	}
	return t
}

// Resolve returns the canonical field for a raw header, or ("", false)
// if no alias matches.
func (t *AliasTable) Resolve(rawHeader string) (string, bool) {
	field, ok := t.byAlias[NormalizeHeader(rawHeader)]
	return field, ok
}

// Fields returns the canonical fields in declaration order.
func (t *AliasTable) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// NormalizeHeader canonicalizes a header spelling for alias lookup:
// lowercase, trimmed, with runs of whitespace, hyphens, underscores and
// other punctuation collapsed to a single underscore.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// defaultAliases lists the header spellings accepted for each canonical
// field. Spellings are matched after NormalizeHeader, so "E-mail",
// "e mail" and "E_MAIL" are all the same entry.
var defaultAliases = map[string][]string{
	FieldFirstName: {"first name", "firstname", "fname", "given name", "forename"},
	FieldLastName:  {"last name", "lastname", "lname", "surname", "family name"},
	FieldEmail:     {"email", "e-mail", "email address", "e-mail address", "mail"},

	FieldPhone:                  {"phone", "phone number", "mobile", "mobile number", "cell", "cell phone", "telephone", "primary phone"},
	FieldAlternatePhone:         {"alternate phone", "alt phone", "secondary phone", "phone 2", "other phone", "home phone", "work phone"},
	FieldDateOfBirth:            {"date of birth", "dob", "birth date", "birthdate", "birthday"},
	FieldGender:                 {"gender", "sex"},
	FieldAddress:                {"address", "home address", "residential address", "street address", "location"},
	FieldEmergencyContactName:   {"emergency contact name", "emergency contact", "next of kin", "next of kin name"},
	FieldEmergencyContactPhone:  {"emergency contact phone", "emergency phone", "emergency contact number", "next of kin phone"},
	FieldPreferredName:          {"preferred name", "nickname", "known as"},
	FieldNotes:                  {"notes", "note", "comments", "remarks"},
	FieldAccessibilityNeeds:     {"accessibility needs", "accessibility", "special needs", "disability"},
	FieldPreferredContactMethod: {"preferred contact method", "contact method", "contact preference", "preferred contact"},
	FieldPreferredLanguage:      {"preferred language", "language", "primary language"},
}

// DefaultAliases returns the built-in alias table covering all
// canonical member fields.
func DefaultAliases() *AliasTable {
	order := make([]string, 0, len(RequiredFields)+len(OptionalFields))
	order = append(order, RequiredFields...)
	order = append(order, OptionalFields...)
	return NewAliasTable(defaultAliases, order)
}
