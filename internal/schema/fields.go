// Package schema defines the canonical member fields accepted by the
// import pipeline and the alias table that maps header spellings found
// in uploaded files onto them.
package schema

// Canonical field names. Every header in an uploaded file is either
// rewritten to one of these or passed through untouched and ignored.
const (
	FieldFirstName              = "first_name"
	FieldLastName               = "last_name"
	FieldEmail                  = "email"
	FieldPhone                  = "phone"
	FieldAlternatePhone         = "alternate_phone"
	FieldDateOfBirth            = "date_of_birth"
	FieldGender                 = "gender"
	FieldAddress                = "address"
	FieldEmergencyContactName   = "emergency_contact_name"
	FieldEmergencyContactPhone  = "emergency_contact_phone"
	FieldPreferredName          = "preferred_name"
	FieldNotes                  = "notes"
	FieldAccessibilityNeeds     = "accessibility_needs"
	FieldPreferredContactMethod = "preferred_contact_method"
	FieldPreferredLanguage      = "preferred_language"
)

// RequiredFields are the canonical fields that must be non-empty on
// every row for the row to be importable.
var RequiredFields = []string{FieldFirstName, FieldLastName, FieldEmail}

// OptionalFields are the canonical fields a row may carry; each one is
// independently present-or-absent on the resulting record.
var OptionalFields = []string{
	FieldPhone,
	FieldAlternatePhone,
	FieldDateOfBirth,
	FieldGender,
	FieldAddress,
	FieldEmergencyContactName,
	FieldEmergencyContactPhone,
	FieldPreferredName,
	FieldNotes,
	FieldAccessibilityNeeds,
	FieldPreferredContactMethod,
	FieldPreferredLanguage,
}

// ColumnDescription is a human-readable note about one template column,
// surfaced when generating a starter file for end users.
type ColumnDescription struct {
	Field       string // Canonical field name
	Label       string // Display header used in the template
	Required    bool
	Description string // Expected format, accepted values
	Example     string // Example cell value for the template's sample row
}

// TemplateColumns describes every canonical column in template order:
// required fields first, then optional fields.
var TemplateColumns = []ColumnDescription{
	{Field: FieldFirstName, Label: "First Name", Required: true, Description: "Given name; required.", Example: "Ama"},
	{Field: FieldLastName, Label: "Last Name", Required: true, Description: "Family name; required.", Example: "Mensah"},
	{Field: FieldEmail, Label: "Email", Required: true, Description: "Email address; required and used for duplicate detection.", Example: "ama.mensah@example.com"},
	{Field: FieldPhone, Label: "Phone", Required: false, Description: "Phone number in local or international format, e.g. 0241234567 or +233241234567.", Example: "0241234567"},
	{Field: FieldAlternatePhone, Label: "Alternate Phone", Required: false, Description: "Second phone number, same formats as Phone.", Example: ""},
	{Field: FieldDateOfBirth, Label: "Date of Birth", Required: false, Description: "Date in YYYY-MM-DD, MM/DD/YYYY or DD.MM.YYYY form; must be between 1900 and today.", Example: "1985-03-14"},
	{Field: FieldGender, Label: "Gender", Required: false, Description: "Accepted tokens include male, female, non-binary and common abbreviations; other values are kept as written.", Example: "female"},
	{Field: FieldAddress, Label: "Address", Required: false, Description: "Free-text postal address.", Example: "12 Ridge Road, Accra"},
	{Field: FieldEmergencyContactName, Label: "Emergency Contact Name", Required: false, Description: "Name of a person to contact in an emergency.", Example: "Kofi Mensah"},
	{Field: FieldEmergencyContactPhone, Label: "Emergency Contact Phone", Required: false, Description: "Phone number for the emergency contact.", Example: "+233209876543"},
	{Field: FieldPreferredName, Label: "Preferred Name", Required: false, Description: "Name the member prefers to be called.", Example: ""},
	{Field: FieldNotes, Label: "Notes", Required: false, Description: "Free-text notes.", Example: ""},
	{Field: FieldAccessibilityNeeds, Label: "Accessibility Needs", Required: false, Description: "Free-text accessibility requirements.", Example: ""},
	{Field: FieldPreferredContactMethod, Label: "Preferred Contact Method", Required: false, Description: "How the member prefers to be contacted, e.g. email, phone, sms.", Example: "email"},
	{Field: FieldPreferredLanguage, Label: "Preferred Language", Required: false, Description: "Language the member prefers for communication.", Example: "English"},
}
