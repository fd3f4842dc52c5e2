package importer

import (
	"strings"

	"github.com/memberdesk/memberdesk/internal/schema"
)

// absentValues are cell spellings treated the same as an empty cell.
var absentValues = map[string]struct{}{
	"na":   {},
	"n/a":  {},
	"null": {},
	"none": {},
}

// NormalizeColumns rewrites a row's raw header keys to canonical field
// names using the alias table. Headers matching no alias are preserved
// verbatim so unknown extra columns stay harmless. The rewrite is pure
// and per row; it consults nothing but the row and the table.
func NormalizeColumns(row RawRow, aliases *schema.AliasTable) RawRow {
	out := make(RawRow, len(row))
	for key, value := range row {
		if field, ok := aliases.Resolve(key); ok {
			out[field] = value
		} else {
			out[key] = value
		}
	}
	return out
}

// cellValue returns the row's value for a canonical field with absent
// sentinels (NA, N/A, null, None, empty) collapsed to "".
func cellValue(row RawRow, field string) string {
	v := strings.TrimSpace(row[field])
	if _, absent := absentValues[strings.ToLower(v)]; absent {
		return ""
	}
	return v
}
