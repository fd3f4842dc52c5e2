package importer

import (
	"fmt"
	"strings"
	"time"
)

// birthDateLayouts is the ordered list of accepted date formats. The
// first layout that parses wins, so the unambiguous ISO form leads and
// the US slash form takes precedence over the EU one when both could
// apply.
var birthDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2.1.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// minBirthYear bounds how far back a birth date may plausibly lie.
const minBirthYear = 1900

// ParseBirthDate parses a birth date from any accepted textual format
// and rejects dates outside sanity bounds: nothing in the future,
// nothing before 1900. Callers treat a failure here as a soft one; the
// field is dropped, not the row.
func ParseBirthDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	var parsed time.Time
	ok := false
	for _, layout := range birthDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			parsed = t
			ok = true
			break
		}
	}
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
	}

	if parsed.After(now) {
		return time.Time{}, fmt.Errorf("date %s is in the future", parsed.Format("2006-01-02"))
	}
	if parsed.Year() < minBirthYear {
		return time.Time{}, fmt.Errorf("date %s is before %d", parsed.Format("2006-01-02"), minBirthYear)
	}

	return parsed, nil
}
