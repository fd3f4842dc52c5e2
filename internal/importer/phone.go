package importer

// phone.go normalizes free-text phone numbers to a canonical
// +-prefixed international form. Uploaded files mix local and
// international spellings ("024 123 4567", "+233 24 123 4567",
// "233241234567"), so normalization runs a country-specific rule list
// first and falls back to a generic dial-code rule when none matches.
// Validity is bounded by E.164: 7 to 15 digits.

import (
	"fmt"
	"strings"
)

// E.164 digit bounds.
const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// phoneRule is one local-to-international rewrite: when match accepts
// the digit string, rewrite returns the international form without the
// leading "+".
type phoneRule struct {
	match   func(digits string) bool
	rewrite func(digits string) string
}

// countryRule holds the dialing metadata and ordered rewrite rules for
// one country. Rules are tried in order; the first match wins.
type countryRule struct {
	dialCode string
	rules    []phoneRule
}

// trunkRule rewrites a local number of localLen digits beginning with
// the trunk prefix: the prefix is dropped and the dial code prepended
// (e.g. Ghana "0241234567" -> "233241234567").
func trunkRule(dialCode, trunkPrefix string, localLen int) phoneRule {
	return phoneRule{
		match: func(digits string) bool {
			return len(digits) == localLen && strings.HasPrefix(digits, trunkPrefix)
		},
		rewrite: func(digits string) string {
			return dialCode + digits[len(trunkPrefix):]
		},
	}
}

// dialCodeRule accepts a number already written with the country's dial
// code and passes it through unchanged.
func dialCodeRule(dialCode string, fullLen int) phoneRule {
	return phoneRule{
		match: func(digits string) bool {
			return len(digits) == fullLen && strings.HasPrefix(digits, dialCode)
		},
		rewrite: func(digits string) string { return digits },
	}
}

// countryRules maps ISO country codes to their rewrite strategies.
var countryRules = map[string]countryRule{
	"GH": {dialCode: "233", rules: []phoneRule{
		trunkRule("233", "0", 10),
		dialCodeRule("233", 12),
	}},
	"NG": {dialCode: "234", rules: []phoneRule{
		trunkRule("234", "0", 11),
		dialCodeRule("234", 13),
	}},
	"KE": {dialCode: "254", rules: []phoneRule{
		trunkRule("254", "0", 10),
		dialCodeRule("254", 12),
	}},
	"GB": {dialCode: "44", rules: []phoneRule{
		trunkRule("44", "0", 11),
		dialCodeRule("44", 12),
	}},
	"US": {dialCode: "1", rules: []phoneRule{
		phoneRule{
			match:   func(d string) bool { return len(d) == 10 },
			rewrite: func(d string) string { return "1" + d },
		},
		dialCodeRule("1", 11),
	}},
}

// genericDialCodes backs the fallback rule for countries without a
// dedicated rule list.
var genericDialCodes = map[string]string{
	"GH": "233", "NG": "234", "KE": "254", "ZA": "27", "TG": "228",
	"CI": "225", "BF": "226", "GB": "44", "US": "1", "CA": "1",
	"DE": "49", "FR": "33", "NL": "31", "IN": "91",
}

// NormalizePhone converts free-text phone input into canonical
// international form for the given default country. Empty input is
// valid (phone is optional) and yields an empty result. A non-empty
// input that cannot be normalized returns an error with a
// human-readable reason.
func NormalizePhone(raw, defaultCountry string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	hasPlus := strings.HasPrefix(raw, "+")
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) < minPhoneDigits {
		return "", fmt.Errorf("too few digits (%d, need at least %d)", len(digits), minPhoneDigits)
	}
	if len(digits) > maxPhoneDigits {
		return "", fmt.Errorf("too many digits (%d, at most %d)", len(digits), maxPhoneDigits)
	}

	// Already international and long enough to carry a country code.
	if hasPlus && len(digits) >= 10 {
		return "+" + digits, nil
	}

	country := strings.ToUpper(strings.TrimSpace(defaultCountry))

	if cr, ok := countryRules[country]; ok {
		for _, rule := range cr.rules {
			if rule.match(digits) {
				return "+" + rule.rewrite(digits), nil
			}
		}
	}

	// Generic fallback: digit count is within bounds, so trust the
	// number and apply the country dial code to local-looking input.
	code, ok := genericDialCodes[country]
	if !ok {
		if cr, found := countryRules[country]; found {
			code = cr.dialCode
		}
	}
	if code != "" {
		if strings.HasPrefix(digits, code) {
			return "+" + digits, nil
		}
		local := strings.TrimPrefix(digits, "0")
		if len(code)+len(local) <= maxPhoneDigits {
			return "+" + code + local, nil
		}
	}

	return "+" + digits, nil
}
