package importer

import "strings"

// genderSynonyms maps lowercase tokens to canonical values.
var genderSynonyms = map[string]string{
	"m":          "male",
	"male":       "male",
	"man":        "male",
	"boy":        "male",
	"f":          "female",
	"female":     "female",
	"woman":      "female",
	"girl":       "female",
	"nb":         "non-binary",
	"nonbinary":  "non-binary",
	"non-binary": "non-binary",
	"non binary": "non-binary",
	"enby":       "non-binary",
}

// NormalizeGender maps free-text gender tokens onto a canonical value.
// Unrecognized tokens pass through unchanged: gender is an open-ended
// optional field, so unknown input is kept as caller-supplied text
// rather than rejected.
func NormalizeGender(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := genderSynonyms[token]; ok {
		return canonical
	}
	return strings.TrimSpace(raw)
}
