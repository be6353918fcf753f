package service

import (
	"strings"
	"unicode"
)

// CanonicalLanguage folds a model-produced language tag to the form used for
// grouping and file names: trimmed, lower-cased, with every run of characters
// other than letters and digits collapsed to a single '-'. "EN", " en " and
// "en" share a group; "pt_BR" becomes "pt-br". Names such as "English" are
// not mapped to codes.
func CanonicalLanguage(tag string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(tag)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
