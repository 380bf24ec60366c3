package model

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug derives a record ID from a display name.
//
// The name is NFD-decomposed and combining marks are dropped ("Über" ->
// "uber"), letters and digits are lower-cased, and every other run of
// characters collapses into a single underscore. Names with nothing
// sluggable in them ("!!!", "") get a UUIDv7 instead so that the result is
// always a usable ID.
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}

	if b.Len() == 0 {
		return uuid.Must(uuid.NewV7()).String()
	}
	return b.String()
}
