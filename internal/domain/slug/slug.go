// Package slug turns human readable names into URL-safe identifiers.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that do not decompose into base + combining mark under NFD
var ligatures = strings.NewReplacer(
	"œ", "oe", "Œ", "oe",
	"æ", "ae", "Æ", "ae",
	"ß", "ss",
	"ø", "o", "Ø", "o",
	"đ", "d", "Đ", "d",
	"ł", "l", "Ł", "l",
)

// Make lower-cases and transliterates s to ASCII and joins alphanumeric runs with a single hyphen.
func Make(s string) string {
	s = ligatures.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	b.Grow(len(ascii))

	pendingHyphen := false
	for _, r := range strings.ToLower(ascii) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return b.String()
}

// Compute returns existing untouched when it is set. Otherwise it slugifies source
// and appends "-suffix" when a suffix is given.
func Compute(source, existing, suffix string) string {
	if existing != "" {
		return existing
	}

	base := Make(source)
	if base == "" || suffix == "" {
		return base
	}

	return base + "-" + suffix
}
