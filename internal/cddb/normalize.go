package cddb

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var umlauts = strings.NewReplacer(
	"Ä", "Ae", "ä", "ae",
	"Ö", "Oe", "ö", "oe",
	"Ü", "Ue", "ü", "ue",
	"ß", "ss",
)

// NormalizeTitle folds a title to the printable ASCII a MiniDisc can show.
// German umlauts expand to two letters; other accents are stripped; any
// remaining non-ASCII rune is dropped.
func NormalizeTitle(s string) string {
	s = umlauts.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r < 0x20 || r > 0x7e:
			return -1
		default:
			return r
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
