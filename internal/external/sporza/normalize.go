package sporza

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters without a canonical decomposition
var foldSpecial = strings.NewReplacer(
	"ø", "o", "Ø", "o",
	"æ", "ae", "Æ", "ae",
	"ß", "ss",
	"đ", "d", "Đ", "d",
	"ł", "l", "Ł", "l",
	"ı", "i",
)

// NormalizeName folds a rider name for matching: accents removed,
// lowercase, hyphens as spaces, only [a-z0-9 ] kept, whitespace collapsed
func NormalizeName(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		foldSpecial.Replace(name),
	)
	if err != nil {
		folded = name
	}

	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "-", " ")

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
