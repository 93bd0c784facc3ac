package wordcorr

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText prepares a reference cell for tokenization: NFKC folding,
// control characters removed, typographic apostrophes mapped to ASCII and
// whitespace runs collapsed to single spaces.
func NormalizeText(text string) string {
	folded := norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		case r == '’' || r == '‘':
			r = '\''
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
