package recordlayout

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combining marks the tax authority accepts as-is: tilde (ñ) and cedilla (ç).
func keepMark(r rune) bool {
	return r == '̃' || r == '̧'
}

// Normalize strips accents from s, keeping ñ and ç, and uppercases the
// result. The output is restricted to what ISO 8859-1 can carry.
func Normalize(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) && !keepMark(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(norm.NFC.String(b.String()))
}

// ToLatin1 encodes s as ISO 8859-1 bytes. Characters with no Latin-1
// representation are replaced with '?' rather than failing the declaration.
func ToLatin1(s string) ([]byte, error) {
	encoder := charmap.ISO8859_1.NewEncoder()
	out, _, err := transform.String(encoder, s)
	if err == nil {
		return []byte(out), nil
	}
	var b strings.Builder
	for _, r := range s {
		encoded, _, convErr := transform.String(encoder, string(r))
		if convErr != nil {
			b.WriteByte('?')
			continue
		}
		b.WriteString(encoded)
	}
	return []byte(b.String()), nil
}
