package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name canonicalizes a free-text driver or constructor name for
// comparison: trimmed, lowercased, diacritics stripped. Predictions and
// feed results must both pass through here before any lookup, otherwise
// guesses silently stop matching.
func Name(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return stripDiacritics(s)
}

// alias maps a substring of a normalized constructor name to its
// canonical team key. First match wins, so more specific entries
// (e.g. "racing bulls") must precede the generic ones ("bull").
type alias struct {
	substr string
	key    string
}

var constructorAliases = []alias{
	{"racing bulls", "racing bulls"},
	{"rb f1", "racing bulls"},
	{"red bull", "red bull"},
	{"redbull", "red bull"},
	{"mclaren", "mclaren"},
	{"ferrari", "ferrari"},
	{"mercedes", "mercedes"},
	{"aston", "aston martin"},
	{"alpine", "alpine"},
	{"haas", "haas"},
	{"williams", "williams"},
	{"audi", "audi"},
	{"sauber", "audi"},
	{"cadillac", "cadillac"},
}

// Constructor canonicalizes a constructor name. Known teams collapse to
// a closed set of keys via the alias table; anything unrecognized falls
// back to its normalized raw string and will simply not match a roster.
func Constructor(s string) string {
	n := Name(s)
	for _, a := range constructorAliases {
		if strings.Contains(n, a.substr) {
			return a.key
		}
	}
	return n
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
