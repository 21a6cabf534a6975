package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes to NFD and drops combining marks.
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents removes diacritics from s. On transform failure the input
// is returned unchanged.
func StripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName produces the canonical matching form of a personal name or
// entity name: accents stripped, uppercased, every non-letter replaced by a
// space, whitespace collapsed. Idempotent.
func NormalizeName(s string) string {
	s = strings.ToUpper(StripAccents(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TokenSortRatio scores the similarity of two normalized names on a 0-100
// scale. Tokens are sorted before comparison so word order does not matter.
func TokenSortRatio(a, b string) int {
	sa := sortTokens(a)
	sb := sortTokens(b)
	if sa == sb {
		return 100
	}
	if sa == "" || sb == "" {
		return 0
	}
	dist := fuzzy.LevenshteinDistance(sa, sb)
	la := len([]rune(sa))
	lb := len([]rune(sb))
	longest := la
	if lb > longest {
		longest = lb
	}
	return (longest - dist) * 100 / longest
}

func sortTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
