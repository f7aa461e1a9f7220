package genre

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Token reduces a genre spelling to lowercase ASCII letters and digits.
// "Sci-Fi" -> "scifi", "Science Fiction" -> "sciencefiction".
func Token(s string) string {
	s = norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// aliases maps tokens of common variants onto the taxonomy's tokens.
//
//nolint:gochecknoglobals // static lookup table
var aliases = map[string][]string{
	"scifi":                 {"sciencefiction"},
	"sf":                    {"sciencefiction"},
	"scifantasy":            {"sciencefiction", "fantasy"},
	"sciencefictionfantasy": {"sciencefiction", "fantasy"},
	"romcom":                {"romance", "comedy"},
	"romanticcomedy":        {"romance", "comedy"},
	"actionadventure":       {"action", "adventure"},
	"animated":              {"animation"},
	"anime":                 {"animation"},
	"cartoon":               {"animation"},
	"kids":                  {"family"},
	"children":              {"family"},
	"historical":            {"history"},
	"period":                {"history"},
	"musical":               {"music"},
	"documentaries":         {"documentary"},
	"docs":                  {"documentary"},
	"suspense":              {"thriller"},
	"psychologicalthriller": {"thriller"},
	"mysterythriller":       {"mystery", "thriller"},
	"crimethriller":         {"crime", "thriller"},
	"scary":                 {"horror"},
	"tvfilm":                {"tvmovie"},
	"warfilm":               {"war"},
	"westerns":              {"western"},
	"comedies":              {"comedy"},
	"dramas":                {"drama"},
}

// Expand returns the canonical tokens a genre spelling stands for.
// Spellings without an alias expand to their own token.
func Expand(s string) []string {
	tok := Token(s)
	if tok == "" {
		return nil
	}
	if canon, ok := aliases[tok]; ok {
		return canon
	}
	return []string{tok}
}

// TokenSet expands every spelling and collects the distinct tokens.
// The Unknown sentinel is dropped so it can never take part in a match.
func TokenSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	unknown := Token(Unknown)
	for _, v := range values {
		for _, tok := range Expand(v) {
			if tok == unknown {
				continue
			}
			set[tok] = struct{}{}
		}
	}
	return set
}

// Intersects reports whether a and b share a token.
func Intersects(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for tok := range a {
		if _, ok := b[tok]; ok {
			return true
		}
	}
	return false
}
