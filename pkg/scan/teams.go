package scan

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Title patterns tried in order. The first match wins; the two capture
// groups are (away-or-first, home-or-second). Polymarket titles put the
// home team second for "X vs. Y" style and first for "Will X beat Y".
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+vs\.?\s+(.+?)(?:\s*[:(-].*)?$`),
	regexp.MustCompile(`(?i)^(.+?)\s+@\s+(.+?)(?:\s*[:(-].*)?$`),
	regexp.MustCompile(`(?i)^(.+?)\s+at\s+(.+?)(?:\s*[:(-].*)?$`),
	regexp.MustCompile(`(?i)^will\s+(?:the\s+)?(.+?)\s+beat\s+(?:the\s+)?(.+?)\s*\??$`),
	regexp.MustCompile(`(?i)^(?:the\s+)?(.+?)\s+to\s+defeat\s+(?:the\s+)?(.+?)\s*\??$`),
	regexp.MustCompile(`(?i)^will\s+(?:the\s+)?(.+?)\s+win\s+(?:against|at|over)\s+(?:the\s+)?(.+?)\s*\??$`),
}

// ExtractTeams pulls two team names out of a free-text event title.
// Returns empty strings when no pattern matches.
func ExtractTeams(title string) (first, second string) {
	for _, p := range titlePatterns {
		if m := p.FindStringSubmatch(title); m != nil {
			first = strings.TrimSpace(m[1])
			second = strings.TrimSpace(m[2])
			// A "team" containing a question mark or digits-only is a
			// false positive from a prop question.
			if first == "" || second == "" || strings.Contains(second, "?") {
				continue
			}
			return first, second
		}
	}
	return "", ""
}

// noiseWords are dropped during normalization; they carry no matching
// signal and differ between providers.
var noiseWords = map[string]bool{
	"fc": true, "cf": true, "sc": true, "afc": true,
	"the": true, "club": true,
}

var stripTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeTeam lowercases a team name, removes diacritics, strips
// punctuation, and drops noise tokens so that names from different
// providers compare equal.
func NormalizeTeam(name string) string {
	folded, _, err := transform.String(stripTransformer, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.':
			b.WriteRune(' ')
		}
	}

	var kept []string
	for _, tok := range strings.Fields(b.String()) {
		if noiseWords[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// aliasTable maps well-known short or alternate names to the form used by
// the bookmaker odds API. Keys and values are normalized.
var aliasTable = map[string]string{
	"man united":     "manchester united",
	"man utd":        "manchester united",
	"man city":       "manchester city",
	"spurs":          "tottenham hotspur",
	"wolves":         "wolverhampton wanderers",
	"brighton":       "brighton and hove albion",
	"west ham":       "west ham united",
	"newcastle":      "newcastle united",
	"nottm forest":   "nottingham forest",
	"la lakers":      "los angeles lakers",
	"la clippers":    "los angeles clippers",
	"ny knicks":      "new york knicks",
	"ny yankees":     "new york yankees",
	"ny mets":        "new york mets",
	"sf giants":      "san francisco giants",
	"st louis blues": "st louis blues",
	"vegas":          "vegas golden knights",
}

// CanonicalTeam resolves aliases after normalization.
func CanonicalTeam(name string) string {
	n := NormalizeTeam(name)
	if canon, ok := aliasTable[n]; ok {
		return canon
	}
	return n
}

// SameTeam reports whether two raw team names refer to the same team.
// Exact normalized match first, then token containment in either
// direction ("lakers" matches "los angeles lakers").
func SameTeam(a, b string) bool {
	na, nb := CanonicalTeam(a), CanonicalTeam(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return tokenSubset(na, nb) || tokenSubset(nb, na)
}

// tokenSubset reports whether every token of sub appears in super.
func tokenSubset(sub, super string) bool {
	superToks := make(map[string]bool)
	for _, t := range strings.Fields(super) {
		superToks[t] = true
	}
	subToks := strings.Fields(sub)
	if len(subToks) == 0 {
		return false
	}
	for _, t := range subToks {
		if !superToks[t] {
			return false
		}
	}
	return true
}
