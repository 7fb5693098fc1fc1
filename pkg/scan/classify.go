package scan

import (
	"regexp"
	"strconv"
	"strings"
)

// sportKeywords maps lowercase keywords found in tags, slugs, or questions
// to a sport. Checked in insertion-independent map order, so keywords must
// not overlap across sports.
var sportKeywords = map[string]Sport{
	"nfl":              SportNFL,
	"super bowl":       SportNFL,
	"touchdown":        SportNFL,
	"nba":              SportNBA,
	"wnba":             SportNBA,
	"mlb":              SportMLB,
	"world series":     SportMLB,
	"home run":         SportMLB,
	"nhl":              SportNHL,
	"stanley cup":      SportNHL,
	"premier league":   SportSoccer,
	"epl":              SportSoccer,
	"la liga":          SportSoccer,
	"serie a":          SportSoccer,
	"bundesliga":       SportSoccer,
	"ligue 1":          SportSoccer,
	"champions league": SportSoccer,
	"ncaaf":            SportNCAAF,
	"college football": SportNCAAF,
	"ncaab":            SportNCAAB,
	"march madness":    SportNCAAB,
}

// leagueForSport maps a sport to its default league label.
var leagueForSport = map[Sport]string{
	SportNFL:    "NFL",
	SportNBA:    "NBA",
	SportMLB:    "MLB",
	SportNHL:    "NHL",
	SportSoccer: "EPL",
	SportNCAAF:  "NCAAF",
	SportNCAAB:  "NCAAB",
}

// futuresBlocklist marks markets that resolve over a season or award
// cycle. These are never matchable against a single game line.
var futuresBlocklist = []string{
	"champion",
	"championship",
	"winner of the",
	"win the",
	"mvp",
	"award",
	"rookie of the year",
	"to make the playoffs",
	"playoff berth",
	"division title",
	"season wins",
	"win total",
	"relegated",
	"top scorer",
	"golden boot",
	"heisman",
	"coach of the year",
	"most improved",
	"all-star",
	"draft",
}

var (
	spreadPattern = regexp.MustCompile(`(?i)(?:by\s+(\d+(?:\.5)?)\+?\s+(?:points?|goals?|runs?)|cover(?:s|ing)?\s+the\s+spread|[-+](\d+(?:\.5)?)\s*(?:spread|handicap))`)
	totalPattern  = regexp.MustCompile(`(?i)(?:over|under|o/u)\s*(\d+(?:\.5)?)|combined\s+(?:score|points|goals|runs)|total\s+(?:points|goals|runs)`)
	propVerbs     = regexp.MustCompile(`(?i)\b(?:score\s+\d|record\s+\d|\d+\+\s*(?:points|assists|rebounds|yards|receptions|strikeouts|saves|goals)|first\s+(?:touchdown|goal|basket)|triple.double|double.double)\b`)
	mlPattern     = regexp.MustCompile(`(?i)\b(?:beat|defeat|win\s+(?:against|at|vs)|to\s+win\b|vs\.?\s)\b`)
)

// DetectSport classifies an event by sport using provider tags first, then
// slug and question keywords.
func DetectSport(question, slug string, tags []string) Sport {
	for _, tag := range tags {
		if s := keywordSport(strings.ToLower(tag)); s != SportUnknown {
			return s
		}
	}
	if s := keywordSport(strings.ReplaceAll(strings.ToLower(slug), "-", " ")); s != SportUnknown {
		return s
	}
	return keywordSport(strings.ToLower(question))
}

func keywordSport(text string) Sport {
	// The longest matching keyword wins, and matches are word-bounded
	// so a short keyword like "epl" cannot fire inside another word.
	best := SportUnknown
	bestLen := 0
	for kw, sport := range sportKeywords {
		if containsWord(text, kw) && len(kw) > bestLen {
			best = sport
			bestLen = len(kw)
		}
	}
	return best
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isAlnum(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isAlnum(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// LeagueFor returns the league label for a sport.
func LeagueFor(s Sport) string {
	return leagueForSport[s]
}

// IsFutures reports whether a question matches the futures/awards
// blocklist and should be skipped as non-tradeable.
func IsFutures(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range futuresBlocklist {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ClassifyMarket determines the market kind from provider-supplied metadata
// (when present) and regex heuristics over the question text. providerType
// is the raw market-type string from the events API, if any.
func ClassifyMarket(question, providerType string) (MarketKind, float64) {
	switch strings.ToLower(providerType) {
	case "moneyline", "h2h":
		return MarketKindMoneyline, 0
	case "spread", "spreads", "handicap":
		kind, line := MarketKindSpread, extractLine(question)
		return kind, line
	case "total", "totals", "over_under":
		return MarketKindTotal, extractLine(question)
	}

	if IsFutures(question) {
		return MarketKindFutures, 0
	}

	if m := totalPattern.FindStringSubmatch(question); m != nil {
		return MarketKindTotal, parseLine(m[1])
	}
	if m := spreadPattern.FindStringSubmatch(question); m != nil {
		line := parseLine(m[1])
		if line == 0 {
			line = parseLine(m[2])
		}
		return MarketKindSpread, line
	}
	if propVerbs.MatchString(question) {
		return MarketKindProp, 0
	}
	if mlPattern.MatchString(question) {
		return MarketKindMoneyline, 0
	}
	return MarketKindOther, 0
}

var linePattern = regexp.MustCompile(`(\d+(?:\.5)?)`)

func extractLine(question string) float64 {
	if m := linePattern.FindStringSubmatch(question); m != nil {
		return parseLine(m[1])
	}
	return 0
}

func parseLine(s string) float64 {
	if s == "" {
		return 0
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
