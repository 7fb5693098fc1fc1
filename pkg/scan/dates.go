package scan

import (
	"regexp"
	"strings"
	"time"
)

// slugDatePattern matches a yyyy-mm-dd segment embedded in a market slug,
// e.g. "nfl-kc-buf-2026-01-25-kc".
var slugDatePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// ScheduleLookup resolves a normalized team pair to a kickoff time from
// the bookmaker schedule. ok is false when no game is found.
type ScheduleLookup func(normHome, normAway string) (time.Time, bool)

// ResolveEventDate picks the authoritative event start time from the best
// available source, in priority order: slug-embedded date, explicit start
// date, explicit end date, free-text date phrase, bookmaker schedule.
// now anchors relative phrases ("tonight") and is injected for testing.
func ResolveEventDate(slug string, startDate, endDate *time.Time, text string, now time.Time, schedule ScheduleLookup, normHome, normAway string) (time.Time, DateSource) {
	if m := slugDatePattern.FindStringSubmatch(slug); m != nil {
		if ts, err := time.Parse("2006-01-02", m[0]); err == nil {
			return ts, DateSourceSlug
		}
	}

	if startDate != nil && !startDate.IsZero() {
		return *startDate, DateSourceStart
	}
	if endDate != nil && !endDate.IsZero() {
		return *endDate, DateSourceEnd
	}

	if ts, ok := parseTextDate(text, now); ok {
		return ts, DateSourceText
	}

	if schedule != nil {
		if ts, ok := schedule(normHome, normAway); ok {
			return ts, DateSourceSchedule
		}
	}

	return time.Time{}, DateSourceNone
}

var monthDayPattern = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})\b`)

var monthNums = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// parseTextDate understands the date phrases that show up in market
// questions: "tonight", "today", "tomorrow", weekday names, and
// month-day forms like "Jan 5" or "January 5".
func parseTextDate(text string, now time.Time) (time.Time, bool) {
	t := strings.ToLower(text)
	day := func(d time.Time) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	}

	switch {
	case strings.Contains(t, "tonight"), strings.Contains(t, "today"):
		return day(now), true
	case strings.Contains(t, "tomorrow"):
		return day(now.AddDate(0, 0, 1)), true
	}

	for name, wd := range weekdays {
		if containsWord(t, name) {
			delta := (int(wd) - int(now.Weekday()) + 7) % 7
			return day(now.AddDate(0, 0, delta)), true
		}
	}

	if m := monthDayPattern.FindStringSubmatch(t); m != nil {
		mon := monthNums[strings.ToLower(m[1][:3])]
		dayNum := 0
		for _, c := range m[2] {
			dayNum = dayNum*10 + int(c-'0')
		}
		if dayNum >= 1 && dayNum <= 31 {
			ts := time.Date(now.Year(), mon, dayNum, 0, 0, 0, 0, now.Location())
			// A date far in the past rolls into next year (season boundary).
			if ts.Before(now.AddDate(0, 0, -7)) {
				ts = ts.AddDate(1, 0, 0)
			}
			return ts, true
		}
	}

	return time.Time{}, false
}

// InWindow reports whether an event starting at ts falls inside the scan
// window: not already started, and within windowHours from now.
func InWindow(ts time.Time, now time.Time, windowHours int) bool {
	if ts.IsZero() {
		return false
	}
	until := ts.Sub(now)
	return until >= 0 && until <= time.Duration(windowHours)*time.Hour
}
