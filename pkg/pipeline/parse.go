package pipeline

import (
	"time"

	"github.com/phenomenon0/edgeboard/pkg/polymarket/gamma"
	"github.com/phenomenon0/edgeboard/pkg/scan"
)

// Skip and failure reasons for markets that do not make it into the
// cache. Skips are expected (futures, props, other sports); failures
// are markets we wanted but could not parse, recorded in match_failures.
const (
	reasonUnknownSport = "unknown_sport"
	reasonFutures      = "futures_blocklist"
	reasonProp         = "prop_market"
	reasonUnclassified = "unclassified"
	reasonNoTeams      = "no_teams"
	reasonNoTokens     = "no_tokens"
	reasonNoDate       = "no_date"
)

func reasonIsFailure(reason string) bool {
	switch reason {
	case reasonUnclassified, reasonNoTeams, reasonNoTokens, reasonNoDate:
		return true
	default:
		return false
	}
}

// parseMarket turns one raw prediction market into a classified,
// team-extracted, date-resolved event. A non-empty reason means the
// market was not parseable or not wanted.
func parseMarket(ev *gamma.Event, m *gamma.Market, now time.Time, schedule scan.ScheduleLookup) (*scan.ParsedEvent, string) {
	if m.ConditionID == "" {
		return nil, reasonNoTokens
	}

	question := m.Question
	if question == "" {
		question = ev.Title
	}
	slug := m.Slug
	if slug == "" {
		slug = ev.Slug
	}

	sport := scan.DetectSport(question, slug, ev.TagLabels())
	if sport == scan.SportUnknown {
		return nil, reasonUnknownSport
	}

	kind, line := scan.ClassifyMarket(question, m.SportsMarketType)
	switch kind {
	case scan.MarketKindFutures:
		return nil, reasonFutures
	case scan.MarketKindProp:
		return nil, reasonProp
	case scan.MarketKindOther:
		return nil, reasonUnclassified
	}

	first, second := scan.ExtractTeams(question)
	if first == "" && question != ev.Title {
		first, second = scan.ExtractTeams(ev.Title)
	}
	if first == "" {
		return nil, reasonNoTeams
	}

	yesToken := m.YesTokenID()
	if yesToken == "" {
		return nil, reasonNoTokens
	}

	normHome := scan.NormalizeTeam(first)
	normAway := scan.NormalizeTeam(second)

	var startPtr, endPtr *time.Time
	if ts, ok := m.GameStartTime(); ok {
		startPtr = &ts
	} else if !m.StartDate.IsZero() {
		startPtr = &m.StartDate
	} else if !ev.StartDate.IsZero() {
		startPtr = &ev.StartDate
	}
	if !m.EndDate.IsZero() {
		endPtr = &m.EndDate
	} else if !ev.EndDate.IsZero() {
		endPtr = &ev.EndDate
	}

	eventDate, source := scan.ResolveEventDate(slug, startPtr, endPtr, question, now, schedule, normHome, normAway)
	if source == scan.DateSourceNone {
		return nil, reasonNoDate
	}

	return &scan.ParsedEvent{
		ConditionID: m.ConditionID,
		Slug:        slug,
		Question:    question,
		Sport:       sport,
		League:      scan.LeagueFor(sport),
		Kind:        kind,
		Line:        line,
		HomeTeam:    first,
		AwayTeam:    second,
		NormHome:    normHome,
		NormAway:    normAway,
		EventDate:   eventDate,
		DateSource:  source,
		YesTokenID:  yesToken,
		NoTokenID:   m.NoTokenID(),
		YesPrice:    m.YesPrice(),
		Volume:      m.Volume.Float64(),
		Liquidity:   m.Liquidity.Float64(),
	}, ""
}
