// Package scan classifies prediction-market events by sport, league, and
// market kind, extracts team names from free-text titles, and resolves an
// authoritative event date from whichever of several unreliable sources is
// available.
package scan

import "time"

// Sport identifies a supported sport.
type Sport string

const (
	SportNFL     Sport = "nfl"
	SportNBA     Sport = "nba"
	SportMLB     Sport = "mlb"
	SportNHL     Sport = "nhl"
	SportSoccer  Sport = "soccer"
	SportNCAAF   Sport = "ncaaf"
	SportNCAAB   Sport = "ncaab"
	SportUnknown Sport = ""
)

// OddsAPIKey returns the sport key used by the bookmaker odds API.
func (s Sport) OddsAPIKey() string {
	switch s {
	case SportNFL:
		return "americanfootball_nfl"
	case SportNBA:
		return "basketball_nba"
	case SportMLB:
		return "baseball_mlb"
	case SportNHL:
		return "icehockey_nhl"
	case SportSoccer:
		return "soccer_epl"
	case SportNCAAF:
		return "americanfootball_ncaaf"
	case SportNCAAB:
		return "basketball_ncaab"
	default:
		return ""
	}
}

// MarketKind represents the type of market a question resolves on.
type MarketKind string

const (
	MarketKindMoneyline MarketKind = "MONEYLINE"
	MarketKindSpread    MarketKind = "SPREAD"
	MarketKindTotal     MarketKind = "TOTAL"
	MarketKindProp      MarketKind = "PROP"
	MarketKindFutures   MarketKind = "FUTURES"
	MarketKindOther     MarketKind = "OTHER"
)

// IsTradeable returns true if this market kind can be matched against a
// bookmaker line. Futures and awards markets are excluded up front.
func (k MarketKind) IsTradeable() bool {
	switch k {
	case MarketKindMoneyline, MarketKindSpread, MarketKindTotal:
		return true
	default:
		return false
	}
}

// DateSource records which source won the event-date resolution cascade.
type DateSource string

const (
	DateSourceSlug     DateSource = "slug"
	DateSourceStart    DateSource = "start_date"
	DateSourceEnd      DateSource = "end_date"
	DateSourceText     DateSource = "text"
	DateSourceSchedule DateSource = "schedule"
	DateSourceNone     DateSource = "none"
)

// ParsedEvent is a classified prediction-market event ready for matching.
type ParsedEvent struct {
	ConditionID string
	Slug        string
	Question    string

	Sport  Sport
	League string
	Kind   MarketKind
	Line   float64 // for totals/spreads

	HomeTeam string // raw, as extracted
	AwayTeam string
	NormHome string // normalized for matching
	NormAway string

	EventDate  time.Time
	DateSource DateSource

	YesTokenID string
	NoTokenID  string
	YesPrice   float64
	Volume     float64
	Liquidity  float64
}

// MatchKey returns a stable key for cross-referencing against bookmaker
// schedules: sport + date + normalized team pair.
func (e *ParsedEvent) MatchKey() string {
	return string(e.Sport) + "_" + e.EventDate.Format("2006-01-02") + "_" + e.NormHome + "_" + e.NormAway
}
