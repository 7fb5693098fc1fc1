// Package oddsapi provides a client for The Odds API v4, the source of
// bookmaker odds and game schedules.
package oddsapi

import "time"

// DefaultBaseURL is The Odds API v4 base URL.
const DefaultBaseURL = "https://api.the-odds-api.com/v4"

// Sport is an entry from the /sports listing.
type Sport struct {
	Key     string `json:"key"`
	Group   string `json:"group"`
	Title   string `json:"title"`
	Active  bool   `json:"active"`
	HasOdds bool   `json:"has_odds"`
}

// Game is one upcoming or live game with its bookmaker odds.
type Game struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one book's markets for a game.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is a single market (h2h, spreads, totals) at one book.
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is one side of a market. Price is in the odds format the
// request asked for. Point carries the line for spreads and totals.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point,omitempty"`
}

// H2HOdds returns the h2h (moneyline) prices per team for one book,
// or nil if the book has no h2h market.
func (b *Bookmaker) H2HOdds() map[string]float64 {
	for _, m := range b.Markets {
		if m.Key != "h2h" {
			continue
		}
		odds := make(map[string]float64, len(m.Outcomes))
		for _, o := range m.Outcomes {
			odds[o.Name] = o.Price
		}
		return odds
	}
	return nil
}
