// Package gamma provides a read-only client for the Polymarket Gamma
// Markets API, used for sports event and market discovery.
package gamma

import (
	"encoding/json"
	"strconv"
	"time"
)

// Event represents a Polymarket event (container for multiple markets).
type Event struct {
	ID          string    `json:"id"`
	Ticker      string    `json:"ticker"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`
	Restricted  bool      `json:"restricted"`
	Liquidity   JSONFloat `json:"liquidity"`
	Volume      JSONFloat `json:"volume"`
	Volume24hr  JSONFloat `json:"volume24hr"`
	Markets     []Market  `json:"markets,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
}

// Market represents a single prediction market inside an event.
type Market struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	ConditionID string    `json:"conditionId"`
	Slug        string    `json:"slug"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	GameStart   string    `json:"gameStartTime"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`

	// Provider-supplied market type metadata, when present
	// (e.g. "moneyline", "spreads", "totals").
	SportsMarketType string `json:"sportsMarketType"`

	// JSON-encoded arrays of token ids, outcomes, and prices.
	ClobTokenIDsRaw  string `json:"clobTokenIds"`
	OutcomesRaw      string `json:"outcomes"`
	OutcomePricesRaw string `json:"outcomePrices"`

	Liquidity  JSONFloat `json:"liquidity"`
	Volume     JSONFloat `json:"volume"`
	Volume24hr JSONFloat `json:"volume24hr"`
	Spread     JSONFloat `json:"spread"`
}

// Tag represents a category tag.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// JSONFloat handles both numeric and string JSON values.
type JSONFloat float64

func (j *JSONFloat) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*j = JSONFloat(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*j = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*j = JSONFloat(f)
	return nil
}

func (j JSONFloat) Float64() float64 {
	return float64(j)
}

// EventsFilter contains filter parameters for listing events.
type EventsFilter struct {
	Active    *bool
	Closed    *bool
	Archived  *bool
	Slug      string
	Tag       string
	TagID     string
	StartDate string // ISO 8601, maps to start_date_min
	EndDate   string // ISO 8601, maps to end_date_max
	Limit     int
	Offset    int
	Order     string
}

// BoolPtr returns a pointer to a bool.
func BoolPtr(b bool) *bool {
	return &b
}

// IsTradeable returns true if the event can be traded on.
func (e *Event) IsTradeable() bool {
	return e.Active && !e.Closed && !e.Archived && !e.Restricted
}

// TagLabels returns the event's tag labels.
func (e *Event) TagLabels() []string {
	labels := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		labels = append(labels, t.Label)
	}
	return labels
}

// ClobTokenIDs returns the parsed token IDs.
func (m *Market) ClobTokenIDs() []string {
	var ids []string
	if m.ClobTokenIDsRaw == "" {
		return ids
	}
	json.Unmarshal([]byte(m.ClobTokenIDsRaw), &ids)
	return ids
}

// Outcomes returns the parsed outcomes.
func (m *Market) Outcomes() []string {
	var outcomes []string
	if m.OutcomesRaw == "" {
		return outcomes
	}
	json.Unmarshal([]byte(m.OutcomesRaw), &outcomes)
	return outcomes
}

// YesTokenID returns the token ID for the YES outcome.
func (m *Market) YesTokenID() string {
	ids := m.ClobTokenIDs()
	if len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// NoTokenID returns the token ID for the NO outcome.
func (m *Market) NoTokenID() string {
	ids := m.ClobTokenIDs()
	if len(ids) > 1 {
		return ids[1]
	}
	return ""
}

// YesPrice returns the current YES price, or 0 when unavailable.
func (m *Market) YesPrice() float64 {
	if m.OutcomePricesRaw == "" {
		return 0
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePricesRaw), &prices); err != nil || len(prices) == 0 {
		return 0
	}
	p, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return 0
	}
	return p
}

// GameStartTime parses the gameStartTime field, when present.
func (m *Market) GameStartTime() (time.Time, bool) {
	if m.GameStart == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, m.GameStart)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
