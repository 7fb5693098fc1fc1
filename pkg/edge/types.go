// Package edge scores prediction-market prices against bookmaker odds
// and turns positive discrepancies into actionable signals.
package edge

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Urgency tiers by time to event start.
type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL" // under 2 hours
	UrgencyHigh     Urgency = "HIGH"     // under 6 hours
	UrgencyMedium   Urgency = "MEDIUM"   // under 24 hours
	UrgencyLow      Urgency = "LOW"
)

// Decision is the recommendation attached to a signal.
type Decision string

const (
	DecisionStrongBet Decision = "STRONG_BET"
	DecisionBet       Decision = "BET"
	DecisionMarginal  Decision = "MARGINAL"
	DecisionNoBet     Decision = "NO_BET"
)

// Signal is one scored edge between a prediction market and a book.
type Signal struct {
	ID          uuid.UUID `json:"id"`
	ConditionID string    `json:"conditionId"`
	Slug        string    `json:"slug"`
	Question    string    `json:"question"`
	Sport       string    `json:"sport"`
	MatchKey    string    `json:"matchKey"`
	Selection   string    `json:"selection"`

	Bookmaker    string  `json:"bookmaker"`
	MatchedBooks int     `json:"matchedBooks"`
	BookOdds     float64 `json:"bookOdds"` // best decimal odds found
	FairProb     float64 `json:"fairProb"` // de-vigged book probability
	PolyPrice    float64 `json:"polyPrice"`

	GrossEdgePct float64         `json:"grossEdgePct"`
	NetEdgePct   float64         `json:"netEdgePct"`
	EVPer100     float64         `json:"evPer100"`
	KellyStake   decimal.Decimal `json:"kellyStake"`

	Confidence int      `json:"confidence"`
	Urgency    Urgency  `json:"urgency"`
	Decision   Decision `json:"decision"`

	EventTime time.Time `json:"eventTime"`
	CreatedAt time.Time `json:"createdAt"`
}

// UrgencyFor maps hours until event start to an urgency tier.
func UrgencyFor(hoursUntil float64) Urgency {
	switch {
	case hoursUntil < 2:
		return UrgencyCritical
	case hoursUntil < 6:
		return UrgencyHigh
	case hoursUntil < 24:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// DecisionFor maps net edge and confidence to a recommendation.
func DecisionFor(netEdgePct float64, confidence int) Decision {
	switch {
	case netEdgePct >= 5 && confidence >= 70:
		return DecisionStrongBet
	case netEdgePct >= 3 && confidence >= 50:
		return DecisionBet
	case netEdgePct >= 1.5:
		return DecisionMarginal
	default:
		return DecisionNoBet
	}
}
