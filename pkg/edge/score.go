package edge

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/edgeboard/pkg/oddsmath"
)

// Default cost assumptions applied to gross edge. Spread is charged at
// half since only one crossing is paid.
const (
	DefaultFeePct      = 2.0
	DefaultSpreadPct   = 4.0
	DefaultSlippagePct = 0.5
)

// Scorer turns a matched market pair into a Signal.
type Scorer struct {
	Bankroll      float64
	KellyFraction float64
	MinEdgePct    float64

	FeePct      float64
	SpreadPct   float64
	SlippagePct float64
}

// NewScorer returns a Scorer with default cost assumptions.
func NewScorer(bankroll, kellyFraction, minEdgePct float64) *Scorer {
	return &Scorer{
		Bankroll:      bankroll,
		KellyFraction: kellyFraction,
		MinEdgePct:    minEdgePct,
		FeePct:        DefaultFeePct,
		SpreadPct:     DefaultSpreadPct,
		SlippagePct:   DefaultSlippagePct,
	}
}

// Input is one matched prediction-market/book pair ready for scoring.
type Input struct {
	ConditionID string
	Slug        string
	Question    string
	Sport       string
	MatchKey    string
	Selection   string

	Bookmaker    string
	MatchedBooks int
	BookOdds     float64 // best decimal odds across matched books
	FairProb     float64 // de-vigged probability for the selection

	PolyPrice float64 // YES price, the cost of the position
	PriceAge  time.Duration
	Volume    float64

	EventTime time.Time
}

// NetEdge applies fee, half spread, and slippage to a gross edge.
func (s *Scorer) NetEdge(grossEdgePct float64) float64 {
	return grossEdgePct - s.FeePct - s.SpreadPct/2 - s.SlippagePct
}

// Score computes the full signal for one matched pair. The de-vigged
// bookmaker probability is the valuation; the prediction-market price
// is what the position costs, so its reciprocal supplies the odds for
// edge, EV, and stake sizing. BookOdds and Bookmaker ride along as
// provenance. Pairs with gross edge below MinEdgePct return
// (nil, false).
func (s *Scorer) Score(in Input, now time.Time) (*Signal, bool) {
	polyOdds := oddsmath.FairOdds(in.PolyPrice)

	gross := oddsmath.EdgePct(in.FairProb, polyOdds)
	if gross < s.MinEdgePct {
		return nil, false
	}

	net := s.NetEdge(gross)
	conf := Confidence(in.PriceAge, in.Volume, in.MatchedBooks)

	hoursUntil := in.EventTime.Sub(now).Hours()

	stake := oddsmath.KellyStake(in.FairProb, polyOdds, s.KellyFraction, s.Bankroll)

	return &Signal{
		ID:           uuid.New(),
		ConditionID:  in.ConditionID,
		Slug:         in.Slug,
		Question:     in.Question,
		Sport:        in.Sport,
		MatchKey:     in.MatchKey,
		Selection:    in.Selection,
		Bookmaker:    in.Bookmaker,
		MatchedBooks: in.MatchedBooks,
		BookOdds:     in.BookOdds,
		FairProb:     in.FairProb,
		PolyPrice:    in.PolyPrice,
		GrossEdgePct: gross,
		NetEdgePct:   net,
		EVPer100:     oddsmath.EV100(in.FairProb, polyOdds),
		KellyStake:   decimal.NewFromFloat(stake).Round(2),
		Confidence:   conf,
		Urgency:      UrgencyFor(hoursUntil),
		Decision:     DecisionFor(net, conf),
		EventTime:    in.EventTime,
		CreatedAt:    now,
	}, true
}

// Confidence scores a matched pair 0 to 100 from price recency (0-40),
// traded volume (0-30), and how many books carried the market (0-30).
func Confidence(priceAge time.Duration, volume float64, matchedBooks int) int {
	score := recencyScore(priceAge) + volumeScore(volume) + bookScore(matchedBooks)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func recencyScore(age time.Duration) int {
	switch {
	case age <= 5*time.Minute:
		return 40
	case age <= 15*time.Minute:
		return 32
	case age <= time.Hour:
		return 20
	case age <= 2*time.Hour:
		return 8
	default:
		return 0
	}
}

func volumeScore(volume float64) int {
	switch {
	case volume >= 250000:
		return 30
	case volume >= 50000:
		return 24
	case volume >= 10000:
		return 16
	case volume >= 1000:
		return 8
	default:
		return 0
	}
}

func bookScore(books int) int {
	switch {
	case books >= 3:
		return 30
	case books == 2:
		return 20
	case books == 1:
		return 10
	default:
		return 0
	}
}
