// Package oddsmath provides pure odds conversion and valuation math.
// All probabilities are expressed in [0, 1], edges in percent.
package oddsmath

import "math"

// ImpliedProb returns the probability implied by decimal odds.
// Returns 0 for odds <= 1.
func ImpliedProb(decimalOdds float64) float64 {
	if decimalOdds <= 1 {
		return 0
	}
	return 1 / decimalOdds
}

// DecimalFromAmerican converts American odds to decimal odds.
func DecimalFromAmerican(american float64) float64 {
	if american == 0 {
		return 0
	}
	if american > 0 {
		return 1 + american/100
	}
	return 1 + 100/math.Abs(american)
}

// AmericanFromDecimal converts decimal odds to American odds.
func AmericanFromDecimal(decimalOdds float64) float64 {
	if decimalOdds <= 1 {
		return 0
	}
	if decimalOdds >= 2 {
		return (decimalOdds - 1) * 100
	}
	return -100 / (decimalOdds - 1)
}

// EdgePct returns the edge percentage for a win probability against
// decimal odds: (p - 1/o) * 100.
func EdgePct(prob, decimalOdds float64) float64 {
	if decimalOdds <= 1 || prob <= 0 {
		return 0
	}
	return (prob - ImpliedProb(decimalOdds)) * 100
}

// EV100 returns the expected value of a $100 stake at decimal odds o
// with win probability p: p*(o-1)*100 - (1-p)*100.
func EV100(prob, decimalOdds float64) float64 {
	if decimalOdds <= 1 {
		return 0
	}
	return prob*(decimalOdds-1)*100 - (1-prob)*100
}

// KellyFraction returns the full Kelly fraction f* = (b*p - q) / b
// where b = o-1 and q = 1-p. Negative values indicate no bet.
func KellyFraction(prob, decimalOdds float64) float64 {
	b := decimalOdds - 1
	if b <= 0 {
		return 0
	}
	return (b*prob - (1 - prob)) / b
}

// KellyStake returns the suggested stake for a bankroll using
// fractional Kelly: max(0, f*) * fraction * bankroll.
func KellyStake(prob, decimalOdds, fraction, bankroll float64) float64 {
	f := KellyFraction(prob, decimalOdds)
	if f <= 0 {
		return 0
	}
	return f * fraction * bankroll
}

// RemoveVig converts a set of implied probabilities (which sum above 1
// because of the bookmaker margin) to fair probabilities using
// proportional normalization.
func RemoveVig(implied []float64) []float64 {
	var sum float64
	for _, p := range implied {
		sum += p
	}
	fair := make([]float64, len(implied))
	if sum == 0 {
		return fair
	}
	for i, p := range implied {
		fair[i] = p / sum
	}
	return fair
}

// FairProbFromPair de-vigs a two-way market and returns the fair
// probability of the first selection.
func FairProbFromPair(oddsA, oddsB float64) float64 {
	impA := ImpliedProb(oddsA)
	impB := ImpliedProb(oddsB)
	if impA+impB == 0 {
		return 0
	}
	return impA / (impA + impB)
}

// FairOdds returns the decimal odds implied by a probability.
func FairOdds(prob float64) float64 {
	if prob <= 0 {
		return 0
	}
	return 1 / prob
}
