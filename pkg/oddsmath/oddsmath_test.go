package oddsmath

import (
	"math"
	"testing"
)

func almost(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestImpliedProb(t *testing.T) {
	tests := []struct {
		odds float64
		want float64
	}{
		{2.00, 0.50},
		{2.10, 0.47619},
		{1.50, 0.66667},
		{4.00, 0.25},
		{1.00, 0}, // invalid
		{0.80, 0}, // invalid
	}

	for _, tt := range tests {
		got := ImpliedProb(tt.odds)
		if !almost(got, tt.want, 0.0001) {
			t.Errorf("ImpliedProb(%.2f) = %.5f, want %.5f", tt.odds, got, tt.want)
		}
	}
}

func TestEV100(t *testing.T) {
	// odds=2.10, p=55% -> EV = 0.55*1.10*100 - 0.45*100 = +15.50
	got := EV100(0.55, 2.10)
	if !almost(got, 15.50, 0.01) {
		t.Errorf("EV100(0.55, 2.10) = %.2f, want 15.50", got)
	}

	// Break-even: p = 1/o
	if ev := EV100(0.50, 2.00); !almost(ev, 0, 0.0001) {
		t.Errorf("break-even EV = %.4f, want 0", ev)
	}

	// Negative EV
	if ev := EV100(0.40, 2.00); ev >= 0 {
		t.Errorf("EV100(0.40, 2.00) = %.2f, want negative", ev)
	}
}

func TestEdgePct(t *testing.T) {
	tests := []struct {
		name string
		prob float64
		odds float64
		want float64
	}{
		{"positive edge", 0.55, 2.10, (0.55 - 1.0/2.10) * 100},
		{"no edge at fair price", 0.50, 2.00, 0},
		{"negative edge", 0.45, 2.00, -5},
		{"invalid odds", 0.50, 1.00, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EdgePct(tt.prob, tt.odds)
			if !almost(got, tt.want, 0.001) {
				t.Errorf("EdgePct(%.2f, %.2f) = %.3f, want %.3f", tt.prob, tt.odds, got, tt.want)
			}
		})
	}
}

func TestKellyFraction(t *testing.T) {
	// bankroll=$10000, odds=2.50, prob=45%: b=1.5, f* = (1.5*0.45 - 0.55)/1.5 = 8.33%
	f := KellyFraction(0.45, 2.50)
	if !almost(f, 0.0833, 0.001) {
		t.Errorf("KellyFraction(0.45, 2.50) = %.4f, want ~0.0833", f)
	}

	// Negative edge produces negative Kelly
	if f := KellyFraction(0.30, 2.00); f >= 0 {
		t.Errorf("KellyFraction(0.30, 2.00) = %.4f, want negative", f)
	}
}

func TestKellyStake(t *testing.T) {
	// fraction=0.25, bankroll=$10000 -> stake = 0.0833 * 0.25 * 10000 = ~$208
	stake := KellyStake(0.45, 2.50, 0.25, 10000)
	if !almost(stake, 208.33, 0.5) {
		t.Errorf("KellyStake = %.2f, want ~208.33", stake)
	}

	// No-edge bets never produce a stake
	if stake := KellyStake(0.30, 2.00, 0.25, 10000); stake != 0 {
		t.Errorf("KellyStake with negative edge = %.2f, want 0", stake)
	}
}

func TestRemoveVig(t *testing.T) {
	fair := RemoveVig([]float64{0.55, 0.50})
	sum := fair[0] + fair[1]
	if !almost(sum, 1.0, 0.0001) {
		t.Errorf("fair probs sum = %.4f, want 1.0", sum)
	}
	if !almost(fair[0], 0.55/1.05, 0.0001) {
		t.Errorf("fair[0] = %.4f, want %.4f", fair[0], 0.55/1.05)
	}
}

func TestFairProbFromPair(t *testing.T) {
	// Symmetric book: both sides at 1.90 -> fair 50/50
	p := FairProbFromPair(1.90, 1.90)
	if !almost(p, 0.50, 0.0001) {
		t.Errorf("FairProbFromPair(1.90, 1.90) = %.4f, want 0.50", p)
	}

	// Favourite side keeps the larger share
	p = FairProbFromPair(1.50, 2.60)
	if p <= 0.5 {
		t.Errorf("favourite fair prob = %.4f, want > 0.5", p)
	}
}

func TestDecimalAmericanRoundTrip(t *testing.T) {
	tests := []struct {
		american float64
		decimal  float64
	}{
		{+110, 2.10},
		{-110, 1.909090},
		{+100, 2.00},
		{-200, 1.50},
	}

	for _, tt := range tests {
		d := DecimalFromAmerican(tt.american)
		if !almost(d, tt.decimal, 0.0001) {
			t.Errorf("DecimalFromAmerican(%+.0f) = %.4f, want %.4f", tt.american, d, tt.decimal)
		}
		a := AmericanFromDecimal(d)
		if !almost(a, tt.american, 0.01) {
			t.Errorf("round trip %+.0f -> %.4f -> %+.2f", tt.american, d, a)
		}
	}
}
