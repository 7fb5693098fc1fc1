package store

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBetValidate(t *testing.T) {
	valid := Bet{
		EventRef:  "nfl_2026-01-25_chiefs_bills",
		Selection: "Kansas City Chiefs",
		Stake:     decimal.NewFromInt(100),
		Price:     1.87,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid bet rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Bet)
	}{
		{"missing event ref", func(b *Bet) { b.EventRef = "" }},
		{"missing selection", func(b *Bet) { b.Selection = "" }},
		{"zero stake", func(b *Bet) { b.Stake = decimal.Zero }},
		{"negative stake", func(b *Bet) { b.Stake = decimal.NewFromInt(-5) }},
		{"odds at 1.0", func(b *Bet) { b.Price = 1.0 }},
		{"bad outcome", func(b *Bet) { b.Outcome = "maybe" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			if err := b.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
