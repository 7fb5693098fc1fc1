package scan

import "testing"

func TestDetectSport(t *testing.T) {
	tests := []struct {
		name     string
		question string
		slug     string
		tags     []string
		want     Sport
	}{
		{
			name:     "tag wins",
			question: "Will the Chiefs beat the Bills?",
			slug:     "kc-buf-2026-01-25",
			tags:     []string{"NFL", "Sports"},
			want:     SportNFL,
		},
		{
			name:     "slug keyword",
			question: "Lakers vs. Celtics",
			slug:     "nba-lal-bos-2026-02-01-lal",
			want:     SportNBA,
		},
		{
			name:     "question keyword",
			question: "Will Arsenal win the Premier League match tonight?",
			slug:     "ars-che-match",
			want:     SportSoccer,
		},
		{
			name:     "longer keyword beats shorter",
			question: "Premier League: Arsenal vs Chelsea",
			slug:     "",
			tags:     []string{"Premier League"},
			want:     SportSoccer,
		},
		{
			name:     "no signal",
			question: "Will it rain in London tomorrow?",
			slug:     "rain-london",
			want:     SportUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSport(tt.question, tt.slug, tt.tags); got != tt.want {
				t.Errorf("DetectSport() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyMarket(t *testing.T) {
	tests := []struct {
		name         string
		question     string
		providerType string
		wantKind     MarketKind
		wantLine     float64
	}{
		{"provider moneyline", "Chiefs vs Bills", "moneyline", MarketKindMoneyline, 0},
		{"provider h2h", "Chiefs vs Bills", "h2h", MarketKindMoneyline, 0},
		{"provider totals", "Over 47.5 points?", "totals", MarketKindTotal, 47.5},
		{"spread by points", "Will the Chiefs win by 7+ points?", "", MarketKindSpread, 7},
		{"cover the spread", "Will Kansas City cover the spread?", "", MarketKindSpread, 0},
		{"total over under", "Will the game go over 47.5?", "", MarketKindTotal, 47.5},
		{"combined score", "Will the combined score exceed expectations?", "", MarketKindTotal, 0},
		{"player prop", "Will Mahomes score 3+ points in the first quarter?", "", MarketKindProp, 0},
		{"prop rebounds", "Will Jokic record 12+ rebounds tonight?", "", MarketKindProp, 0},
		{"moneyline beat", "Will the Chiefs beat the Bills?", "", MarketKindMoneyline, 0},
		{"futures champion", "Will the Chiefs win the Super Bowl championship?", "", MarketKindFutures, 0},
		{"futures mvp", "Will Mahomes win MVP?", "", MarketKindFutures, 0},
		{"futures playoffs", "Will the Jets make it to make the playoffs?", "", MarketKindFutures, 0},
		{"unclassifiable", "Temperature in Kansas City", "", MarketKindOther, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, line := ClassifyMarket(tt.question, tt.providerType)
			if kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
			if line != tt.wantLine {
				t.Errorf("line = %v, want %v", line, tt.wantLine)
			}
		})
	}
}

func TestIsFutures(t *testing.T) {
	futures := []string{
		"Will the Lakers win the NBA championship?",
		"NFL MVP 2026",
		"Will Leeds be relegated?",
		"Golden Boot winner",
	}
	for _, q := range futures {
		if !IsFutures(q) {
			t.Errorf("IsFutures(%q) = false, want true", q)
		}
	}

	games := []string{
		"Will the Chiefs beat the Bills?",
		"Lakers vs. Celtics: over 220.5 points?",
	}
	for _, q := range games {
		if IsFutures(q) {
			t.Errorf("IsFutures(%q) = true, want false", q)
		}
	}
}

func TestMarketKindIsTradeable(t *testing.T) {
	if !MarketKindMoneyline.IsTradeable() || !MarketKindSpread.IsTradeable() || !MarketKindTotal.IsTradeable() {
		t.Error("game markets should be tradeable")
	}
	if MarketKindFutures.IsTradeable() || MarketKindProp.IsTradeable() || MarketKindOther.IsTradeable() {
		t.Error("futures/props should not be tradeable")
	}
}
