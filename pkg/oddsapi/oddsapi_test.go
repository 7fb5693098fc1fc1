package oddsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetOdds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sports/americanfootball_nfl/odds" {
			t.Errorf("Expected odds path, got %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("apiKey") != "test-key" {
			t.Errorf("apiKey = %s", query.Get("apiKey"))
		}
		if query.Get("regions") != "us" {
			t.Errorf("regions = %s", query.Get("regions"))
		}
		if query.Get("markets") != "h2h,spreads" {
			t.Errorf("markets = %s", query.Get("markets"))
		}
		if query.Get("oddsFormat") != "decimal" {
			t.Errorf("oddsFormat = %s", query.Get("oddsFormat"))
		}

		w.Header().Set("X-Requests-Remaining", "482")
		games := []Game{
			{
				ID:           "g1",
				SportKey:     "americanfootball_nfl",
				CommenceTime: time.Date(2026, 1, 25, 23, 0, 0, 0, time.UTC),
				HomeTeam:     "Kansas City Chiefs",
				AwayTeam:     "Buffalo Bills",
				Bookmakers: []Bookmaker{
					{
						Key: "draftkings",
						Markets: []Market{
							{
								Key: "h2h",
								Outcomes: []Outcome{
									{Name: "Kansas City Chiefs", Price: 1.87},
									{Name: "Buffalo Bills", Price: 1.95},
								},
							},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(games)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000, 1000))

	games, err := client.GetOdds(context.Background(), OddsRequest{
		SportKey: "americanfootball_nfl",
		Markets:  "h2h,spreads",
	})
	if err != nil {
		t.Fatalf("GetOdds failed: %v", err)
	}

	if len(games) != 1 {
		t.Fatalf("Expected 1 game, got %d", len(games))
	}
	if games[0].HomeTeam != "Kansas City Chiefs" {
		t.Errorf("HomeTeam = %s", games[0].HomeTeam)
	}

	odds := games[0].Bookmakers[0].H2HOdds()
	if odds["Buffalo Bills"] != 1.95 {
		t.Errorf("Bills odds = %v, want 1.95", odds["Buffalo Bills"])
	}

	if client.RemainingQuota() != 482 {
		t.Errorf("RemainingQuota = %d, want 482", client.RemainingQuota())
	}
}

func TestGetOddsRequiresSportKey(t *testing.T) {
	client := NewClient("test-key")
	if _, err := client.GetOdds(context.Background(), OddsRequest{}); err == nil {
		t.Error("Expected error for missing sport key")
	}
}

func TestListSports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sports" {
			t.Errorf("Expected /sports, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Sport{
			{Key: "basketball_nba", Title: "NBA", Active: true},
			{Key: "icehockey_nhl", Title: "NHL", Active: true},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000, 1000))

	sports, err := client.ListSports(context.Background())
	if err != nil {
		t.Fatalf("ListSports failed: %v", err)
	}
	if len(sports) != 2 {
		t.Errorf("Expected 2 sports, got %d", len(sports))
	}
	if sports[0].Key != "basketball_nba" {
		t.Errorf("sports[0].Key = %s", sports[0].Key)
	}
}

func TestH2HOddsMissingMarket(t *testing.T) {
	b := Bookmaker{
		Key: "fanduel",
		Markets: []Market{
			{Key: "spreads", Outcomes: []Outcome{{Name: "A", Price: 1.91, Point: -3.5}}},
		},
	}
	if odds := b.H2HOdds(); odds != nil {
		t.Errorf("Expected nil for book without h2h, got %v", odds)
	}
}
