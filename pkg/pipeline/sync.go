package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/oddsapi"
	"github.com/phenomenon0/edgeboard/pkg/scan"
	"github.com/phenomenon0/edgeboard/pkg/store"
)

// SyncOddsRequest selects which bookmaker odds to pull.
type SyncOddsRequest struct {
	Sports  []string `json:"sports"`
	Regions string   `json:"regions"`
	Markets []string `json:"markets"`
}

// SyncOddsSummary reports one odds sync.
type SyncOddsSummary struct {
	EventsSeen int `json:"eventsSeen"`
	Snapshots  int `json:"snapshots"`
	Errors     int `json:"errors"`
}

// SyncOdds fetches bookmaker odds per sport and writes events plus
// append-only snapshots. Games are processed in small goroutine batches;
// a failed game is counted and skipped.
func (p *Pipeline) SyncOdds(ctx context.Context, req SyncOddsRequest) SyncOddsSummary {
	markets := "h2h"
	if len(req.Markets) > 0 {
		markets = strings.Join(req.Markets, ",")
	}

	var events, snapshots, errs atomic.Int64

	for _, name := range req.Sports {
		sport := scan.Sport(strings.ToLower(strings.TrimSpace(name)))
		key := sport.OddsAPIKey()
		if key == "" {
			p.log.Warn("unknown sport, skipping", zap.String("sport", name))
			errs.Add(1)
			continue
		}

		games, err := p.odds.GetOdds(ctx, oddsapi.OddsRequest{
			SportKey:   key,
			Regions:    req.Regions,
			Markets:    markets,
			OddsFormat: "decimal",
		})
		if err != nil {
			p.log.Error("odds fetch failed", zap.String("sport", string(sport)), zap.Error(err))
			p.countSyncError("odds")
			errs.Add(1)
			continue
		}

		now := time.Now().UTC()
		runBatches(len(games), bookBatchSize, interBatchSleep, func(i int) {
			game := games[i]

			status := "upcoming"
			if game.CommenceTime.Before(now) {
				status = "live"
			}

			if err := p.storage.UpsertEvent(ctx, store.Event{
				ID:           game.ID,
				Sport:        string(sport),
				League:       scan.LeagueFor(sport),
				HomeTeam:     game.HomeTeam,
				AwayTeam:     game.AwayTeam,
				CommenceTime: game.CommenceTime,
				Status:       status,
			}); err != nil {
				p.log.Warn("upsert event failed", zap.String("event", game.ID), zap.Error(err))
				errs.Add(1)
				return
			}
			events.Add(1)

			for _, book := range game.Bookmakers {
				for _, market := range book.Markets {
					for _, outcome := range market.Outcomes {
						snap := store.Snapshot{
							EventID:    game.ID,
							Bookmaker:  book.Key,
							Market:     market.Key,
							Selection:  outcome.Name,
							Price:      outcome.Price,
							CapturedAt: now,
						}
						if err := p.storage.InsertSnapshot(ctx, snap); err != nil {
							p.log.Warn("insert snapshot failed", zap.String("event", game.ID), zap.Error(err))
							errs.Add(1)
							continue
						}
						snapshots.Add(1)
					}
				}
			}
		})
	}

	return SyncOddsSummary{
		EventsSeen: int(events.Load()),
		Snapshots:  int(snapshots.Load()),
		Errors:     int(errs.Load()),
	}
}

// SyncPolymarketRequest selects which prediction markets to cache.
type SyncPolymarketRequest struct {
	Sports      []string `json:"sports"`
	WindowHours int      `json:"windowHours"`
	MaxEvents   int      `json:"maxEvents"`
}

// SyncPolymarketSummary reports one discovery run.
type SyncPolymarketSummary struct {
	EventsSeen    int `json:"eventsSeen"`
	MarketsCached int `json:"marketsCached"`
	Skipped       int `json:"skipped"`
	Failures      int `json:"failures"`
}

// SyncPolymarket paginates active prediction-market events, classifies
// each market, extracts and normalizes teams, resolves the event date,
// and caches the tradeable ones. Everything that cannot be classified or
// dated lands in match_failures for inspection.
func (p *Pipeline) SyncPolymarket(ctx context.Context, req SyncPolymarketRequest) SyncPolymarketSummary {
	now := time.Now().UTC()
	windowHours := req.WindowHours
	if windowHours <= 0 {
		windowHours = 48
	}

	allow := make(map[scan.Sport]bool, len(req.Sports))
	for _, s := range req.Sports {
		allow[scan.Sport(strings.ToLower(strings.TrimSpace(s)))] = true
	}

	events, err := p.gamma.ListActiveSportsEvents(ctx, now, windowHours, req.MaxEvents)
	if err != nil {
		p.log.Error("polymarket discovery failed", zap.Error(err))
		p.countSyncError("polymarket")
		return SyncPolymarketSummary{Failures: 1}
	}

	schedule := p.scheduleLookup(ctx, now, windowHours)
	mappings := p.teamMappings(ctx)

	var summary SyncPolymarketSummary
	summary.EventsSeen = len(events)

	for i := range events {
		ev := &events[i]
		for j := range ev.Markets {
			parsed, reason := parseMarket(ev, &ev.Markets[j], now, schedule)
			if reason != "" {
				if reasonIsFailure(reason) {
					summary.Failures++
					if err := p.storage.RecordMatchFailure(ctx, ev.Slug, ev.Markets[j].Question, reason); err != nil {
						p.log.Warn("record match failure failed", zap.Error(err))
					}
				} else {
					summary.Skipped++
				}
				continue
			}

			if len(allow) > 0 && !allow[parsed.Sport] {
				summary.Skipped++
				continue
			}
			parsed.NormHome = applyMapping(mappings, parsed.NormHome)
			parsed.NormAway = applyMapping(mappings, parsed.NormAway)
			if !scan.InWindow(parsed.EventDate, now, windowHours) {
				summary.Skipped++
				continue
			}

			if err := p.storage.UpsertPolyMarket(ctx, store.PolyMarket{
				ConditionID: parsed.ConditionID,
				Slug:        parsed.Slug,
				Question:    parsed.Question,
				RawHome:     parsed.HomeTeam,
				RawAway:     parsed.AwayTeam,
				NormHome:    parsed.NormHome,
				NormAway:    parsed.NormAway,
				Sport:       string(parsed.Sport),
				League:      parsed.League,
				Kind:        string(parsed.Kind),
				YesTokenID:  parsed.YesTokenID,
				NoTokenID:   parsed.NoTokenID,
				YesPrice:    parsed.YesPrice,
				Volume:      parsed.Volume,
				Liquidity:   parsed.Liquidity,
				EventDate:   parsed.EventDate,
				DateSource:  string(parsed.DateSource),
			}); err != nil {
				p.log.Warn("upsert poly market failed", zap.String("condition", parsed.ConditionID), zap.Error(err))
				summary.Failures++
				continue
			}
			summary.MarketsCached++
		}
	}

	return summary
}

// scheduleLookup builds a normalized team-pair index over the bookmaker
// schedule, used as the last rung of the date-resolution cascade.
func (p *Pipeline) scheduleLookup(ctx context.Context, now time.Time, windowHours int) scan.ScheduleLookup {
	upcoming, err := p.storage.ListUpcomingEvents(ctx, now, windowHours)
	if err != nil {
		p.log.Warn("schedule load failed", zap.Error(err))
		return func(string, string) (time.Time, bool) { return time.Time{}, false }
	}

	index := make(map[string]time.Time, len(upcoming)*2)
	for _, ev := range upcoming {
		h := scan.NormalizeTeam(ev.HomeTeam)
		a := scan.NormalizeTeam(ev.AwayTeam)
		index[h+"|"+a] = ev.CommenceTime
		index[a+"|"+h] = ev.CommenceTime
	}

	return func(normHome, normAway string) (time.Time, bool) {
		ts, ok := index[normHome+"|"+normAway]
		return ts, ok
	}
}

// teamMappings loads manual alias overrides; a load failure degrades
// to built-in normalization only.
func (p *Pipeline) teamMappings(ctx context.Context) map[string]string {
	mappings, err := p.storage.ListTeamMappings(ctx)
	if err != nil {
		p.log.Warn("team mappings load failed", zap.Error(err))
		return nil
	}
	return mappings
}

func applyMapping(mappings map[string]string, norm string) string {
	if canon, ok := mappings[norm]; ok {
		return canon
	}
	return norm
}

func (p *Pipeline) countSyncError(stage string) {
	if p.met != nil {
		p.met.SyncErrorsTotal.WithLabelValues(stage).Inc()
	}
}
