package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/edge"
	"github.com/phenomenon0/edgeboard/pkg/oddsmath"
	"github.com/phenomenon0/edgeboard/pkg/scan"
	"github.com/phenomenon0/edgeboard/pkg/store"
	"github.com/phenomenon0/edgeboard/pkg/watch"
)

// ScanEdgesRequest parameterizes one edge scan.
type ScanEdgesRequest struct {
	Sports        []string `json:"sports"`
	WindowHours   int      `json:"windowHours"`
	Bankroll      float64  `json:"bankroll"`
	KellyFraction float64  `json:"kellyFraction"`
	MinEdgePct    float64  `json:"minEdgePct"`
}

// ScanEdgesSummary reports one edge scan.
type ScanEdgesSummary struct {
	MarketsScanned int            `json:"marketsScanned"`
	Matched        int            `json:"matched"`
	Signals        []*edge.Signal `json:"signals"`
	Decisions      map[string]int `json:"decisions"`
	Analysis       string         `json:"analysis"`
	DurationMs     int64          `json:"durationMs"`
}

// ScanEdges joins fresh cached prediction-market prices against
// de-vigged bookmaker fair probabilities and scores every positive
// discrepancy. Signals are persisted, broadcast, and published; markets
// without a fresh price or a matching book line are skipped.
func (p *Pipeline) ScanEdges(ctx context.Context, req ScanEdgesRequest) ScanEdgesSummary {
	started := time.Now()
	now := started.UTC()

	windowHours := req.WindowHours
	if windowHours <= 0 {
		windowHours = 48
	}
	bankroll := req.Bankroll
	if bankroll <= 0 {
		bankroll = 10000
	}
	kellyFraction := req.KellyFraction
	if kellyFraction <= 0 {
		kellyFraction = 0.25
	}
	minEdge := req.MinEdgePct
	if minEdge <= 0 {
		minEdge = 1.5
	}
	scorer := edge.NewScorer(bankroll, kellyFraction, minEdge)

	allow := make(map[string]bool, len(req.Sports))
	for _, s := range req.Sports {
		allow[strings.ToLower(strings.TrimSpace(s))] = true
	}

	summary := ScanEdgesSummary{Decisions: make(map[string]int)}

	// Only prices refreshed inside the stale window participate.
	markets, err := p.storage.ListFreshMarkets(ctx, now, 2*time.Hour, windowHours)
	if err != nil {
		p.log.Error("list fresh markets failed", zap.Error(err))
		return summary
	}

	upcoming, err := p.storage.ListUpcomingEvents(ctx, now, windowHours)
	if err != nil {
		p.log.Error("list upcoming events failed", zap.Error(err))
		return summary
	}

	watched := p.openWatchIndex(ctx)
	mappings := p.teamMappings(ctx)

	for i := range markets {
		m := &markets[i]
		if len(allow) > 0 && !allow[m.Sport] {
			continue
		}
		if m.Kind != string(scan.MarketKindMoneyline) {
			continue
		}
		summary.MarketsScanned++

		ev := matchEvent(m, upcoming, mappings)
		if ev == nil {
			continue
		}

		selection, opponent := selectionFor(m, ev, mappings)
		if selection == "" {
			continue
		}

		h2h, err := p.storage.LatestH2HPrices(ctx, ev.ID)
		if err != nil {
			p.log.Warn("h2h lookup failed", zap.String("event", ev.ID), zap.Error(err))
			continue
		}

		bestOdds := 0.0
		bestBook := ""
		fairSum := 0.0
		books := 0
		for book, odds := range h2h {
			oddsSel, okSel := odds[selection]
			oddsOpp, okOpp := odds[opponent]
			if !okSel || !okOpp || oddsSel <= 1 || oddsOpp <= 1 {
				continue
			}
			fairSum += oddsmath.FairProbFromPair(oddsSel, oddsOpp)
			books++
			if oddsSel > bestOdds {
				bestOdds = oddsSel
				bestBook = book
			}
		}
		if books == 0 {
			continue
		}
		summary.Matched++

		sig, ok := scorer.Score(edge.Input{
			ConditionID:  m.ConditionID,
			Slug:         m.Slug,
			Question:     m.Question,
			Sport:        m.Sport,
			MatchKey:     m.Sport + "_" + m.EventDate.Format("2006-01-02") + "_" + m.NormHome + "_" + m.NormAway,
			Selection:    selection,
			Bookmaker:    bestBook,
			MatchedBooks: books,
			BookOdds:     bestOdds,
			FairProb:     fairSum / float64(books),
			PolyPrice:    m.YesPrice,
			PriceAge:     now.Sub(m.UpdatedAt),
			Volume:       m.Volume,
			EventTime:    m.EventDate,
		}, now)
		if !ok {
			continue
		}

		if err := p.storage.InsertSignal(ctx, sig); err != nil {
			p.log.Warn("signal persist failed", zap.String("condition", m.ConditionID), zap.Error(err))
		}
		p.broadcastSignal(sig)
		p.confirmWatched(ctx, watched, m.ConditionID, now)
		if p.met != nil {
			p.met.SignalsTotal.WithLabelValues(string(sig.Decision)).Inc()
		}

		summary.Signals = append(summary.Signals, sig)
		summary.Decisions[string(sig.Decision)]++
	}

	if p.pub != nil && len(summary.Signals) > 0 {
		if err := p.pub.PublishBatch(ctx, summary.Signals); err != nil {
			p.log.Warn("signal publish failed", zap.Error(err))
		}
	}

	summary.Analysis = BuildAnalysisBlock(summary.Signals, now)
	summary.DurationMs = time.Since(started).Milliseconds()

	if p.met != nil {
		p.met.ScansTotal.Inc()
		p.met.ScanDuration.Observe(time.Since(started).Seconds())
	}
	p.broadcastScan(summary)

	return summary
}

// matchEvent finds the bookmaker event for a cached market by
// normalized team pair, in either order. Manual alias overrides apply
// to the bookmaker side; the market side was mapped at sync time.
func matchEvent(m *store.PolyMarket, upcoming []store.Event, mappings map[string]string) *store.Event {
	for i := range upcoming {
		ev := &upcoming[i]
		if ev.Sport != m.Sport {
			continue
		}
		h := applyMapping(mappings, scan.NormalizeTeam(ev.HomeTeam))
		a := applyMapping(mappings, scan.NormalizeTeam(ev.AwayTeam))
		if (scan.SameTeam(m.NormHome, h) && scan.SameTeam(m.NormAway, a)) ||
			(scan.SameTeam(m.NormHome, a) && scan.SameTeam(m.NormAway, h)) {
			return ev
		}
	}
	return nil
}

// selectionFor maps the market's subject team onto the bookmaker's team
// naming. The YES price reads as the subject team's win probability.
func selectionFor(m *store.PolyMarket, ev *store.Event, mappings map[string]string) (selection, opponent string) {
	h := applyMapping(mappings, scan.NormalizeTeam(ev.HomeTeam))
	a := applyMapping(mappings, scan.NormalizeTeam(ev.AwayTeam))
	switch {
	case scan.SameTeam(m.NormHome, h):
		return ev.HomeTeam, ev.AwayTeam
	case scan.SameTeam(m.NormHome, a):
		return ev.AwayTeam, ev.HomeTeam
	default:
		return "", ""
	}
}

func (p *Pipeline) openWatchIndex(ctx context.Context) map[string]*watchEntryRef {
	entries, err := p.storage.ListOpenWatchEntries(ctx)
	if err != nil {
		p.log.Warn("watch index load failed", zap.Error(err))
		return nil
	}
	index := make(map[string]*watchEntryRef, len(entries))
	for _, e := range entries {
		index[e.ConditionID] = &watchEntryRef{entry: e}
	}
	return index
}

func (p *Pipeline) confirmWatched(ctx context.Context, index map[string]*watchEntryRef, conditionID string, now time.Time) {
	ref, ok := index[conditionID]
	if !ok || ref.done {
		return
	}
	if !p.machine.Confirm(ref.entry, now) {
		return
	}
	ref.done = true
	if err := p.storage.UpsertWatchEntry(ctx, ref.entry); err != nil {
		p.log.Warn("watch confirm persist failed", zap.String("condition", conditionID), zap.Error(err))
	}
	p.broadcastWatch(conditionID, string(ref.entry.State))
}

type watchEntryRef struct {
	entry *watch.Entry
	done  bool
}
