package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/watch"
)

// WatchTickSummary reports one watch-machine advance.
type WatchTickSummary struct {
	Tracked   int `json:"tracked"`
	Observed  int `json:"observed"`
	Activated int `json:"activated"`
	Dropped   int `json:"dropped"`
	Signals   int `json:"signals"`
	Started   int `json:"started"`
}

// WatchTick starts tracking any fresh cached market not yet watched,
// feeds the latest price into every open entry, and closes windows for
// markets whose event has started. Confirmation happens during edge
// scans when a bookmaker match appears.
func (p *Pipeline) WatchTick(ctx context.Context) WatchTickSummary {
	now := time.Now().UTC()
	var summary WatchTickSummary

	// Begin watching newly cached markets.
	fresh, err := p.storage.ListFreshMarkets(ctx, now, 2*time.Hour, 48)
	if err != nil {
		p.log.Warn("fresh markets load failed", zap.Error(err))
	} else {
		for i := range fresh {
			m := &fresh[i]
			if m.YesPrice <= 0 {
				continue
			}
			entry := watch.NewEntry(m.ConditionID, m.YesPrice, now)
			if err := p.storage.InsertWatchEntryIfAbsent(ctx, entry); err != nil {
				p.log.Warn("watch start failed", zap.String("condition", m.ConditionID), zap.Error(err))
				continue
			}
			summary.Started++
		}
	}

	entries, err := p.storage.ListOpenWatchEntries(ctx)
	if err != nil {
		p.log.Error("open watch entries load failed", zap.Error(err))
		return summary
	}
	summary.Tracked = len(entries)

	stateCounts := make(map[watch.State]int)

	for _, e := range entries {
		m, err := p.storage.GetPolyMarket(ctx, e.ConditionID)
		if err != nil {
			p.log.Warn("watched market load failed", zap.String("condition", e.ConditionID), zap.Error(err))
			continue
		}
		if m == nil {
			// Market fell out of the cache entirely.
			p.machine.Expire(e, now)
		} else if !m.EventDate.IsZero() && !m.EventDate.After(now) {
			// Window closes when the game starts.
			p.machine.Expire(e, now)
		} else if m.YesPrice > 0 {
			before := e.State
			p.machine.Observe(e, m.YesPrice, now)
			summary.Observed++
			if before == watch.StateWatching && e.State == watch.StateActive {
				summary.Activated++
			}
		}

		switch e.State {
		case watch.StateDropped:
			summary.Dropped++
		case watch.StateSignal:
			summary.Signals++
		}

		if err := p.storage.UpsertWatchEntry(ctx, e); err != nil {
			p.log.Warn("watch persist failed", zap.String("condition", e.ConditionID), zap.Error(err))
			continue
		}
		if e.State != watch.StateWatching {
			p.broadcastWatch(e.ConditionID, string(e.State))
		}
		stateCounts[e.State]++
	}

	if p.met != nil {
		for state, n := range stateCounts {
			p.met.WatchStates.WithLabelValues(string(state)).Set(float64(n))
		}
	}

	return summary
}
