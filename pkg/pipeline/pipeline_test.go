package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/cache"
	"github.com/phenomenon0/edgeboard/pkg/edge"
	"github.com/phenomenon0/edgeboard/pkg/oddsapi"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/clob"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/gamma"
	"github.com/phenomenon0/edgeboard/pkg/store"
	"github.com/phenomenon0/edgeboard/pkg/watch"
)

// --- fakes ---

type fakeStorage struct {
	mu           sync.Mutex
	events       map[string]store.Event
	snapshots    []store.Snapshot
	polys        map[string]store.PolyMarket
	staleTokens  []string
	priceUpdates map[string]float64
	failures     []string
	signals      []*edge.Signal
	watchEntries map[string]*watch.Entry
	freshMarkets []store.PolyMarket
	upcoming     []store.Event
	h2h          map[string]map[string]map[string]float64
	teamMappings map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		events:       make(map[string]store.Event),
		polys:        make(map[string]store.PolyMarket),
		priceUpdates: make(map[string]float64),
		watchEntries: make(map[string]*watch.Entry),
		h2h:          make(map[string]map[string]map[string]float64),
	}
}

func (f *fakeStorage) UpsertEvent(_ context.Context, e store.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = e
	return nil
}

func (f *fakeStorage) InsertSnapshot(_ context.Context, snap store.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeStorage) ListUpcomingEvents(_ context.Context, _ time.Time, _ int) ([]store.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upcoming, nil
}

func (f *fakeStorage) LatestH2HPrices(_ context.Context, eventID string) (map[string]map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.h2h[eventID], nil
}

func (f *fakeStorage) UpsertPolyMarket(_ context.Context, m store.PolyMarket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polys[m.ConditionID] = m
	return nil
}

func (f *fakeStorage) GetPolyMarket(_ context.Context, conditionID string) (*store.PolyMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.polys[conditionID]; ok {
		return &m, nil
	}
	return nil, nil
}

func (f *fakeStorage) UpdatePolyPrice(_ context.Context, yesTokenID string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceUpdates[yesTokenID] = price
	return nil
}

func (f *fakeStorage) ListStaleTokens(_ context.Context, _ time.Duration, _ int) ([]string, error) {
	return f.staleTokens, nil
}

func (f *fakeStorage) ListFreshMarkets(_ context.Context, _ time.Time, _ time.Duration, _ int) ([]store.PolyMarket, error) {
	return f.freshMarkets, nil
}

func (f *fakeStorage) ListTeamMappings(_ context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teamMappings, nil
}

func (f *fakeStorage) RecordMatchFailure(_ context.Context, _, _, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, reason)
	return nil
}

func (f *fakeStorage) InsertSignal(_ context.Context, sig *edge.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeStorage) UpsertWatchEntry(_ context.Context, e *watch.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.watchEntries[e.ConditionID] = &cp
	return nil
}

func (f *fakeStorage) InsertWatchEntryIfAbsent(_ context.Context, e *watch.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchEntries[e.ConditionID]; !ok {
		cp := *e
		f.watchEntries[e.ConditionID] = &cp
	}
	return nil
}

func (f *fakeStorage) ListOpenWatchEntries(_ context.Context) ([]*watch.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []*watch.Entry
	for _, e := range f.watchEntries {
		if !e.State.Terminal() {
			cp := *e
			open = append(open, &cp)
		}
	}
	return open, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]cache.Entry)}
}

func (f *fakeCache) Set(_ context.Context, tokenID string, price float64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[tokenID] = cache.Entry{Price: price, UpdatedAt: now}
	return nil
}

func (f *fakeCache) Get(_ context.Context, tokenID string, now time.Time) (cache.Entry, cache.Freshness, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[tokenID]
	if !ok {
		return cache.Entry{}, cache.Dead, false, nil
	}
	return e, cache.Classify(e.Age(now)), true, nil
}

type fakeHub struct {
	mu      sync.Mutex
	signals int
	prices  int
	watches map[string]string
	scans   int
}

func newFakeHub() *fakeHub { return &fakeHub{watches: make(map[string]string)} }

func (f *fakeHub) BroadcastSignal(interface{}) { f.mu.Lock(); f.signals++; f.mu.Unlock() }
func (f *fakeHub) BroadcastPrice(string, float64) {
	f.mu.Lock()
	f.prices++
	f.mu.Unlock()
}
func (f *fakeHub) BroadcastWatch(id, state string) {
	f.mu.Lock()
	f.watches[id] = state
	f.mu.Unlock()
}
func (f *fakeHub) BroadcastScan(interface{}) { f.mu.Lock(); f.scans++; f.mu.Unlock() }

type fakePub struct {
	mu   sync.Mutex
	sigs []*edge.Signal
}

func (f *fakePub) PublishBatch(_ context.Context, sigs []*edge.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sigs = append(f.sigs, sigs...)
	return nil
}

type fakeOdds struct {
	games []oddsapi.Game
}

func (f *fakeOdds) GetOdds(_ context.Context, _ oddsapi.OddsRequest) ([]oddsapi.Game, error) {
	return f.games, nil
}

type fakeGamma struct {
	events []gamma.Event
}

func (f *fakeGamma) ListActiveSportsEvents(_ context.Context, _ time.Time, _, _ int) ([]gamma.Event, error) {
	return f.events, nil
}

type fakeClob struct {
	prices map[string]float64
}

func (f *fakeClob) BatchPrices(_ context.Context, _ []string, _ clob.Side) (map[string]float64, error) {
	return f.prices, nil
}

func newTestPipeline(storage *fakeStorage, prices *fakeCache, odds *fakeOdds, g *fakeGamma, c *fakeClob, hub *fakeHub, pub *fakePub) *Pipeline {
	return New(odds, g, c, storage, prices, zap.NewNop(), Options{
		Hub:       hub,
		Publisher: pub,
	})
}

// --- tests ---

func TestSyncOdds(t *testing.T) {
	storage := newFakeStorage()
	odds := &fakeOdds{games: []oddsapi.Game{
		{
			ID:           "g1",
			SportKey:     "americanfootball_nfl",
			CommenceTime: time.Now().Add(5 * time.Hour),
			HomeTeam:     "Kansas City Chiefs",
			AwayTeam:     "Buffalo Bills",
			Bookmakers: []oddsapi.Bookmaker{
				{Key: "draftkings", Markets: []oddsapi.Market{{Key: "h2h", Outcomes: []oddsapi.Outcome{
					{Name: "Kansas City Chiefs", Price: 1.87},
					{Name: "Buffalo Bills", Price: 1.95},
				}}}},
				{Key: "fanduel", Markets: []oddsapi.Market{{Key: "h2h", Outcomes: []oddsapi.Outcome{
					{Name: "Kansas City Chiefs", Price: 1.85},
					{Name: "Buffalo Bills", Price: 1.97},
				}}}},
			},
		},
	}}

	p := newTestPipeline(storage, newFakeCache(), odds, &fakeGamma{}, &fakeClob{}, newFakeHub(), &fakePub{})

	summary := p.SyncOdds(context.Background(), SyncOddsRequest{Sports: []string{"nfl", "cricket"}})

	if summary.EventsSeen != 1 {
		t.Errorf("EventsSeen = %d, want 1", summary.EventsSeen)
	}
	if summary.Snapshots != 4 {
		t.Errorf("Snapshots = %d, want 4", summary.Snapshots)
	}
	// The unknown sport counts as an error but does not abort the run.
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}

	ev, ok := storage.events["g1"]
	if !ok {
		t.Fatal("event not upserted")
	}
	if ev.Sport != "nfl" || ev.League != "NFL" {
		t.Errorf("event sport/league = %s/%s", ev.Sport, ev.League)
	}
	if ev.Status != "upcoming" {
		t.Errorf("status = %s", ev.Status)
	}
}

func TestSyncPolymarket(t *testing.T) {
	storage := newFakeStorage()
	g := &fakeGamma{events: []gamma.Event{
		{
			ID:    "1",
			Slug:  "nfl-kc-buf-2031-01-25",
			Title: "Chiefs vs. Bills",
			Tags:  []gamma.Tag{{Label: "NFL"}},
			Markets: []gamma.Market{
				{
					ID:               "m1",
					ConditionID:      "0xcond1",
					Question:         "Will the Chiefs beat the Bills?",
					SportsMarketType: "moneyline",
					ClobTokenIDsRaw:  `["tok-yes","tok-no"]`,
					OutcomePricesRaw: `["0.55","0.45"]`,
					Volume:           60000,
				},
				{
					ID:          "m2",
					ConditionID: "0xcond2",
					Question:    "Will the Chiefs win the Super Bowl?",
				},
				{
					ID:          "m3",
					ConditionID: "0xcond3",
					Question:    "Gibberish market about nothing?",
				},
			},
		},
	}}

	p := newTestPipeline(storage, newFakeCache(), &fakeOdds{}, g, &fakeClob{}, newFakeHub(), &fakePub{})

	// The slug date is far in the future so it stays ahead of the
	// clock; the wide window keeps it inside range.
	summary := p.SyncPolymarket(context.Background(), SyncPolymarketRequest{
		Sports:      []string{"nfl"},
		WindowHours: 24 * 365 * 20,
	})

	if summary.MarketsCached != 1 {
		t.Errorf("MarketsCached = %d, want 1", summary.MarketsCached)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (futures)", summary.Skipped)
	}
	if summary.Failures != 1 {
		t.Errorf("Failures = %d, want 1 (unclassified)", summary.Failures)
	}

	m, ok := storage.polys["0xcond1"]
	if !ok {
		t.Fatal("market not cached")
	}
	if m.Sport != "nfl" || m.Kind != "MONEYLINE" {
		t.Errorf("sport/kind = %s/%s", m.Sport, m.Kind)
	}
	if m.NormHome != "chiefs" || m.NormAway != "bills" {
		t.Errorf("norm teams = %q/%q", m.NormHome, m.NormAway)
	}
	if m.DateSource != "slug" {
		t.Errorf("date source = %s, want slug", m.DateSource)
	}
	if m.YesTokenID != "tok-yes" || m.YesPrice != 0.55 {
		t.Errorf("token/price = %s/%v", m.YesTokenID, m.YesPrice)
	}

	if len(storage.failures) != 1 || storage.failures[0] != reasonUnclassified {
		t.Errorf("failures = %v", storage.failures)
	}
}

func TestRefreshPrices(t *testing.T) {
	storage := newFakeStorage()
	storage.staleTokens = []string{"t1", "t2", "t3"}

	prices := newFakeCache()
	// t1 has a previous value far from the new one: deviation flag.
	prices.Set(context.Background(), "t1", 0.40, time.Now().Add(-time.Hour))

	c := &fakeClob{prices: map[string]float64{
		"t1": 0.50, // valid, deviates 25% from 0.40
		"t2": 0.99, // out of band
		// t3 missing from the response
	}}

	hub := newFakeHub()
	p := newTestPipeline(storage, prices, &fakeOdds{}, &fakeGamma{}, c, hub, &fakePub{})

	summary := p.RefreshPrices(context.Background(), RefreshPricesRequest{})

	if summary.Requested != 3 {
		t.Errorf("Requested = %d", summary.Requested)
	}
	if summary.Refreshed != 1 {
		t.Errorf("Refreshed = %d, want 1", summary.Refreshed)
	}
	if summary.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", summary.Rejected)
	}
	if summary.Flagged != 1 {
		t.Errorf("Flagged = %d, want 1", summary.Flagged)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}

	if storage.priceUpdates["t1"] != 0.50 {
		t.Errorf("t1 not persisted: %v", storage.priceUpdates)
	}
	if _, ok := storage.priceUpdates["t2"]; ok {
		t.Error("rejected price should not be persisted")
	}
	if hub.prices != 1 {
		t.Errorf("price broadcasts = %d, want 1", hub.prices)
	}
}

func TestScanEdges(t *testing.T) {
	now := time.Now().UTC()
	storage := newFakeStorage()

	storage.freshMarkets = []store.PolyMarket{{
		ConditionID: "0xcond1",
		Slug:        "nfl-kc-buf",
		Question:    "Will the Chiefs beat the Bills?",
		NormHome:    "chiefs",
		NormAway:    "bills",
		Sport:       "nfl",
		Kind:        "MONEYLINE",
		YesTokenID:  "tok-yes",
		YesPrice:    0.45,
		Volume:      60000,
		EventDate:   now.Add(4 * time.Hour),
		UpdatedAt:   now.Add(-3 * time.Minute),
	}}
	storage.upcoming = []store.Event{{
		ID:           "ev1",
		Sport:        "nfl",
		HomeTeam:     "Kansas City Chiefs",
		AwayTeam:     "Buffalo Bills",
		CommenceTime: now.Add(4 * time.Hour),
	}}
	// De-vigs to fair ~0.538 for the Chiefs against a 0.45 price.
	storage.h2h["ev1"] = map[string]map[string]float64{
		"draftkings": {
			"Kansas City Chiefs": 1.80,
			"Buffalo Bills":      2.10,
		},
	}
	// An active watch entry for the same market should get confirmed.
	storage.watchEntries["0xcond1"] = &watch.Entry{
		ConditionID: "0xcond1",
		State:       watch.StateActive,
		Baseline:    0.40,
		LastPrice:   0.45,
	}

	hub := newFakeHub()
	pub := &fakePub{}
	p := newTestPipeline(storage, newFakeCache(), &fakeOdds{}, &fakeGamma{}, &fakeClob{}, hub, pub)

	summary := p.ScanEdges(context.Background(), ScanEdgesRequest{Sports: []string{"nfl"}})

	if summary.MarketsScanned != 1 || summary.Matched != 1 {
		t.Fatalf("scanned/matched = %d/%d", summary.MarketsScanned, summary.Matched)
	}
	if len(summary.Signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(summary.Signals))
	}

	sig := summary.Signals[0]
	if sig.Selection != "Kansas City Chiefs" {
		t.Errorf("selection = %s", sig.Selection)
	}
	if sig.Bookmaker != "draftkings" || sig.BookOdds != 1.80 {
		t.Errorf("book = %s @ %v", sig.Bookmaker, sig.BookOdds)
	}
	if sig.FairProb <= sig.PolyPrice {
		t.Errorf("fair %v not above price %v", sig.FairProb, sig.PolyPrice)
	}
	// (0.538 - 0.45) * 100 = 8.85 gross, 4.35 net, confidence 74: bet.
	if sig.Decision != edge.DecisionBet {
		t.Errorf("decision = %s, want BET", sig.Decision)
	}
	if sig.Urgency != edge.UrgencyHigh {
		t.Errorf("urgency = %s, want HIGH", sig.Urgency)
	}

	if len(storage.signals) != 1 {
		t.Errorf("persisted signals = %d", len(storage.signals))
	}
	if len(pub.sigs) != 1 {
		t.Errorf("published signals = %d", len(pub.sigs))
	}
	if hub.signals != 1 {
		t.Errorf("broadcast signals = %d", hub.signals)
	}

	if e := storage.watchEntries["0xcond1"]; e.State != watch.StateConfirmed {
		t.Errorf("watch state = %s, want confirmed", e.State)
	}
	if summary.Analysis == "" {
		t.Error("analysis block empty")
	}
}

func TestScanEdgesSkipsOverpricedMarket(t *testing.T) {
	now := time.Now().UTC()
	storage := newFakeStorage()

	// Fair prob for the Chiefs de-vigs to ~0.462, below the 0.55 price.
	storage.freshMarkets = []store.PolyMarket{{
		ConditionID: "0xcond1",
		NormHome:    "chiefs",
		NormAway:    "bills",
		Sport:       "nfl",
		Kind:        "MONEYLINE",
		YesPrice:    0.55,
		Volume:      60000,
		EventDate:   now.Add(4 * time.Hour),
		UpdatedAt:   now.Add(-3 * time.Minute),
	}}
	storage.upcoming = []store.Event{{
		ID:           "ev1",
		Sport:        "nfl",
		HomeTeam:     "Kansas City Chiefs",
		AwayTeam:     "Buffalo Bills",
		CommenceTime: now.Add(4 * time.Hour),
	}}
	storage.h2h["ev1"] = map[string]map[string]float64{
		"draftkings": {
			"Kansas City Chiefs": 2.10,
			"Buffalo Bills":      1.80,
		},
	}

	hub := newFakeHub()
	pub := &fakePub{}
	p := newTestPipeline(storage, newFakeCache(), &fakeOdds{}, &fakeGamma{}, &fakeClob{}, hub, pub)

	summary := p.ScanEdges(context.Background(), ScanEdgesRequest{})

	if summary.Matched != 1 {
		t.Fatalf("matched = %d, want 1", summary.Matched)
	}
	if len(summary.Signals) != 0 {
		t.Fatalf("signals = %d, want none for a negative edge", len(summary.Signals))
	}
	if len(storage.signals) != 0 || len(pub.sigs) != 0 || hub.signals != 0 {
		t.Error("negative-edge market was persisted or published")
	}
}

func TestScanEdgesUsesTeamMappings(t *testing.T) {
	now := time.Now().UTC()
	storage := newFakeStorage()

	// The bookmaker abbreviates; only the stored alias bridges the gap.
	storage.teamMappings = map[string]string{"kc": "kansas city chiefs"}
	storage.freshMarkets = []store.PolyMarket{{
		ConditionID: "0xcond1",
		NormHome:    "kansas city chiefs",
		NormAway:    "buffalo bills",
		Sport:       "nfl",
		Kind:        "MONEYLINE",
		YesPrice:    0.45,
		Volume:      60000,
		EventDate:   now.Add(4 * time.Hour),
		UpdatedAt:   now.Add(-3 * time.Minute),
	}}
	storage.upcoming = []store.Event{{
		ID:           "ev1",
		Sport:        "nfl",
		HomeTeam:     "KC",
		AwayTeam:     "Buffalo Bills",
		CommenceTime: now.Add(4 * time.Hour),
	}}
	storage.h2h["ev1"] = map[string]map[string]float64{
		"fanduel": {"KC": 1.80, "Buffalo Bills": 2.10},
	}

	p := newTestPipeline(storage, newFakeCache(), &fakeOdds{}, &fakeGamma{}, &fakeClob{}, newFakeHub(), &fakePub{})

	summary := p.ScanEdges(context.Background(), ScanEdgesRequest{})

	if summary.Matched != 1 {
		t.Fatalf("matched = %d, want 1 via alias override", summary.Matched)
	}
	if len(summary.Signals) != 1 || summary.Signals[0].Selection != "KC" {
		t.Fatalf("signals = %+v", summary.Signals)
	}
}

func TestWatchTick(t *testing.T) {
	now := time.Now().UTC()
	storage := newFakeStorage()

	// A cached market that is not yet watched: tick starts tracking it.
	storage.freshMarkets = []store.PolyMarket{{
		ConditionID: "0xnew",
		YesPrice:    0.50,
		EventDate:   now.Add(6 * time.Hour),
	}}
	storage.polys["0xnew"] = storage.freshMarkets[0]

	// A watched market whose game already started: window closes.
	storage.polys["0xgone"] = store.PolyMarket{
		ConditionID: "0xgone",
		YesPrice:    0.60,
		EventDate:   now.Add(-time.Hour),
	}
	storage.watchEntries["0xgone"] = &watch.Entry{
		ConditionID: "0xgone",
		State:       watch.StateWatching,
		Baseline:    0.60,
		LastPrice:   0.60,
	}

	p := newTestPipeline(storage, newFakeCache(), &fakeOdds{}, &fakeGamma{}, &fakeClob{}, newFakeHub(), &fakePub{})

	summary := p.WatchTick(context.Background())

	if summary.Started != 1 {
		t.Errorf("Started = %d, want 1", summary.Started)
	}
	if summary.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", summary.Dropped)
	}

	if e := storage.watchEntries["0xgone"]; e.State != watch.StateDropped {
		t.Errorf("expired entry state = %s, want dropped", e.State)
	}
	if e, ok := storage.watchEntries["0xnew"]; !ok || e.State != watch.StateWatching {
		t.Error("new market not being watched")
	}
}
