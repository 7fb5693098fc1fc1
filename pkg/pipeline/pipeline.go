// Package pipeline orchestrates the scan workflow: bookmaker odds sync,
// prediction-market discovery, price refresh, edge scanning, and the
// watch-state tick. Each operation runs independently and reports a
// summary; partial failures are logged and skipped rather than retried.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/cache"
	"github.com/phenomenon0/edgeboard/pkg/edge"
	"github.com/phenomenon0/edgeboard/pkg/metrics"
	"github.com/phenomenon0/edgeboard/pkg/oddsapi"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/clob"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/gamma"
	"github.com/phenomenon0/edgeboard/pkg/store"
	"github.com/phenomenon0/edgeboard/pkg/watch"
)

// Batch sizing for concurrent fetches. Books and prices move in small
// fixed batches with a pause between them so provider rate limits hold.
const (
	bookBatchSize   = 10
	priceBatchSize  = 50
	interBatchSleep = 200 * time.Millisecond
)

// Storage is the slice of the store the pipeline writes through.
type Storage interface {
	UpsertEvent(ctx context.Context, e store.Event) error
	InsertSnapshot(ctx context.Context, snap store.Snapshot) error
	ListUpcomingEvents(ctx context.Context, now time.Time, windowHours int) ([]store.Event, error)
	LatestH2HPrices(ctx context.Context, eventID string) (map[string]map[string]float64, error)

	UpsertPolyMarket(ctx context.Context, m store.PolyMarket) error
	GetPolyMarket(ctx context.Context, conditionID string) (*store.PolyMarket, error)
	UpdatePolyPrice(ctx context.Context, yesTokenID string, price float64) error
	ListStaleTokens(ctx context.Context, maxAge time.Duration, limit int) ([]string, error)
	ListFreshMarkets(ctx context.Context, now time.Time, maxAge time.Duration, windowHours int) ([]store.PolyMarket, error)
	RecordMatchFailure(ctx context.Context, slug, question, reason string) error
	ListTeamMappings(ctx context.Context) (map[string]string, error)

	InsertSignal(ctx context.Context, sig *edge.Signal) error
	UpsertWatchEntry(ctx context.Context, e *watch.Entry) error
	InsertWatchEntryIfAbsent(ctx context.Context, e *watch.Entry) error
	ListOpenWatchEntries(ctx context.Context) ([]*watch.Entry, error)
}

// PriceCache is the slice of the Redis cache the pipeline uses.
type PriceCache interface {
	Set(ctx context.Context, tokenID string, price float64, now time.Time) error
	Get(ctx context.Context, tokenID string, now time.Time) (cache.Entry, cache.Freshness, bool, error)
}

// Broadcaster pushes live events to connected dashboards.
type Broadcaster interface {
	BroadcastSignal(signal interface{})
	BroadcastPrice(tokenID string, price float64)
	BroadcastWatch(conditionID, state string)
	BroadcastScan(summary interface{})
}

// SignalPublisher pushes signals to the message bus.
type SignalPublisher interface {
	PublishBatch(ctx context.Context, sigs []*edge.Signal) error
}

// OddsClient fetches bookmaker odds.
type OddsClient interface {
	GetOdds(ctx context.Context, req oddsapi.OddsRequest) ([]oddsapi.Game, error)
}

// GammaClient discovers prediction-market events.
type GammaClient interface {
	ListActiveSportsEvents(ctx context.Context, now time.Time, windowHours, maxEvents int) ([]gamma.Event, error)
}

// ClobClient refreshes prediction-market prices.
type ClobClient interface {
	BatchPrices(ctx context.Context, tokenIDs []string, side clob.Side) (map[string]float64, error)
}

// Pipeline wires the clients, storage, and outputs together.
type Pipeline struct {
	odds  OddsClient
	gamma GammaClient
	clob  ClobClient

	storage Storage
	prices  PriceCache
	hub     Broadcaster
	pub     SignalPublisher
	met     *metrics.Metrics
	machine *watch.Machine
	log     *zap.Logger
}

// Options carries optional outputs. Nil fields are skipped.
type Options struct {
	Hub       Broadcaster
	Publisher SignalPublisher
	Metrics   *metrics.Metrics
	Machine   *watch.Machine
}

// New creates a pipeline.
func New(odds OddsClient, gammaClient GammaClient, clobClient ClobClient, storage Storage, prices PriceCache, log *zap.Logger, opts Options) *Pipeline {
	machine := opts.Machine
	if machine == nil {
		machine = watch.NewMachine(0.05)
	}
	return &Pipeline{
		odds:    odds,
		gamma:   gammaClient,
		clob:    clobClient,
		storage: storage,
		prices:  prices,
		hub:     opts.Hub,
		pub:     opts.Publisher,
		met:     opts.Metrics,
		machine: machine,
		log:     log,
	}
}

// runBatches invokes fn for indexes 0..n-1 in fixed-size goroutine
// batches, sleeping between batches.
func runBatches(n, batchSize int, sleep time.Duration, fn func(i int)) {
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				fn(i)
			}(i)
		}
		wg.Wait()

		if end < n && sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

func (p *Pipeline) broadcastSignal(sig *edge.Signal) {
	if p.hub != nil {
		p.hub.BroadcastSignal(sig)
	}
}

func (p *Pipeline) broadcastPrice(tokenID string, price float64) {
	if p.hub != nil {
		p.hub.BroadcastPrice(tokenID, price)
	}
}

func (p *Pipeline) broadcastWatch(conditionID, state string) {
	if p.hub != nil {
		p.hub.BroadcastWatch(conditionID, state)
	}
}

func (p *Pipeline) broadcastScan(summary interface{}) {
	if p.hub != nil {
		p.hub.BroadcastScan(summary)
	}
}
