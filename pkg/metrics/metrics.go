// Package metrics exposes Prometheus counters and gauges for the scan
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline instruments.
type Metrics struct {
	ScansTotal          prometheus.Counter
	SignalsTotal        *prometheus.CounterVec
	PriceRefreshesTotal *prometheus.CounterVec
	SyncErrorsTotal     *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	WatchStates         *prometheus.GaugeVec
	CachedMarkets       prometheus.Gauge
}

// New registers all instruments on the given registerer. Pass
// prometheus.DefaultRegisterer in the daemon; tests use a fresh
// registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "edgeboard_scans_total",
			Help: "Completed edge scans.",
		}),
		SignalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeboard_signals_total",
			Help: "Signals emitted, by decision.",
		}, []string{"decision"}),
		PriceRefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeboard_price_refreshes_total",
			Help: "Token price refresh attempts, by result.",
		}, []string{"result"}),
		SyncErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edgeboard_sync_errors_total",
			Help: "Sync failures, by stage.",
		}, []string{"stage"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "edgeboard_scan_duration_seconds",
			Help:    "Edge scan duration.",
			Buckets: prometheus.DefBuckets,
		}),
		WatchStates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "edgeboard_watch_states",
			Help: "Watched markets, by state.",
		}, []string{"state"}),
		CachedMarkets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "edgeboard_cached_markets",
			Help: "Prediction markets currently cached.",
		}),
	}
}

// Refresh result labels.
const (
	RefreshOK       = "ok"
	RefreshRejected = "rejected"
	RefreshFlagged  = "flagged"
	RefreshError    = "error"
)
