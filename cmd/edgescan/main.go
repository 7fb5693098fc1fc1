// edgescan runs one full scan cycle from the command line: sync
// bookmaker odds, discover prediction markets, refresh prices, and
// print the edge report.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/cache"
	"github.com/phenomenon0/edgeboard/pkg/config"
	"github.com/phenomenon0/edgeboard/pkg/oddsapi"
	"github.com/phenomenon0/edgeboard/pkg/pipeline"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/clob"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/gamma"
	"github.com/phenomenon0/edgeboard/pkg/store"
)

var (
	sports     = flag.String("sports", "", "Comma-separated sports (default from SCAN_SPORTS)")
	window     = flag.Int("window", 0, "Scan window in hours (default from SCAN_WINDOW_HOURS)")
	bankroll   = flag.Float64("bankroll", 0, "Bankroll for stake sizing (default from BANKROLL)")
	kelly      = flag.Float64("kelly", 0, "Kelly fraction (default from KELLY_FRACTION)")
	minEdge    = flag.Float64("min-edge", 0, "Minimum gross edge percent (default from SCAN_MIN_EDGE_PCT)")
	skipSync   = flag.Bool("skip-sync", false, "Scan cached data without syncing providers first")
	timeoutMin = flag.Int("timeout", 10, "Overall timeout in minutes")
)

func main() {
	flag.Parse()
	cfg := config.Load()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	scanSports := cfg.Sports
	if *sports != "" {
		scanSports = strings.Split(*sports, ",")
	}
	windowHours := cfg.WindowHours
	if *window > 0 {
		windowHours = *window
	}

	db, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	prices, err := cache.Connect(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect failed", zap.Error(err))
	}
	defer prices.Close()

	gammaOpts := []gamma.ClientOption{}
	if cfg.GammaBaseURL != "" {
		gammaOpts = append(gammaOpts, gamma.WithBaseURL(cfg.GammaBaseURL))
	}
	clobOpts := []clob.ClientOption{}
	if cfg.ClobBaseURL != "" {
		clobOpts = append(clobOpts, clob.WithBaseURL(cfg.ClobBaseURL))
	}

	pipe := pipeline.New(
		oddsapi.NewClient(cfg.OddsAPIKey),
		gamma.NewClient(gammaOpts...),
		clob.NewClient(clobOpts...),
		db, prices, log, pipeline.Options{},
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutMin)*time.Minute)
	defer cancel()

	if !*skipSync {
		odds := pipe.SyncOdds(ctx, pipeline.SyncOddsRequest{Sports: scanSports})
		fmt.Printf("odds sync: %d events, %d snapshots, %d errors\n",
			odds.EventsSeen, odds.Snapshots, odds.Errors)

		poly := pipe.SyncPolymarket(ctx, pipeline.SyncPolymarketRequest{
			Sports:      scanSports,
			WindowHours: windowHours,
			MaxEvents:   cfg.MaxEvents,
		})
		fmt.Printf("market discovery: %d events, %d cached, %d skipped, %d failures\n",
			poly.EventsSeen, poly.MarketsCached, poly.Skipped, poly.Failures)

		refresh := pipe.RefreshPrices(ctx, pipeline.RefreshPricesRequest{})
		fmt.Printf("price refresh: %d requested, %d refreshed, %d rejected, %d flagged\n",
			refresh.Requested, refresh.Refreshed, refresh.Rejected, refresh.Flagged)
	}

	scan := pipe.ScanEdges(ctx, pipeline.ScanEdgesRequest{
		Sports:        scanSports,
		WindowHours:   windowHours,
		Bankroll:      pick(*bankroll, cfg.Bankroll),
		KellyFraction: pick(*kelly, cfg.KellyFraction),
		MinEdgePct:    pick(*minEdge, cfg.MinEdgePct),
	})

	fmt.Println()
	fmt.Print(scan.Analysis)
	fmt.Printf("\nscanned %d markets, matched %d, %d signals in %dms\n",
		scan.MarketsScanned, scan.Matched, len(scan.Signals), scan.DurationMs)
}

func pick(flagVal, cfgVal float64) float64 {
	if flagVal > 0 {
		return flagVal
	}
	return cfgVal
}
