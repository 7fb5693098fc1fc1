// edgeboardd is the edge-detection dashboard daemon. It serves the
// scan API and live websocket feed, and optionally runs the refresh
// and watch loops on a timer.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/cache"
	"github.com/phenomenon0/edgeboard/pkg/config"
	"github.com/phenomenon0/edgeboard/pkg/metrics"
	"github.com/phenomenon0/edgeboard/pkg/oddsapi"
	"github.com/phenomenon0/edgeboard/pkg/pipeline"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/clob"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/gamma"
	"github.com/phenomenon0/edgeboard/pkg/publisher"
	"github.com/phenomenon0/edgeboard/pkg/server"
	"github.com/phenomenon0/edgeboard/pkg/store"
	"github.com/phenomenon0/edgeboard/pkg/streaming"
	"github.com/phenomenon0/edgeboard/pkg/watch"
)

var (
	autoLoop        = flag.Bool("auto", false, "Run refresh and watch loops on a timer")
	refreshInterval = flag.Duration("refresh-interval", 5*time.Minute, "Price refresh interval when -auto is set")
	watchInterval   = flag.Duration("watch-interval", time.Minute, "Watch tick interval when -auto is set")
	noKafka         = flag.Bool("no-kafka", false, "Disable signal publishing to Kafka")
)

func main() {
	flag.Parse()
	cfg := config.Load()

	log := newLogger(cfg.Env)
	defer log.Sync()
	log.Info("starting edgeboard daemon", zap.String("env", cfg.Env), zap.String("port", cfg.HTTPPort))

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

	var pub *publisher.Signals
	if !*noKafka {
		pub = publisher.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer pub.Close()
	}

	hub := streaming.NewHub(log)
	go hub.Run()

	registry := prometheus.NewRegistry()
	met := metrics.New(registry)

	oddsOpts := []oddsapi.ClientOption{}
	oddsClient := oddsapi.NewClient(cfg.OddsAPIKey, oddsOpts...)

	gammaOpts := []gamma.ClientOption{}
	if cfg.GammaBaseURL != "" {
		gammaOpts = append(gammaOpts, gamma.WithBaseURL(cfg.GammaBaseURL))
	}
	gammaClient := gamma.NewClient(gammaOpts...)

	clobOpts := []clob.ClientOption{}
	if cfg.ClobBaseURL != "" {
		clobOpts = append(clobOpts, clob.WithBaseURL(cfg.ClobBaseURL))
	}
	clobClient := clob.NewClient(clobOpts...)

	opts := pipeline.Options{
		Hub:     hub,
		Metrics: met,
		Machine: watch.NewMachine(cfg.MoveThreshold),
	}
	if pub != nil {
		opts.Publisher = pub
	}
	pipe := pipeline.New(oddsClient, gammaClient, clobClient, db, prices, log, opts)

	srv := server.New(":"+cfg.HTTPPort, pipe, db, hub, registry, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *autoLoop {
		go runLoop(ctx, *refreshInterval, func() {
			summary := pipe.RefreshPrices(ctx, pipeline.RefreshPricesRequest{})
			log.Info("price refresh",
				zap.Int("requested", summary.Requested),
				zap.Int("refreshed", summary.Refreshed),
				zap.Int("rejected", summary.Rejected),
				zap.Int("errors", summary.Errors))
		})
		go runLoop(ctx, *watchInterval, func() {
			summary := pipe.WatchTick(ctx)
			log.Info("watch tick",
				zap.Int("tracked", summary.Tracked),
				zap.Int("activated", summary.Activated),
				zap.Int("dropped", summary.Dropped))
		})
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}

func runLoop(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		log, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}
