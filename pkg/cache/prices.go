// Package cache keeps the latest prediction-market prices in Redis so
// scans can read them without touching the API, and classifies how
// trustworthy a cached price still is by its age.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Freshness classifies a cached price by age.
type Freshness string

const (
	Fresh Freshness = "fresh" // under 15 minutes
	Stale Freshness = "stale" // under 2 hours
	Dead  Freshness = "dead"
)

const (
	freshWindow = 15 * time.Minute
	staleWindow = 2 * time.Hour

	// Entries expire from Redis a while after going dead.
	entryTTL = 6 * time.Hour
)

// Classify maps a price age to its freshness tier.
func Classify(age time.Duration) Freshness {
	switch {
	case age < freshWindow:
		return Fresh
	case age < staleWindow:
		return Stale
	default:
		return Dead
	}
}

// Entry is one cached price.
type Entry struct {
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Age returns how old the entry is.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.UpdatedAt)
}

// Prices is the Redis-backed price cache.
type Prices struct {
	rdb *redis.Client
}

// Connect dials Redis and verifies the connection.
func Connect(addr string) (*Prices, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Prices{rdb: rdb}, nil
}

// New wraps an existing client.
func New(rdb *redis.Client) *Prices {
	return &Prices{rdb: rdb}
}

// Close closes the underlying client.
func (p *Prices) Close() error {
	return p.rdb.Close()
}

func key(tokenID string) string { return "price:token:" + tokenID }

// Set overwrites the cached price for a token.
func (p *Prices) Set(ctx context.Context, tokenID string, price float64, now time.Time) error {
	b, err := json.Marshal(Entry{Price: price, UpdatedAt: now})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := p.rdb.Set(ctx, key(tokenID), b, entryTTL).Err(); err != nil {
		return fmt.Errorf("set price %s: %w", tokenID, err)
	}
	return nil
}

// Get returns the cached entry and its freshness, or ok=false when the
// token is absent.
func (p *Prices) Get(ctx context.Context, tokenID string, now time.Time) (Entry, Freshness, bool, error) {
	b, err := p.rdb.Get(ctx, key(tokenID)).Bytes()
	if err == redis.Nil {
		return Entry{}, Dead, false, nil
	}
	if err != nil {
		return Entry{}, Dead, false, fmt.Errorf("get price %s: %w", tokenID, err)
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, Dead, false, fmt.Errorf("unmarshal entry: %w", err)
	}
	return e, Classify(e.Age(now)), true, nil
}

// SetBatch writes a batch of refreshed prices. Individual failures are
// returned but do not stop the batch.
func (p *Prices) SetBatch(ctx context.Context, prices map[string]float64, now time.Time) []error {
	var errs []error
	for tokenID, price := range prices {
		if err := p.Set(ctx, tokenID, price, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
