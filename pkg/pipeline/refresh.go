package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phenomenon0/edgeboard/pkg/metrics"
	"github.com/phenomenon0/edgeboard/pkg/polymarket/clob"
)

// RefreshPricesRequest bounds one refresh pass.
type RefreshPricesRequest struct {
	BatchSize     int `json:"batchSize"`
	MaxAgeMinutes int `json:"maxAgeMinutes"`
	MaxTokens     int `json:"maxTokens"`
}

// RefreshPricesSummary reports one refresh pass.
type RefreshPricesSummary struct {
	Requested int `json:"requested"`
	Refreshed int `json:"refreshed"`
	Rejected  int `json:"rejected"`
	Flagged   int `json:"flagged"`
	Errors    int `json:"errors"`
}

// RefreshPrices finds cached markets whose price is older than the max
// age, fetches current order-book prices in batches, and overwrites the
// cache with every valid price. Out-of-band prices are rejected and the
// cached value kept. Large moves are flagged at warn but still written.
func (p *Pipeline) RefreshPrices(ctx context.Context, req RefreshPricesRequest) RefreshPricesSummary {
	batchSize := req.BatchSize
	if batchSize <= 0 || batchSize > priceBatchSize {
		batchSize = priceBatchSize
	}
	maxAge := time.Duration(req.MaxAgeMinutes) * time.Minute
	if maxAge <= 0 {
		maxAge = 15 * time.Minute
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	tokens, err := p.storage.ListStaleTokens(ctx, maxAge, maxTokens)
	if err != nil {
		p.log.Error("list stale tokens failed", zap.Error(err))
		return RefreshPricesSummary{Errors: 1}
	}

	summary := RefreshPricesSummary{Requested: len(tokens)}
	if len(tokens) == 0 {
		return summary
	}

	var mu sync.Mutex
	now := time.Now().UTC()

	batches := (len(tokens) + batchSize - 1) / batchSize
	runBatches(batches, 1, interBatchSleep, func(b int) {
		start := b * batchSize
		end := start + batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		prices, err := p.clob.BatchPrices(ctx, batch, clob.SideBuy)
		if err != nil {
			p.log.Error("batch price fetch failed", zap.Int("batch", b), zap.Error(err))
			mu.Lock()
			summary.Errors += len(batch)
			mu.Unlock()
			p.countRefresh(metrics.RefreshError, len(batch))
			return
		}

		for _, tokenID := range batch {
			price, ok := prices[tokenID]
			if !ok {
				mu.Lock()
				summary.Errors++
				mu.Unlock()
				p.countRefresh(metrics.RefreshError, 1)
				continue
			}

			if !clob.ValidPrice(price) {
				p.log.Debug("price out of band, keeping cached value",
					zap.String("token", tokenID), zap.Float64("price", price))
				mu.Lock()
				summary.Rejected++
				mu.Unlock()
				p.countRefresh(metrics.RefreshRejected, 1)
				continue
			}

			if prev, _, found, err := p.prices.Get(ctx, tokenID, now); err == nil && found {
				if clob.Deviates(prev.Price, price) {
					p.log.Warn("price deviation over threshold",
						zap.String("token", tokenID),
						zap.Float64("old", prev.Price),
						zap.Float64("new", price))
					mu.Lock()
					summary.Flagged++
					mu.Unlock()
					p.countRefresh(metrics.RefreshFlagged, 1)
				}
			}

			if err := p.prices.Set(ctx, tokenID, price, now); err != nil {
				p.log.Warn("cache write failed", zap.String("token", tokenID), zap.Error(err))
			}
			if err := p.storage.UpdatePolyPrice(ctx, tokenID, price); err != nil {
				p.log.Warn("price persist failed", zap.String("token", tokenID), zap.Error(err))
				mu.Lock()
				summary.Errors++
				mu.Unlock()
				continue
			}

			p.broadcastPrice(tokenID, price)
			mu.Lock()
			summary.Refreshed++
			mu.Unlock()
			p.countRefresh(metrics.RefreshOK, 1)
		}
	})

	return summary
}

func (p *Pipeline) countRefresh(result string, n int) {
	if p.met != nil {
		p.met.PriceRefreshesTotal.WithLabelValues(result).Add(float64(n))
	}
}
