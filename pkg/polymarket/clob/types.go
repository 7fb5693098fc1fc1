// Package clob provides a public (unauthenticated) client for the
// Polymarket CLOB API, used to refresh live order-book prices for
// cached markets.
package clob

const (
	// DefaultBaseURL is the CLOB API base URL
	DefaultBaseURL = "https://clob.polymarket.com"

	// Price sanity bounds: a YES price outside this band is treated as a
	// dead or one-sided book and rejected, keeping the cached value.
	MinValidPrice = 0.05
	MaxValidPrice = 0.95

	// DeviationThreshold flags refreshes that move more than this
	// fraction from the previous cached value.
	DeviationThreshold = 0.10
)

// Side identifies which side of the book a price request refers to.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// BookSummary represents the order book for a token.
type BookSummary struct {
	Market    string       `json:"market"`
	TokenID   string       `json:"asset_id"`
	Timestamp string       `json:"timestamp"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
}

// PriceLevel represents a price level in the order book.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// priceRequest is one entry in a batched POST /prices body.
type priceRequest struct {
	TokenID string `json:"token_id"`
	Side    Side   `json:"side"`
}

// ValidPrice reports whether a fetched price is inside the sane band.
func ValidPrice(p float64) bool {
	return p >= MinValidPrice && p <= MaxValidPrice
}

// Deviates reports whether a refreshed price moved more than the
// deviation threshold from the previous cached value.
func Deviates(oldPrice, newPrice float64) bool {
	if oldPrice <= 0 {
		return false
	}
	delta := newPrice - oldPrice
	if delta < 0 {
		delta = -delta
	}
	return delta/oldPrice > DeviationThreshold
}
