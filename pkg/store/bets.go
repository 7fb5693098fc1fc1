package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bet outcomes.
const (
	BetPending = "pending"
	BetWon     = "won"
	BetLost    = "lost"
	BetVoid    = "void"
)

// Bet is one logged wager.
type Bet struct {
	ID         uuid.UUID       `json:"id"`
	PlacedAt   time.Time       `json:"placedAt"`
	EventRef   string          `json:"eventRef"`
	Selection  string          `json:"selection"`
	Stake      decimal.Decimal `json:"stake"`
	Price      float64         `json:"price"`
	Outcome    string          `json:"outcome"`
	ProfitLoss decimal.Decimal `json:"profitLoss"`
}

// Validate checks numeric validity only.
func (b *Bet) Validate() error {
	if b.EventRef == "" {
		return fmt.Errorf("event ref required")
	}
	if b.Selection == "" {
		return fmt.Errorf("selection required")
	}
	if !b.Stake.IsPositive() {
		return fmt.Errorf("stake must be positive")
	}
	if b.Price <= 1 {
		return fmt.Errorf("price must exceed 1.0 decimal odds")
	}
	switch b.Outcome {
	case "", BetPending, BetWon, BetLost, BetVoid:
	default:
		return fmt.Errorf("unknown outcome %q", b.Outcome)
	}
	return nil
}

// InsertBet logs a new bet. A zero ID and PlacedAt are filled in.
func (s *Store) InsertBet(ctx context.Context, b *Bet) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.PlacedAt.IsZero() {
		b.PlacedAt = time.Now().UTC()
	}
	if b.Outcome == "" {
		b.Outcome = BetPending
	}

	const q = `
		INSERT INTO bets (id, placed_at, event_ref, selection, stake, price, outcome, profit_loss)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	if _, err := s.db.ExecContext(ctx, q,
		b.ID, b.PlacedAt, b.EventRef, b.Selection, b.Stake, b.Price, b.Outcome, b.ProfitLoss,
	); err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

// SettleBet records the outcome and profit/loss of a bet.
func (s *Store) SettleBet(ctx context.Context, id uuid.UUID, outcome string, profitLoss decimal.Decimal) error {
	switch outcome {
	case BetWon, BetLost, BetVoid:
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	const q = `UPDATE bets SET outcome = $2, profit_loss = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id, outcome, profitLoss)
	if err != nil {
		return fmt.Errorf("settle bet %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bet %s not found", id)
	}
	return nil
}

// ListBets returns the bet log, newest first.
func (s *Store) ListBets(ctx context.Context, limit int) ([]Bet, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
		SELECT id, placed_at, event_ref, selection, stake, price, outcome, profit_loss
		FROM bets
		ORDER BY placed_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var bets []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.PlacedAt, &b.EventRef, &b.Selection, &b.Stake, &b.Price, &b.Outcome, &b.ProfitLoss); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// BetSummary is the profit/loss rollup over the bet log.
type BetSummary struct {
	Total      int             `json:"total"`
	Won        int             `json:"won"`
	Lost       int             `json:"lost"`
	Pending    int             `json:"pending"`
	Staked     decimal.Decimal `json:"staked"`
	ProfitLoss decimal.Decimal `json:"profitLoss"`
}

// SummarizeBets computes the rollup across all logged bets.
func (s *Store) SummarizeBets(ctx context.Context) (*BetSummary, error) {
	const q = `
		SELECT
		  COUNT(*),
		  COUNT(*) FILTER (WHERE outcome = 'won'),
		  COUNT(*) FILTER (WHERE outcome = 'lost'),
		  COUNT(*) FILTER (WHERE outcome = 'pending'),
		  COALESCE(SUM(stake), 0),
		  COALESCE(SUM(profit_loss), 0)
		FROM bets
	`
	var sum BetSummary
	if err := s.db.QueryRowContext(ctx, q).Scan(
		&sum.Total, &sum.Won, &sum.Lost, &sum.Pending, &sum.Staked, &sum.ProfitLoss,
	); err != nil {
		return nil, fmt.Errorf("summarize bets: %w", err)
	}
	return &sum, nil
}
