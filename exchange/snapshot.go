// Copyright (c) 2025 BVK Chaitanya

package exchange

import (
	"fmt"
	"time"

	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/shopspring/decimal"
)

// Quote is one displayed slot of an order book column.
type Quote struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal

	// AtMarket is true when the slot shows the market rate placeholder instead
	// of a concrete rate.
	AtMarket bool
}

func (q Quote) String() string {
	if q.AtMarket {
		return fmt.Sprintf("%s@market", q.Amount)
	}
	return fmt.Sprintf("%s@%s", q.Amount, q.Rate)
}

// Book is the per-direction view of the market.
type Book struct {
	// Balance is our wallet balance of the currency given in this direction.
	Balance decimal.Decimal

	// HasOpenOrder is true when the exchange lists an open order of ours in
	// this direction.
	HasOpenOrder bool

	// Remaining is the unfilled amount of our open order. Zero when the order
	// is not listed.
	Remaining decimal.Decimal

	Top  Quote
	Next Quote
}

// Snapshot is the market state observed by one poll.
type Snapshot struct {
	Time time.Time

	// Spread is the market supplied gap between the two directions.
	Spread decimal.Decimal

	// Rates holds the prevailing rate of each direction as shown by the
	// exchange.
	Rates [2]decimal.Decimal

	Books [2]Book
}

func (s *Snapshot) Book(d pair.Direction) *Book {
	return &s.Books[d]
}

func (s *Snapshot) Rate(d pair.Direction) decimal.Decimal {
	return s.Rates[d]
}

// Top returns the top trade in the direction. Fails with ErrMarketAtPrice if
// the slot shows a market rate.
func (s *Snapshot) Top(d pair.Direction) (Quote, error) {
	q := s.Books[d].Top
	if q.AtMarket {
		return q, fmt.Errorf("%s top trade: %w", d, tcerr.ErrMarketAtPrice)
	}
	return q, nil
}

// Next returns the second-best trade in the direction. Fails with
// ErrMarketAtPrice if the slot shows a market rate.
func (s *Snapshot) Next(d pair.Direction) (Quote, error) {
	q := s.Books[d].Next
	if q.AtMarket {
		return q, fmt.Errorf("%s next trade: %w", d, tcerr.ErrMarketAtPrice)
	}
	return q, nil
}

// HasOpenOrders returns true if we have an open order in any direction.
func (s *Snapshot) HasOpenOrders() bool {
	return s.Books[pair.AB].HasOpenOrder || s.Books[pair.BA].HasOpenOrder
}
