// Copyright (c) 2025 BVK Chaitanya

// Package exchange defines the contracts between the trading core and an
// exchange that shows a polled order book with two columns, one per
// direction.
package exchange

import (
	"context"

	"github.com/bvk/tcbot/pair"
	"github.com/shopspring/decimal"
)

// Order is a limit order that offers Give amount for Receive amount.
type Order struct {
	Direction pair.Direction

	Give    decimal.Decimal
	Receive decimal.Decimal

	// Split is the exchange specific split-trades setting passed through with
	// the order. Empty means no split.
	Split string
}

type MarketSource interface {
	// Refresh fetches a new snapshot of the market. Connectivity failures are
	// reported with errors wrapping tcerr.ErrConnection.
	Refresh(ctx context.Context) (*Snapshot, error)
}

type OrderSubmitter interface {
	Submit(ctx context.Context, order *Order) error

	// Cancel removes our open order in the direction, if any. Cancelling when
	// there is no open order is not an error.
	Cancel(ctx context.Context, d pair.Direction) error
}

type Authenticator interface {
	// Login starts a new session. Rejected credentials fail with
	// tcerr.ErrLoginFailed.
	Login(ctx context.Context, user, pass string) error
}

type Exchange interface {
	MarketSource
	OrderSubmitter
	Authenticator

	ExchangeName() string
	Pair() pair.Pair
}
