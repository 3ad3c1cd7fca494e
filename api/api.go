// Copyright (c) 2025 BVK Chaitanya

// Package api defines the request and response types of the tcbot http
// api. All requests are json encoded POST requests.
package api

import (
	"time"

	"github.com/bvk/tcbot/gobs"
	"github.com/shopspring/decimal"
)

const (
	StartPath     = "/tcbot/start"
	StopPath      = "/tcbot/stop"
	StatusPath    = "/tcbot/status"
	ConfigSetPath = "/tcbot/config/set"
	TradesPath    = "/tcbot/trades"

	// EventsPath is a websocket endpoint that streams trade events as json
	// encoded Event messages.
	EventsPath = "/tcbot/events"
)

type StartRequest struct {
}

type StartResponse struct {
	Running bool
}

type StopRequest struct {
}

type StopResponse struct {
	Running bool
}

type StatusRequest struct {
}

type TraderStatus struct {
	Direction string

	Started  bool
	HoldsTop bool

	// LastRate and CurrentRate are the ledger entry that gates this
	// direction.
	LastRate    decimal.Decimal
	CurrentRate decimal.Decimal

	SplitTrades string
	TradeAll    bool
	Amount      decimal.Decimal

	Current *gobs.TradeRecord `json:",omitempty"`
}

type StatusResponse struct {
	Exchange string
	Pair     string

	Running bool

	// Error is the failure that stopped the last run, if any.
	Error string `json:",omitempty"`

	LastTradeTime time.Time

	Traders []*TraderStatus
}

type ConfigSetRequest struct {
	Direction string
	Key       string
	Value     string
}

type ConfigSetResponse struct {
	Direction   string
	SplitTrades string
	TradeAll    bool
	Amount      decimal.Decimal
}

type TradesRequest struct {
	// Direction limits the result to one direction when not empty.
	Direction string

	// Period selects trades created in a named period like today or
	// this-week, or in a duration like 24h ending now. Empty means all.
	Period string

	// Limit is the maximum number of most recent trades. Zero means all.
	Limit int
}

type TradeSummary struct {
	Direction string

	NumTrades    int
	NumOpen      int
	NumCancelled int

	Given    decimal.Decimal
	Received decimal.Decimal
	AvgRate  decimal.Decimal
}

type TradesResponse struct {
	Trades    []*gobs.TradeRecord
	Summaries []*TradeSummary
}

type Event struct {
	Kind  string
	Time  time.Time
	Trade *gobs.TradeRecord
}
