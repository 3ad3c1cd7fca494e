// Copyright (c) 2025 BVK Chaitanya

// Package config holds the per-direction trading settings. Settings are kept
// in a YAML file and can be changed while the bot is running; every change is
// published to the subscribers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bvk/tcbot/pair"
	"github.com/shopspring/decimal"
)

const (
	KeySplitTrades = "split_trades"
	KeyTradeAll    = "trade_all"
	KeyAmount      = "amount"
)

var Keys = []string{KeySplitTrades, KeyTradeAll, KeyAmount}

// Direction is the trading configuration for one direction.
type Direction struct {
	// SplitTrades is passed through to the exchange with every order. Empty
	// value disables splitting.
	SplitTrades string

	// TradeAll uses the whole balance for every trade when true.
	TradeAll bool

	// Amount is the maximum amount to trade when TradeAll is false.
	Amount decimal.Decimal
}

func (c *Direction) Check() error {
	if c.Amount.IsNegative() {
		return fmt.Errorf("amount cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

// Set updates one setting from its string form.
func (c *Direction) Set(key, value string) error {
	switch strings.ToLower(key) {
	case KeySplitTrades:
		c.SplitTrades = value
		return nil

	case KeyTradeAll:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s takes a boolean value: %w", KeyTradeAll, os.ErrInvalid)
		}
		c.TradeAll = v
		return nil

	case KeyAmount:
		v, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("could not parse amount %q: %w", value, err)
		}
		if v.IsNegative() {
			return fmt.Errorf("amount cannot be negative: %w", os.ErrInvalid)
		}
		c.Amount = v
		return nil
	}
	return fmt.Errorf("invalid config key %q: %w", key, os.ErrInvalid)
}

func (c *Direction) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case KeySplitTrades:
		return c.SplitTrades, nil
	case KeyTradeAll:
		return strconv.FormatBool(c.TradeAll), nil
	case KeyAmount:
		return c.Amount.String(), nil
	}
	return "", fmt.Errorf("invalid config key %q: %w", key, os.ErrInvalid)
}

// Change describes one update to the configuration.
type Change struct {
	Direction pair.Direction

	Key   string
	Value string

	// Config is the direction's configuration after the change.
	Config Direction
}
