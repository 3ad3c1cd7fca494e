// Copyright (c) 2025 BVK Chaitanya

// Package tcerr defines the errors reported by the trading core and the
// policy to handle them at the poll cycle boundary.
package tcerr

import (
	"context"
	"errors"
	"net"
	"net/url"
)

var (
	// ErrBotStopped is reported when the bot was stopped between two steps of
	// a poll cycle.
	ErrBotStopped = errors.New("bot is stopped")

	ErrBadSpread     = errors.New("bad spread")
	ErrLowRate       = errors.New("rate is too low")
	ErrTradeGap      = errors.New("rate is too far from the top trade")
	ErrWorseRate     = errors.New("rate is worse than the acceptable rate")
	ErrMarketAtPrice = errors.New("trade is at market price")
	ErrNoMoney       = errors.New("not enough balance")

	ErrLoginFailed = errors.New("login failed")

	// ErrConnection wraps transport level failures from the exchange clients.
	ErrConnection = errors.New("connection failure")
)

type Action int

const (
	// Continue means the cycle completed without any error.
	Continue Action = iota

	// Stop means the bot is stopped and the loop must exit quietly.
	Stop

	// Skip means the cycle ended early cause it is not a good time to trade.
	Skip

	// Connectivity means the exchange could not be reached; next cycle will try
	// again.
	Connectivity

	// Fatal means an unexpected failure that must terminate the loop.
	Fatal
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case Skip:
		return "skip"
	case Connectivity:
		return "connectivity"
	}
	return "fatal"
}

var skipErrors = []error{
	ErrBadSpread,
	ErrLowRate,
	ErrTradeGap,
	ErrWorseRate,
	ErrMarketAtPrice,
	ErrNoMoney,
}

// Classify maps an error from a poll cycle to the action the supervisor must
// take.
func Classify(err error) Action {
	if err == nil {
		return Continue
	}
	if errors.Is(err, ErrBotStopped) || errors.Is(err, context.Canceled) {
		return Stop
	}
	for _, v := range skipErrors {
		if errors.Is(err, v) {
			return Skip
		}
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, context.DeadlineExceeded) {
		return Connectivity
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return Connectivity
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return Connectivity
	}
	return Fatal
}
