// Copyright (c) 2025 BVK Chaitanya

// Package trader implements the per-direction trading state machine.
//
// A Trader owns at most one open trade in its direction. It reads the
// ledger entry that gates its own direction and writes the entry of the
// opposite direction, which is gated by the trades it makes.
package trader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvk/tcbot/balancer"
	"github.com/bvk/tcbot/config"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/ledger"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/bvk/tcbot/trade"
	"github.com/shopspring/decimal"
)

// Sink is notified when trades are created and closed.
type Sink interface {
	AddTrade(ctx context.Context, t *trade.Trade) error
	CompleteTrade(ctx context.Context, t *trade.Trade) error
}

type Options struct {
	Balancer balancer.Params

	// SpreadLimit is the sanity bound on the absolute spread.
	SpreadLimit decimal.Decimal

	// LowRate is the floor at or below which top rates are not traded.
	LowRate decimal.Decimal

	// IdleReset is the duration without any trade placement after which the
	// ratchet is reset.
	IdleReset time.Duration

	Now func() time.Time
}

func (v *Options) setDefaults() {
	if v.SpreadLimit.IsZero() {
		v.SpreadLimit = decimal.NewFromInt(10000)
	}
	if v.LowRate.IsZero() {
		v.LowRate = decimal.NewFromInt(10)
	}
	if v.IdleReset == 0 {
		v.IdleReset = 300 * time.Second
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *Options) Check() error {
	if v.SpreadLimit.IsNegative() || v.LowRate.IsNegative() {
		return fmt.Errorf("spread limit and low rate cannot be negative: %w", os.ErrInvalid)
	}
	if v.IdleReset < 0 {
		return fmt.Errorf("idle reset duration cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type Trader struct {
	dir  pair.Direction
	peer pair.Direction
	pair pair.Pair

	opts Options

	ledger   *ledger.Ledger
	balancer *balancer.Balancer

	market exchange.MarketSource
	orders exchange.OrderSubmitter
	sink   Sink

	started       atomic.Bool
	pendingCancel atomic.Bool

	config atomic.Pointer[config.Direction]

	// mu serializes the poll cycles with status queries.
	mu sync.Mutex

	current *trade.Trade

	snap *exchange.Snapshot

	idleMark time.Time
}

type Status struct {
	Direction pair.Direction
	Started   bool
	HoldsTop  bool

	// Gate is the ledger entry that gates this direction.
	Gate ledger.Entry

	Config config.Direction

	Current *gobs.TradeRecord
}

func New(d pair.Direction, p pair.Pair, l *ledger.Ledger, ex exchange.Exchange, sink Sink, cfg *config.Direction, opts *Options) (*Trader, error) {
	if opts == nil {
		opts = new(Options)
	}
	t := &Trader{
		dir:    d,
		peer:   d.Opposite(),
		pair:   p,
		opts:   *opts,
		ledger: l,
		market: ex,
		orders: ex,
		sink:   sink,
	}
	t.opts.setDefaults()
	if err := t.opts.Check(); err != nil {
		return nil, err
	}
	b, err := balancer.New(l, &t.opts.Balancer)
	if err != nil {
		return nil, err
	}
	t.balancer = b
	if cfg == nil {
		cfg = new(config.Direction)
	}
	c := *cfg
	t.config.Store(&c)
	return t, nil
}

func (t *Trader) String() string {
	return "trader:" + t.dir.String()
}

func (t *Trader) Direction() pair.Direction {
	return t.dir
}

// Start marks the trader as started. Idle reset window starts now.
func (t *Trader) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.idleMark = t.opts.Now()
	t.started.Store(true)
	slog.Info("trader is started", "direction", t.dir)
}

// Stop marks the trader as stopped. A cycle in progress aborts at its next
// safe point; open orders are cancelled by Shutdown.
func (t *Trader) Stop() {
	if t.started.Swap(false) {
		slog.Info("trader is stopped", "direction", t.dir)
	}
}

func (t *Trader) IsStarted() bool {
	return t.started.Load()
}

func (t *Trader) checkStopped() error {
	if !t.started.Load() {
		return fmt.Errorf("%s: %w", t.dir, tcerr.ErrBotStopped)
	}
	return nil
}

// SetConfig replaces the trading configuration. Open trade in this direction
// is cancelled in the next poll cycle if the trader is running.
func (t *Trader) SetConfig(c *config.Direction) {
	v := *c
	t.config.Store(&v)
	if t.started.Load() {
		t.pendingCancel.Store(true)
	}
}

func (t *Trader) Config() config.Direction {
	return *t.config.Load()
}

func (t *Trader) Status() *Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Status{
		Direction: t.dir,
		Started:   t.started.Load(),
		HoldsTop:  t.ledger.HoldsTop(t.dir),
		Gate:      t.ledger.Entry(t.dir),
		Config:    t.Config(),
	}
	if t.current != nil {
		s.Current = t.current.Record()
	}
	return s
}

// Shutdown cancels the open order of this direction on a best-effort basis.
func (t *Trader) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.cancelTrades(ctx); err != nil {
		slog.Warn("could not cancel open trades on shutdown", "direction", t.dir, "err", err)
		return err
	}
	return nil
}
