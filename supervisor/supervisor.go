// Copyright (c) 2025 BVK Chaitanya

// Package supervisor drives the two directional traders through repeated
// poll cycles and triages their faults.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bvk/tcbot/config"
	"github.com/bvk/tcbot/ctxutil"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/ledger"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/bvk/tcbot/trader"
	"github.com/bvkgo/kv"
	"github.com/visvasity/topic"
)

type Options struct {
	// PollInterval is the delay between two poll cycles of a trader.
	PollInterval time.Duration

	Trader trader.Options
}

func (v *Options) setDefaults() {
	if v.PollInterval == 0 {
		v.PollInterval = 175 * time.Millisecond
	}
}

func (v *Options) Check() error {
	if v.PollInterval < 0 {
		return fmt.Errorf("poll interval cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type Supervisor struct {
	opts Options

	db kv.Database

	ex exchange.Exchange

	cfg *config.Store

	ledger *ledger.Ledger

	traders [2]*trader.Trader

	cg ctxutil.CloseGroup

	saveMu       sync.Mutex
	savedVersion uint64

	mu      sync.Mutex
	run     *runState
	lastErr error
}

// runState tracks the poll loops of one Start.
type runState struct {
	wg     sync.WaitGroup
	cancel context.CancelCauseFunc
	done   chan struct{}
}

type Status struct {
	Running bool

	// Err is the fatal error that stopped the last run, if any.
	Err string

	LastTradeTime time.Time

	Traders []*trader.Status
}

// New creates a supervisor with the ledger loaded from the database.
func New(ctx context.Context, db kv.Database, ex exchange.Exchange, cfg *config.Store, sink trader.Sink, opts *Options) (*Supervisor, error) {
	if opts == nil {
		opts = new(Options)
	}
	s := &Supervisor{
		opts: *opts,
		db:   db,
		ex:   ex,
		cfg:  cfg,
	}
	s.opts.setDefaults()
	if err := s.opts.Check(); err != nil {
		return nil, err
	}

	var l *ledger.Ledger
	load := func(ctx context.Context, r kv.Reader) (err error) {
		l, err = ledger.Load(ctx, r)
		return err
	}
	if err := kv.WithReader(ctx, db, load); err != nil {
		return nil, err
	}
	s.ledger = l
	s.savedVersion = l.Version()

	for _, d := range pair.Directions {
		c := cfg.Get(d)
		t, err := trader.New(d, ex.Pair(), l, ex, sink, &c, &s.opts.Trader)
		if err != nil {
			return nil, err
		}
		s.traders[d] = t
	}

	receiver, err := cfg.Subscribe()
	if err != nil {
		return nil, err
	}
	s.cg.Go("config-watcher", func(ctx context.Context) {
		s.watchConfig(ctx, receiver)
	})
	return s, nil
}

// Close stops the traders, if they are running, without resetting the
// ledger so that the ratchet survives a restart.
func (s *Supervisor) Close() error {
	s.halt()
	s.cg.Close()
	return nil
}

func (s *Supervisor) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *Supervisor) Trader(d pair.Direction) *trader.Trader {
	return s.traders[d]
}

func (s *Supervisor) watchConfig(ctx context.Context, receiver *topic.Receiver[*config.Change]) {
	defer receiver.Close()

	stopf := context.AfterFunc(ctx, receiver.Close)
	defer stopf()

	for ctx.Err() == nil {
		change, err := receiver.Receive()
		if err != nil {
			return
		}
		s.traders[change.Direction].SetConfig(&change.Config)
	}
}

// Start launches one poll loop per direction. Returns os.ErrExist if the
// loops are already running.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil {
		return fmt.Errorf("supervisor is already running: %w", os.ErrExist)
	}

	runCtx, cancel := context.WithCancelCause(s.cg.Context())
	r := &runState{cancel: cancel, done: make(chan struct{})}
	s.run = r
	s.lastErr = nil

	for _, t := range s.traders {
		t.Start()
	}
	for _, t := range s.traders {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			s.loop(runCtx, t)
		}()
	}
	go func() {
		r.wg.Wait()
		r.cancel(os.ErrClosed)

		s.mu.Lock()
		if s.run == r {
			s.run = nil
		}
		s.mu.Unlock()
		close(r.done)
	}()
	slog.Info("trading is started", "pair", s.ex.Pair(), "exchange", s.ex.ExchangeName(), "poll-interval", s.opts.PollInterval)
	return nil
}

// Stop stops both traders, waits for their loops to cancel open orders and
// resets the ledger.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.halt()
	for _, d := range pair.Directions {
		s.ledger.Reset(d)
	}
	if err := s.flushLedger(ctx); err != nil {
		return err
	}
	slog.Info("trading is stopped")
	return nil
}

func (s *Supervisor) halt() {
	for _, t := range s.traders {
		t.Stop()
	}

	s.mu.Lock()
	r := s.run
	s.mu.Unlock()

	if r != nil {
		<-r.done
	}
}

// Wait blocks till both loops exit and returns the fatal error if any.
func (s *Supervisor) Wait() error {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()

	if r != nil {
		<-r.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

func (s *Supervisor) Status() *Status {
	s.mu.Lock()
	st := &Status{Running: s.run != nil}
	if s.lastErr != nil {
		st.Err = s.lastErr.Error()
	}
	s.mu.Unlock()

	st.LastTradeTime = s.ledger.LastTradeTime()
	for _, t := range s.traders {
		st.Traders = append(st.Traders, t.Status())
	}
	return st
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastErr == nil {
		s.lastErr = err
	}
	for _, t := range s.traders {
		t.Stop()
	}
	if s.run != nil {
		s.run.cancel(err)
	}
}

func (s *Supervisor) loop(ctx context.Context, t *trader.Trader) {
	d := t.Direction()
	for ctx.Err() == nil && t.IsStarted() {
		ctxutil.Sleep(ctx, s.opts.PollInterval)

		err := t.Cycle(ctx)
		if ferr := s.flushLedger(ctx); ferr != nil && !errors.Is(ferr, context.Canceled) {
			slog.Warn("could not save the ledger state (will retry)", "direction", d, "err", ferr)
		}

		switch tcerr.Classify(err) {
		case tcerr.Continue:
		case tcerr.Stop:
		case tcerr.Skip:
			slog.Debug("not a good time to trade", "direction", d, "err", err)
		case tcerr.Connectivity:
			slog.Warn("connection interrupted", "direction", d, "err", err)
		default:
			slog.Error("trader has failed with an unexpected error", "direction", d, "err", err)
			s.fail(err)
		}
	}

	// Cancel any open order before quitting; run context may be canceled
	// already.
	if err := t.Shutdown(context.Background()); err != nil {
		slog.Warn("open order could not be cancelled before quitting", "direction", d, "err", err)
	}
	if err := s.flushLedger(context.Background()); err != nil {
		slog.Error("dirty ledger state could not be saved before quitting (ignored)", "direction", d, "err", err)
	}
}

func (s *Supervisor) flushLedger(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	version := s.ledger.Version()
	if version == s.savedVersion {
		return nil
	}
	if err := kv.WithReadWriter(ctx, s.db, func(ctx context.Context, rw kv.ReadWriter) error {
		return s.ledger.Save(ctx, rw)
	}); err != nil {
		return err
	}
	s.savedVersion = version
	return nil
}
