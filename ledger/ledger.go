// Copyright (c) 2025 BVK Chaitanya

// Package ledger implements the rate ratchet shared by the two traders.
//
// Entry for a direction holds the bar that gates new trades in that
// direction. The bar is produced by trades of the opposite direction: a leg
// that completed at some rate sets the rate that the returning leg must
// match or improve. All comparisons use the favorability sense of the gated
// direction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/kvutil"
	"github.com/bvk/tcbot/pair"
	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"
)

const StateKey = "/ledger/state"

type Entry struct {
	// LastRate is the ratchet. Zero means there is no ratchet yet.
	LastRate decimal.Decimal

	// CurrentRate is the rate of the open trade feeding this entry, or zero.
	CurrentRate decimal.Decimal
}

type Ledger struct {
	mu sync.Mutex

	entries [2]Entry

	// holdsTop[d] is true when the open trade of direction d is the top trade
	// in the book.
	holdsTop [2]bool

	lastTradeTime time.Time

	// version is incremented on every change to the persistent state.
	version uint64
}

func New() *Ledger {
	return &Ledger{}
}

func (l *Ledger) changed() {
	l.version++
}

// Version returns a counter that changes whenever the ledger state changes.
func (l *Ledger) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *Ledger) Entry(d pair.Direction) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[d]
}

// Ratchet returns true if the candidate rate is at least as favorable as the
// last rate for the direction or if there is no ratchet yet.
func (l *Ledger) Ratchet(d pair.Direction, candidate decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last := l.entries[d].LastRate
	if last.IsZero() {
		return true
	}
	return !d.Better(last, candidate)
}

// HasRatchet returns true if the direction has a non-zero last rate.
func (l *Ledger) HasRatchet(d pair.Direction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.entries[d].LastRate.IsZero()
}

func (l *Ledger) advance(d pair.Direction, rate decimal.Decimal) {
	if rate.IsZero() {
		return
	}
	e := &l.entries[d]
	if e.LastRate.IsZero() || d.Better(rate, e.LastRate) {
		e.LastRate = rate
		l.changed()
	}
}

// Advance moves the last rate to the given rate only if it is more favorable
// or if the last rate is unset. Current rate is not modified.
func (l *Ledger) Advance(d pair.Direction, rate decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance(d, rate)
}

// Fold is like Advance, but also clears the current rate.
func (l *Ledger) Fold(d pair.Direction, rate decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance(d, rate)
	if e := &l.entries[d]; !e.CurrentRate.IsZero() {
		e.CurrentRate = decimal.Zero
		l.changed()
	}
}

func (l *Ledger) SetCurrent(d pair.Direction, rate decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e := &l.entries[d]; !e.CurrentRate.Equal(rate) {
		e.CurrentRate = rate
		l.changed()
	}
}

// InitLast sets the last rate only when it is unset.
func (l *Ledger) InitLast(d pair.Direction, rate decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e := &l.entries[d]; e.LastRate.IsZero() && !rate.IsZero() {
		e.LastRate = rate
		l.changed()
	}
}

// Reset clears both last and current rates for the direction.
func (l *Ledger) Reset(d pair.Direction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e := &l.entries[d]; !e.LastRate.IsZero() || !e.CurrentRate.IsZero() {
		*e = Entry{}
		l.changed()
	}
}

func (l *Ledger) HoldsTop(d pair.Direction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdsTop[d]
}

func (l *Ledger) SetHoldsTop(d pair.Direction, v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holdsTop[d] != v {
		l.holdsTop[d] = v
		l.changed()
	}
}

// TouchTrade records the time of a trade placement in either direction.
func (l *Ledger) TouchTrade(at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if at.After(l.lastTradeTime) {
		l.lastTradeTime = at
		l.changed()
	}
}

func (l *Ledger) LastTradeTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastTradeTime
}

func (l *Ledger) State() *gobs.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	toGob := func(d pair.Direction) *gobs.LedgerEntry {
		return &gobs.LedgerEntry{
			LastRate:    l.entries[d].LastRate,
			CurrentRate: l.entries[d].CurrentRate,
			HoldsTop:    l.holdsTop[d],
		}
	}
	return &gobs.LedgerState{
		AB:            toGob(pair.AB),
		BA:            toGob(pair.BA),
		LastTradeTime: l.lastTradeTime,
	}
}

func (l *Ledger) restore(s *gobs.LedgerState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fromGob := func(d pair.Direction, v *gobs.LedgerEntry) {
		if v == nil {
			return
		}
		l.entries[d] = Entry{LastRate: v.LastRate, CurrentRate: v.CurrentRate}
		l.holdsTop[d] = v.HoldsTop
	}
	fromGob(pair.AB, s.AB)
	fromGob(pair.BA, s.BA)
	l.lastTradeTime = s.LastTradeTime
}

// Load reads the ledger state from the database. A missing state is not an
// error and returns an empty ledger.
func Load(ctx context.Context, g kv.Getter) (*Ledger, error) {
	l := New()
	s, err := kvutil.Get[gobs.LedgerState](ctx, g, StateKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("could not load ledger state: %w", err)
	}
	l.restore(s)
	return l, nil
}

func (l *Ledger) Save(ctx context.Context, s kv.Setter) error {
	if err := kvutil.Set(ctx, s, StateKey, l.State()); err != nil {
		return fmt.Errorf("could not save ledger state: %w", err)
	}
	return nil
}
