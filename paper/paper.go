// Copyright (c) 2025 BVK Chaitanya

// Package paper implements an in-memory exchange with a two column order
// book. It is used for dry runs and as the collaborator in tests.
//
// Column for direction AB lists offers of currency A and column BA lists
// offers of currency B. Rates in both columns are amount of A per one unit of
// B. The top trade of a column is the offer most attractive to the takers:
// highest rate in AB column and lowest rate in BA column.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/shopspring/decimal"
)

type Options struct {
	// Username and Password are the accepted login credentials. Empty
	// username accepts any login.
	Username string
	Password string

	Now func() time.Time
}

func (v *Options) setDefaults() {
	if v.Now == nil {
		v.Now = time.Now
	}
}

type offer struct {
	amount   decimal.Decimal
	rate     decimal.Decimal
	atMarket bool
	ours     bool
	split    string
}

type Exchange struct {
	opts Options

	pair pair.Pair

	mu sync.Mutex

	loggedIn bool

	balances [2]decimal.Decimal

	columns [2][]*offer

	failNext error

	submitted []*exchange.Order
	cancels   [2]int
}

var _ exchange.Exchange = &Exchange{}

func New(p pair.Pair, opts *Options) (*Exchange, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	v := &Exchange{pair: p, opts: *opts}
	v.opts.setDefaults()
	return v, nil
}

func (v *Exchange) ExchangeName() string {
	return "paper"
}

func (v *Exchange) Pair() pair.Pair {
	return v.pair
}

// SetBalance sets our wallet balance of the currency given in direction d.
func (v *Exchange) SetBalance(d pair.Direction, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[d] = amount
}

func (v *Exchange) Balance(d pair.Direction) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[d]
}

// SetOffers replaces all offers from other traders in the column for the
// direction. Our own order is kept.
func (v *Exchange) SetOffers(d pair.Direction, quotes ...exchange.Quote) {
	v.mu.Lock()
	defer v.mu.Unlock()

	col := slices.DeleteFunc(v.columns[d], func(o *offer) bool { return !o.ours })
	for _, q := range quotes {
		col = append(col, &offer{amount: q.Amount, rate: q.Rate, atMarket: q.AtMarket})
	}
	v.columns[d] = col
	v.sortLocked(d)
}

// FailNext makes the next exchange operation fail with the given error.
func (v *Exchange) FailNext(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failNext = err
}

func (v *Exchange) takeFailureLocked() error {
	err := v.failNext
	v.failNext = nil
	return err
}

// Submitted returns all orders submitted so far.
func (v *Exchange) Submitted() []*exchange.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.submitted)
}

// Cancels returns the number of cancel requests for the direction.
func (v *Exchange) Cancels(d pair.Direction) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cancels[d]
}

// OpenOrder returns the remaining amount and rate of our open order in the
// direction.
func (v *Exchange) OpenOrder(d pair.Direction) (remaining, rate decimal.Decimal, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if o := v.oursLocked(d); o != nil {
		return o.amount, o.rate, true
	}
	return decimal.Zero, decimal.Zero, false
}

func (v *Exchange) oursLocked(d pair.Direction) *offer {
	for _, o := range v.columns[d] {
		if o.ours {
			return o
		}
	}
	return nil
}

// sortLocked orders the column with the top trade first. Offers at market
// rate are always at the top.
func (v *Exchange) sortLocked(d pair.Direction) {
	slices.SortStableFunc(v.columns[d], func(a, b *offer) int {
		if a.atMarket != b.atMarket {
			if a.atMarket {
				return -1
			}
			return 1
		}
		// Top is the least favorable rate for the poster.
		if d.Better(b.rate, a.rate) {
			return -1
		}
		if d.Better(a.rate, b.rate) {
			return 1
		}
		return 0
	})
}

func (v *Exchange) Login(ctx context.Context, user, pass string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailureLocked(); err != nil {
		return err
	}
	if v.opts.Username != "" && (user != v.opts.Username || pass != v.opts.Password) {
		return fmt.Errorf("user %q: %w", user, tcerr.ErrLoginFailed)
	}
	v.loggedIn = true
	return nil
}

func (v *Exchange) Refresh(ctx context.Context) (*exchange.Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailureLocked(); err != nil {
		return nil, err
	}

	s := &exchange.Snapshot{Time: v.opts.Now()}
	for _, d := range pair.Directions {
		b := s.Book(d)
		b.Balance = v.balances[d]
		col := v.columns[d]
		if len(col) > 0 {
			b.Top = exchange.Quote{Amount: col[0].amount, Rate: col[0].rate, AtMarket: col[0].atMarket}
			s.Rates[d] = col[0].rate
		}
		if len(col) > 1 {
			b.Next = exchange.Quote{Amount: col[1].amount, Rate: col[1].rate, AtMarket: col[1].atMarket}
		}
		if o := v.oursLocked(d); o != nil {
			b.HasOpenOrder = true
			b.Remaining = o.amount
		}
	}
	if !s.Rates[pair.AB].IsZero() && !s.Rates[pair.BA].IsZero() {
		s.Spread = s.Rates[pair.BA].Sub(s.Rates[pair.AB])
	}
	return s, nil
}

// Submit places our order in the column. An existing order of ours in the
// same direction is replaced and its remaining amount is refunded.
func (v *Exchange) Submit(ctx context.Context, order *exchange.Order) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailureLocked(); err != nil {
		return err
	}
	if !order.Give.IsPositive() || !order.Receive.IsPositive() {
		return fmt.Errorf("order amounts must be positive: %w", os.ErrInvalid)
	}
	d := order.Direction
	available := v.balances[d]
	if o := v.oursLocked(d); o != nil {
		available = available.Add(o.amount)
	}
	if order.Give.GreaterThan(available) {
		return fmt.Errorf("%s order needs %s, have %s: %w", d, order.Give, available, tcerr.ErrNoMoney)
	}
	v.removeOursLocked(d)
	v.balances[d] = v.balances[d].Sub(order.Give)
	o := &offer{
		amount: order.Give,
		rate:   d.EffectiveRate(order.Give, order.Receive),
		ours:   true,
		split:  order.Split,
	}
	v.columns[d] = append(v.columns[d], o)
	v.sortLocked(d)

	cp := *order
	v.submitted = append(v.submitted, &cp)
	slog.Debug("paper order is placed", "direction", d, "give", order.Give, "receive", order.Receive, "rate", o.rate)
	return nil
}

func (v *Exchange) removeOursLocked(d pair.Direction) {
	col := v.columns[d]
	for i, o := range col {
		if o.ours {
			v.balances[d] = v.balances[d].Add(o.amount)
			v.columns[d] = slices.Delete(col, i, i+1)
			return
		}
	}
}

func (v *Exchange) Cancel(ctx context.Context, d pair.Direction) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailureLocked(); err != nil {
		return err
	}
	v.cancels[d]++
	v.removeOursLocked(d)
	return nil
}

// Fill executes the given amount of our open order in the direction and
// credits the received amount to the other wallet. The order is removed when
// it is filled completely.
func (v *Exchange) Fill(d pair.Direction, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	col := v.columns[d]
	for i, o := range col {
		if !o.ours {
			continue
		}
		amount = decimal.Min(amount, o.amount)
		received := d.ReceiveAmount(amount, o.rate)
		v.balances[d.Opposite()] = v.balances[d.Opposite()].Add(received)
		o.amount = o.amount.Sub(amount)
		if o.amount.IsZero() {
			v.columns[d] = slices.Delete(col, i, i+1)
		}
		return nil
	}
	return fmt.Errorf("no open order in direction %s: %w", d, os.ErrNotExist)
}
