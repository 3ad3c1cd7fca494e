// Copyright (c) 2025 BVK Chaitanya

package trade

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/pair"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade tracks the fill progress of one open order. Identity fields are fixed
// at creation time.
type Trade struct {
	id        string
	direction pair.Direction

	giveCurrency    pair.Currency
	receiveCurrency pair.Currency

	give      decimal.Decimal
	receive   decimal.Decimal
	startRate decimal.Decimal

	createTime time.Time
	finishTime time.Time
	cancelled  bool

	remaining   decimal.Decimal
	currentRate decimal.Decimal
}

func New(p pair.Pair, d pair.Direction, give, receive, rate decimal.Decimal, now time.Time) (*Trade, error) {
	if !give.IsPositive() || !receive.IsPositive() {
		return nil, fmt.Errorf("trade amounts must be positive: %w", os.ErrInvalid)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("trade rate must be positive: %w", os.ErrInvalid)
	}
	t := &Trade{
		id:              uuid.New().String(),
		direction:       d,
		giveCurrency:    p.Give(d),
		receiveCurrency: p.Receive(d),
		give:            give,
		receive:         receive,
		startRate:       rate,
		createTime:      now,
		remaining:       give,
		currentRate:     rate,
	}
	return t, nil
}

func (t *Trade) String() string {
	return fmt.Sprintf("%s:%s%s->%s%s@%s", t.direction, t.give, t.giveCurrency, t.receive, t.receiveCurrency, t.startRate)
}

func (t *Trade) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", t.id),
		slog.String("direction", t.direction.String()),
		slog.String("give", t.give.String()),
		slog.String("receive", t.receive.String()),
		slog.String("start-rate", t.startRate.String()),
		slog.String("remaining", t.remaining.String()),
		slog.String("current-rate", t.currentRate.String()))
}

func (t *Trade) ID() string { return t.id }
func (t *Trade) Direction() pair.Direction { return t.direction }
func (t *Trade) Give() decimal.Decimal { return t.give }
func (t *Trade) Receive() decimal.Decimal { return t.receive }
func (t *Trade) StartRate() decimal.Decimal { return t.startRate }
func (t *Trade) Remaining() decimal.Decimal { return t.remaining }
func (t *Trade) CurrentRate() decimal.Decimal { return t.currentRate }
func (t *Trade) CreateTime() time.Time { return t.createTime }
func (t *Trade) FinishTime() time.Time { return t.finishTime }
func (t *Trade) IsFinished() bool { return !t.finishTime.IsZero() }
func (t *Trade) Filled() decimal.Decimal { return t.give.Sub(t.remaining) }

// IsUntouched returns true if no part of the trade is filled yet.
func (t *Trade) IsUntouched() bool {
	return t.remaining.Equal(t.give)
}

// Update records the remaining amount observed on the exchange. When the
// exchange displays a rate for our order, it is used as the current rate;
// otherwise the current rate is recomputed from the remaining amount, which
// may drift from the start rate due to rounding of the receive amount.
func (t *Trade) Update(remaining, displayed decimal.Decimal) {
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if remaining.GreaterThan(t.give) {
		remaining = t.give
	}
	t.remaining = remaining
	if remaining.IsZero() {
		t.currentRate = t.startRate
		return
	}
	if displayed.IsPositive() {
		t.currentRate = displayed
		return
	}
	rest := t.direction.ReceiveAmount(remaining, t.startRate)
	if rate := t.direction.EffectiveRate(remaining, rest); rate.IsPositive() {
		t.currentRate = rate
	}
}

// Finish marks the trade as closed. Cancelled is true when the trade was
// removed before the remaining amount reached zero.
func (t *Trade) Finish(now time.Time) {
	if t.IsFinished() {
		return
	}
	t.finishTime = now
	t.cancelled = !t.remaining.IsZero()
}

func (t *Trade) Record() *gobs.TradeRecord {
	return &gobs.TradeRecord{
		ID:              t.id,
		Direction:       t.direction.String(),
		GiveCurrency:    string(t.giveCurrency),
		ReceiveCurrency: string(t.receiveCurrency),
		Give:            t.give,
		Receive:         t.receive,
		Remaining:       t.remaining,
		StartRate:       t.startRate,
		CurrentRate:     t.currentRate,
		CreateTime:      t.createTime,
		FinishTime:      t.finishTime,
		Cancelled:       t.cancelled,
	}
}

func FromRecord(v *gobs.TradeRecord) (*Trade, error) {
	d, err := pair.ParseDirection(v.Direction)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(v.ID); err != nil {
		return nil, fmt.Errorf("invalid trade id %q: %w", v.ID, os.ErrInvalid)
	}
	t := &Trade{
		id:              v.ID,
		direction:       d,
		giveCurrency:    pair.Currency(v.GiveCurrency),
		receiveCurrency: pair.Currency(v.ReceiveCurrency),
		give:            v.Give,
		receive:         v.Receive,
		startRate:       v.StartRate,
		createTime:      v.CreateTime,
		finishTime:      v.FinishTime,
		cancelled:       v.Cancelled,
		remaining:       v.Remaining,
		currentRate:     v.CurrentRate,
	}
	return t, nil
}
