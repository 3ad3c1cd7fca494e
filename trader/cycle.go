// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bvk/tcbot/balancer"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/tcerr"
	"github.com/bvk/tcbot/trade"
	"github.com/shopspring/decimal"
)

// Cycle runs one poll cycle: refresh the market, apply the idle reset policy
// and take one step of the state machine.
func (t *Trader) Cycle(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkStopped(); err != nil {
		return err
	}
	if err := t.refresh(ctx); err != nil {
		return err
	}
	if t.pendingCancel.Swap(false) {
		slog.Info("cancelling open trade to apply the new config", "direction", t.dir)
		return t.cancelTrades(ctx)
	}
	if err := t.checkIdle(ctx); err != nil {
		return err
	}
	return t.step(ctx)
}

func (t *Trader) step(ctx context.Context) error {
	book := t.snap.Book(t.dir)
	if !book.HasOpenOrder {
		// Our order may be gone due to a fill or cancel that the exchange
		// reflects late; either way the local trade is finished.
		if t.current != nil {
			t.fullyCompleteTrade(ctx)
		}
		return t.doTrade(ctx)
	}

	if t.current != nil {
		better, err := t.checkBetterRate(ctx)
		if err != nil {
			return err
		}
		if better {
			return t.doTrade(ctx)
		}
		if err := t.checkCurrentWorseTrade(ctx); err != nil {
			return err
		}
		return t.checkTradeGap(ctx)
	}

	return t.cancelTrades(ctx)
}

func (t *Trader) refresh(ctx context.Context) error {
	snap, err := t.market.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("%s: could not refresh the market: %w", t.dir, err)
	}
	t.snap = snap
	return nil
}

// checkIdle resets the ratchet gating this direction and cancels the open
// order when no trade was placed in either direction for the idle window.
// Reset is skipped while our trade is the top trade. This may result in a
// loss.
func (t *Trader) checkIdle(ctx context.Context) error {
	now := t.opts.Now()
	last := t.ledger.LastTradeTime()
	if t.idleMark.After(last) {
		last = t.idleMark
	}
	if now.Sub(last) <= t.opts.IdleReset {
		return nil
	}
	t.idleMark = now
	if t.ledger.HoldsTop(t.dir) {
		return nil
	}
	slog.Info("no recent trades; resetting the ratchet", "direction", t.dir, "idle", now.Sub(last), "gate", t.ledger.Entry(t.dir))
	t.ledger.Reset(t.dir)
	return t.cancelTrades(ctx)
}

// setCurrent replaces the current trade. Replaced trade is finished and
// reported to the sink.
func (t *Trader) setCurrent(ctx context.Context, v *trade.Trade) {
	old := t.current
	t.current = v
	t.ledger.SetHoldsTop(t.dir, false)
	if old != nil {
		old.Finish(t.opts.Now())
		if t.sink != nil {
			if err := t.sink.CompleteTrade(ctx, old); err != nil {
				slog.Warn("could not record trade completion (ignored)", "direction", t.dir, "trade", old, "err", err)
			}
		}
	}
}

// fullyCompleteTrade folds the current trade into the ledger and clears it.
func (t *Trader) fullyCompleteTrade(ctx context.Context) {
	completed := t.current
	if completed == nil {
		return
	}
	completed.Update(decimal.Zero, decimal.Zero)
	t.ledger.Fold(t.peer, completed.StartRate())
	slog.Info("trade is complete", "direction", t.dir, "trade", completed)
	t.setCurrent(ctx, nil)
}

// updateCurrentTrade records a new remaining amount for the current trade. A
// zero remaining amount completes the trade.
func (t *Trader) updateCurrentTrade(ctx context.Context, remaining, displayed decimal.Decimal) {
	if t.current == nil {
		return
	}
	if !remaining.IsPositive() {
		t.fullyCompleteTrade(ctx)
		return
	}
	if remaining.LessThan(t.current.Remaining()) {
		start := t.current.StartRate()
		t.ledger.SetCurrent(t.peer, start)
		t.ledger.Advance(t.peer, start)
		t.current.Update(remaining, displayed)
		slog.Info("trade is partially filled", "direction", t.dir, "trade", t.current)
	}
}

// cancelTrades clears the current trade and cancels our open order. Current
// rate of the ledger is cleared even when the cancel request fails.
func (t *Trader) cancelTrades(ctx context.Context) error {
	if t.current != nil {
		remaining := t.current.Remaining()
		if t.snap != nil {
			remaining = t.snap.Book(t.dir).Remaining
		}
		t.updateCurrentTrade(ctx, remaining, decimal.Zero)
		t.setCurrent(ctx, nil)
	}
	err := t.orders.Cancel(ctx, t.dir)
	t.ledger.SetCurrent(t.peer, decimal.Zero)
	if err != nil {
		return fmt.Errorf("%s: could not cancel open order: %w", t.dir, err)
	}
	return nil
}

func (t *Trader) peerDisplayedRate() decimal.Decimal {
	return t.snap.Rate(t.peer)
}

// checkBetterRate returns true if a rate better than our gate is available
// to match in the book. It also updates the remaining amount of the current
// trade and the holds-top flag.
func (t *Trader) checkBetterRate(ctx context.Context) (bool, error) {
	if err := t.checkStopped(); err != nil {
		return false, err
	}

	book := t.snap.Book(t.dir)
	top, err := t.snap.Top(t.dir)
	if err != nil {
		return false, err
	}
	ours := book.Remaining

	if ours.IsPositive() && !ours.Equal(top.Amount) {
		t.updateCurrentTrade(ctx, ours, decimal.Zero)
		t.ledger.SetHoldsTop(t.dir, false)

		gate := t.ledger.Entry(t.dir)
		switch {
		case !gate.LastRate.IsZero() && t.dir.Better(top.Rate, gate.LastRate):
			return true, nil
		case !gate.CurrentRate.IsZero() && t.dir.Better(top.Rate, gate.CurrentRate):
			return true, nil
		case gate.LastRate.IsZero() && gate.CurrentRate.IsZero() && t.dir.Better(top.Rate, t.peerDisplayedRate()):
			return true, nil
		}
		return false, nil
	}

	if book.HasOpenOrder {
		t.ledger.SetHoldsTop(t.dir, true)
		t.updateCurrentTrade(ctx, ours, top.Rate)
	}
	return false, nil
}

// checkCurrentWorseTrade cancels a partially filled trade whose current rate
// has drifted below our gate.
func (t *Trader) checkCurrentWorseTrade(ctx context.Context) error {
	if err := t.checkStopped(); err != nil {
		return err
	}
	if t.current == nil || t.current.IsUntouched() {
		return nil
	}

	rate := t.current.CurrentRate()
	gate := t.ledger.Entry(t.dir)

	worse := false
	switch {
	case !gate.LastRate.IsZero() && t.dir.Better(gate.LastRate, rate):
		worse = true
	case !gate.CurrentRate.IsZero() && t.dir.Better(gate.CurrentRate, rate):
		worse = true
	case gate.LastRate.IsZero() && gate.CurrentRate.IsZero() && t.dir.Better(t.peerDisplayedRate(), rate):
		worse = true
	}
	if !worse {
		return nil
	}
	slog.Info("current trade rate is worse than the gate; cancelling", "direction", t.dir, "trade", t.current, "gate", gate)
	return t.cancelTrades(ctx)
}

// checkTradeGap cancels an untouched trade whose rate is too far from the
// second-best trade so that it can be re-priced.
func (t *Trader) checkTradeGap(ctx context.Context) error {
	if err := t.checkStopped(); err != nil {
		return err
	}
	if t.current == nil || !t.current.IsUntouched() {
		return nil
	}

	next, err := t.snap.Next(t.dir)
	if err != nil {
		return err
	}
	gap := t.dir.Unfavorable(t.current.CurrentRate(), next.Rate)
	if gap.GreaterThan(t.balancer.Params().Gap) {
		slog.Info("trade gap is too big; cancelling to trade for a better rate", "direction", t.dir, "gap", gap, "next", next)
		return t.cancelTrades(ctx)
	}
	return nil
}

// tradeAmount returns the amount to trade from the balance and config.
func (t *Trader) tradeAmount() (decimal.Decimal, error) {
	book := t.snap.Book(t.dir)
	cfg := t.Config()
	money := book.Balance

	if t.current != nil {
		total := money.Add(book.Remaining)
		if cfg.TradeAll {
			return total, nil
		}
		return decimal.Min(total, cfg.Amount), nil
	}
	if cfg.TradeAll {
		return money, nil
	}
	amount := decimal.Min(cfg.Amount, money)
	if !amount.IsPositive() || amount.GreaterThan(money) {
		return decimal.Zero, fmt.Errorf("%s: no %s to trade: %w", t.dir, t.pair.Give(t.dir), tcerr.ErrNoMoney)
	}
	return amount, nil
}

// calculateTrade picks the target and threshold rates and balances the
// amount for them.
func (t *Trader) calculateTrade(amount decimal.Decimal) (*balancer.Result, error) {
	spread := t.snap.Spread
	thisTop := t.snap.Rate(t.dir)
	otherTop := t.snap.Rate(t.peer)

	if spread.Abs().GreaterThan(t.opts.SpreadLimit) {
		return nil, fmt.Errorf("%s: spread %s is out of bounds: %w", t.dir, spread, tcerr.ErrBadSpread)
	}
	if thisTop.LessThanOrEqual(t.opts.LowRate) || otherTop.LessThanOrEqual(t.opts.LowRate) {
		return nil, fmt.Errorf("%s: top rates %s and %s: %w", t.dir, thisTop, otherTop, tcerr.ErrLowRate)
	}

	var rate, threshold decimal.Decimal
	switch {
	case !spread.IsNegative():
		rate, threshold = thisTop, otherTop

	case t.ledger.HoldsTop(t.peer):
		// Spread is negative due to our own split trade in the other
		// direction, so compare against the runner-up there.
		next, err := t.snap.Next(t.peer)
		if err != nil {
			return nil, err
		}
		rate, threshold = thisTop, next.Rate

	case t.current != nil:
		// Our trade may be the second best, so retry at top against the other
		// direction's top.
		rate, threshold = thisTop, otherTop

	default:
		next, err := t.snap.Next(t.dir)
		if err != nil {
			return nil, err
		}
		rate, threshold = next.Rate, next.Rate
	}

	return t.balancer.Balance(t.dir, amount, rate, thisTop, threshold)
}

// doTrade places a new trade in this direction, replacing the open trade if
// any.
func (t *Trader) doTrade(ctx context.Context) error {
	amount, err := t.tradeAmount()
	if err != nil {
		return err
	}

	if err := t.checkStopped(); err != nil {
		return err
	}
	res, err := t.calculateTrade(amount)
	if err != nil {
		return err
	}
	if err := t.checkStopped(); err != nil {
		return err
	}

	if t.snap.Book(t.dir).HasOpenOrder {
		if err := t.cancelTrades(ctx); err != nil {
			return err
		}
		if err := t.refresh(ctx); err != nil {
			return err
		}
	}
	if balance := t.snap.Book(t.dir).Balance; res.Give.GreaterThan(balance) {
		return fmt.Errorf("%s: need %s %s, have %s: %w", t.dir, res.Give, t.pair.Give(t.dir), balance, tcerr.ErrNoMoney)
	}

	order := &exchange.Order{
		Direction: t.dir,
		Give:      res.Give,
		Receive:   res.Receive,
		Split:     t.Config().SplitTrades,
	}
	if err := t.orders.Submit(ctx, order); err != nil {
		return fmt.Errorf("%s: could not submit order: %w", t.dir, err)
	}
	if err := t.checkStopped(); err != nil {
		return err
	}

	now := t.opts.Now()
	t.ledger.SetCurrent(t.peer, res.Rate)
	t.ledger.InitLast(t.peer, res.Rate)
	t.ledger.TouchTrade(now)

	v, err := trade.New(t.pair, t.dir, res.Give, res.Receive, res.Rate, now)
	if err != nil {
		return err
	}
	t.setCurrent(ctx, v)
	slog.Info("placed a new trade", "direction", t.dir, "trade", v)
	if t.sink != nil {
		if err := t.sink.AddTrade(ctx, v); err != nil {
			slog.Warn("could not record new trade (ignored)", "direction", t.dir, "trade", v, "err", err)
		}
	}
	return nil
}
