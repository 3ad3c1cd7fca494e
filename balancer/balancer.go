// Copyright (c) 2025 BVK Chaitanya

// Package balancer picks the trade amount that best approximates a target
// rate under integer rounding of the receive amount.
package balancer

import (
	"fmt"
	"os"

	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/shopspring/decimal"
)

// Ratchet is the part of the rate ledger used to validate candidate rates.
type Ratchet interface {
	HasRatchet(d pair.Direction) bool
	Ratchet(d pair.Direction, candidate decimal.Decimal) bool
}

type Params struct {
	// Gap is the maximum distance, in the unfavorable direction, between a
	// candidate rate and the top rate.
	Gap decimal.Decimal

	// Margin is the safety margin by which a candidate must clear the
	// threshold rate when there is no ratchet.
	Margin decimal.Decimal

	// Band is the maximum rounding deviation for a candidate to be counted as
	// within the target rate.
	Band decimal.Decimal

	// RoundPlaces is the number of decimal places the candidate is rounded
	// down to before it is compared against the threshold.
	RoundPlaces int32
}

var (
	defaultGap    = decimal.RequireFromString("0.015")
	defaultMargin = decimal.RequireFromString("0.0015")
	defaultBand   = decimal.RequireFromString("0.001")
)

func (p *Params) setDefaults() {
	if p.Gap.IsZero() {
		p.Gap = defaultGap
	}
	if p.Margin.IsZero() {
		p.Margin = defaultMargin
	}
	if p.Band.IsZero() {
		p.Band = defaultBand
	}
	if p.RoundPlaces == 0 {
		p.RoundPlaces = 3
	}
}

func (p *Params) Check() error {
	if p.Gap.IsNegative() || p.Margin.IsNegative() || p.Band.IsNegative() {
		return fmt.Errorf("balancer parameters cannot be negative: %w", os.ErrInvalid)
	}
	if p.RoundPlaces < 0 {
		return fmt.Errorf("round places cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type Balancer struct {
	params  Params
	ratchet Ratchet
}

type Result struct {
	Give    decimal.Decimal
	Receive decimal.Decimal
	Rate    decimal.Decimal
}

func New(r Ratchet, opts *Params) (*Balancer, error) {
	if opts == nil {
		opts = new(Params)
	}
	p := *opts
	p.setDefaults()
	if err := p.Check(); err != nil {
		return nil, err
	}
	return &Balancer{params: p, ratchet: r}, nil
}

func (b *Balancer) Params() Params {
	return b.params
}

var (
	ten     = decimal.NewFromInt(10)
	baseTol = decimal.RequireFromString("0.9")
	stepTol = decimal.RequireFromString("0.025")
	maxTol  = decimal.RequireFromString("0.975")
)

// Tolerance returns the minimum fraction of the amount the search may settle
// for. It is 0.9 for amounts below ten and grows by 0.025 for every order of
// magnitude up to 0.975.
func Tolerance(amount decimal.Decimal) decimal.Decimal {
	q := amount.Div(ten).Floor()
	if !q.IsPositive() {
		return baseTol
	}
	// floor(log10(q)) is the number of digits in q minus one.
	digits := int64(len(q.BigInt().String()) - 1)
	tol := baseTol.Add(stepTol.Mul(decimal.NewFromInt(digits)))
	return decimal.Min(tol, maxTol)
}

// Check is the rate acceptance test for a candidate rate in the direction.
func (b *Balancer) Check(d pair.Direction, rate, top, threshold decimal.Decimal) error {
	if d.Unfavorable(rate, top).GreaterThan(b.params.Gap) {
		return fmt.Errorf("%s rate %s is too far from top rate %s: %w", d, rate, top, tcerr.ErrTradeGap)
	}
	if b.ratchet.HasRatchet(d) {
		if !b.ratchet.Ratchet(d, rate) {
			return fmt.Errorf("%s rate %s is worse than the last rate: %w", d, rate, tcerr.ErrWorseRate)
		}
		return nil
	}
	if threshold.IsZero() {
		return fmt.Errorf("%s threshold rate is undefined: %w", d, tcerr.ErrBadSpread)
	}
	target := d.Improve(threshold, b.params.Margin)
	if d.Better(target, rate.RoundFloor(b.params.RoundPlaces)) {
		return fmt.Errorf("%s rate %s does not clear threshold %s: %w", d, rate, target, tcerr.ErrWorseRate)
	}
	return nil
}

// Balance searches integer amounts in (Tolerance(amount)*amount, amount] for
// the one whose effective rate, after rounding the quoted receive amount, is
// closest to the target rate. Quotes never imply a rate worse than the target.
//
// For AB, candidates that deviate from the target by less than the band are
// preferred, picking the one with the largest deviation. When there are none,
// the candidate with the smallest deviation is used. For BA the candidate with
// the smallest deviation is used, preferring larger amounts on ties.
func (b *Balancer) Balance(d pair.Direction, amount, rate, top, threshold decimal.Decimal) (*Result, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s amount %s must be positive: %w", d, amount, tcerr.ErrNoMoney)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%s target rate %s must be positive: %w", d, rate, tcerr.ErrBadSpread)
	}
	if err := b.Check(d, rate, top, threshold); err != nil {
		return nil, err
	}

	floor := Tolerance(amount).Mul(amount)

	var (
		best       decimal.Decimal
		bestDev    decimal.Decimal
		haveWithin bool
		haveAny    bool
	)
	for x := amount.Floor(); x.GreaterThan(floor) && x.IsPositive(); x = x.Sub(decimal.NewFromInt(1)) {
		receive := d.QuoteAmount(x, rate)
		if receive.IsZero() {
			continue
		}
		dev := d.EffectiveRate(x, receive).Sub(rate).Abs()
		if d == pair.BA {
			if !haveAny || dev.LessThan(bestDev) {
				best, bestDev, haveAny = x, dev, true
			}
			if dev.IsZero() {
				break
			}
			continue
		}
		if dev.LessThan(b.params.Band) {
			if !haveWithin || dev.GreaterThan(bestDev) {
				best, bestDev, haveWithin, haveAny = x, dev, true, true
			}
			continue
		}
		if haveWithin {
			continue
		}
		if !haveAny || dev.LessThan(bestDev) {
			best, bestDev, haveAny = x, dev, true
		}
	}
	if !haveAny {
		return nil, fmt.Errorf("%s no amount in range near %s for rate %s: %w", d, amount, rate, tcerr.ErrWorseRate)
	}

	receive := d.QuoteAmount(best, rate)
	actual := d.EffectiveRate(best, receive)
	if err := b.Check(d, actual, top, threshold); err != nil {
		return nil, fmt.Errorf("%s rounded rate %s is not acceptable: %w: %w", d, actual, tcerr.ErrWorseRate, err)
	}
	return &Result{Give: best, Receive: receive, Rate: actual}, nil
}
