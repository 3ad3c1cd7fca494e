// Copyright (c) 2025 BVK Chaitanya

package paper

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/bvk/tcbot/ctxutil"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/pair"
	"github.com/shopspring/decimal"
)

var (
	fillFraction = decimal.RequireFromString("0.2")
	tick         = decimal.RequireFromString("0.001")
)

// Step advances the simulated market by one tick: offers from other traders
// drift by a small random amount and our order, when it is the top trade of
// its column, is partially filled.
func (v *Exchange) Step(rng *rand.Rand) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, d := range pair.Directions {
		for _, o := range v.columns[d] {
			if o.ours || o.atMarket {
				continue
			}
			delta := tick.Mul(decimal.NewFromInt(int64(rng.IntN(5) - 2)))
			if r := o.rate.Add(delta); r.IsPositive() {
				o.rate = r
			}
		}
		v.sortLocked(d)

		col := v.columns[d]
		if len(col) == 0 || !col[0].ours || rng.IntN(4) != 0 {
			continue
		}
		o := col[0]
		amount := o.amount.Mul(fillFraction).Ceil()
		amount = decimal.Min(amount, o.amount)
		v.balances[d.Opposite()] = v.balances[d.Opposite()].Add(d.ReceiveAmount(amount, o.rate))
		o.amount = o.amount.Sub(amount)
		if o.amount.IsZero() {
			v.columns[d] = col[1:]
		}
	}
}

// Simulate calls Step periodically till the context is cancelled.
func (v *Exchange) Simulate(ctx context.Context, interval time.Duration, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for ctxutil.Sleep(ctx, interval); ctx.Err() == nil; ctxutil.Sleep(ctx, interval) {
		v.Step(rng)
	}
}

var populateStep = decimal.RequireFromString("0.01")

// Populate replaces the offers from other traders with depth offers in each
// column around the mid rate. Offers in the AB column are below the mid rate
// and offers in the BA column are above it, so the spread is positive.
func (v *Exchange) Populate(rng *rand.Rand, mid decimal.Decimal, depth int) {
	for _, d := range pair.Directions {
		var quotes []exchange.Quote
		for i := 1; i <= depth; i++ {
			offset := populateStep.Mul(decimal.NewFromInt(int64(i)))
			rate := mid.Add(offset)
			if d == pair.AB {
				rate = mid.Sub(offset)
			}
			if !rate.IsPositive() {
				break
			}
			amount := decimal.NewFromInt(int64(100 + rng.IntN(900)))
			quotes = append(quotes, exchange.Quote{Amount: amount, Rate: rate})
		}
		v.SetOffers(d, quotes...)
	}
}
