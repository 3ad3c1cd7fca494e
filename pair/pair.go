// Copyright (c) 2025 BVK Chaitanya

// Package pair describes the two trading directions between a pair of
// currencies.
//
// Rates for both directions are quoted in the same unit: the amount of
// currency A exchanged for one unit of currency B. Direction AB gives A and
// receives B, so a lower rate is better for the bot. Direction BA gives B and
// receives A, so a higher rate is better for the bot.
package pair

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

type Pair struct {
	A, B Currency
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.A, p.B)
}

func (p *Pair) Check() error {
	if len(p.A) == 0 || len(p.B) == 0 {
		return fmt.Errorf("currency names cannot be empty: %w", os.ErrInvalid)
	}
	if strings.EqualFold(string(p.A), string(p.B)) {
		return fmt.Errorf("currency names must be different: %w", os.ErrInvalid)
	}
	return nil
}

// Give returns the currency offered by a trade in the given direction.
func (p Pair) Give(d Direction) Currency {
	if d == AB {
		return p.A
	}
	return p.B
}

// Receive returns the currency received by a trade in the given direction.
func (p Pair) Receive(d Direction) Currency {
	if d == AB {
		return p.B
	}
	return p.A
}

type Direction int

const (
	AB Direction = iota
	BA
)

// Directions lists both directions in a fixed order.
var Directions = [2]Direction{AB, BA}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "AB":
		return AB, nil
	case "BA":
		return BA, nil
	}
	return 0, fmt.Errorf("invalid direction %q: %w", s, os.ErrInvalid)
}

func (d Direction) String() string {
	if d == AB {
		return "AB"
	}
	return "BA"
}

func (d Direction) LogValue() slog.Value {
	return slog.StringValue(d.String())
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(data []byte) error {
	v, err := ParseDirection(string(data))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Direction) Opposite() Direction {
	if d == AB {
		return BA
	}
	return AB
}

// Better returns true if rate a is strictly more favorable than rate b for a
// trade in this direction.
func (d Direction) Better(a, b decimal.Decimal) bool {
	if d == AB {
		return a.LessThan(b)
	}
	return a.GreaterThan(b)
}

// Unfavorable returns how much rate a is worse than rate b for a trade in
// this direction. Result is negative when a is better than b.
func (d Direction) Unfavorable(a, b decimal.Decimal) decimal.Decimal {
	if d == AB {
		return a.Sub(b)
	}
	return b.Sub(a)
}

// Improve moves the rate in the favorable direction by the given margin.
func (d Direction) Improve(rate, margin decimal.Decimal) decimal.Decimal {
	if d == AB {
		return rate.Sub(margin)
	}
	return rate.Add(margin)
}

// ReceiveAmount returns the whole units received for giving x units at the
// given rate. Receive amounts are always rounded down.
func (d Direction) ReceiveAmount(x, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	if d == AB {
		return x.Div(rate).Floor()
	}
	return x.Mul(rate).Floor()
}

// QuoteAmount returns the whole units to ask for when giving x units at the
// given rate. The quote never implies a rate worse than the given rate, so it
// is rounded down for AB and up for BA.
func (d Direction) QuoteAmount(x, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	if d == AB {
		return x.Div(rate).Floor()
	}
	return x.Mul(rate).Ceil()
}

// EffectiveRate returns the rate implied by giving and receiving the given
// amounts. Returns zero if the quotient is undefined.
func (d Direction) EffectiveRate(give, receive decimal.Decimal) decimal.Decimal {
	if d == AB {
		if receive.IsZero() {
			return decimal.Zero
		}
		return give.Div(receive)
	}
	if give.IsZero() {
		return decimal.Zero
	}
	return receive.Div(give)
}
