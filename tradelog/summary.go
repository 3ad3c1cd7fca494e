// Copyright (c) 2025 BVK Chaitanya

package tradelog

import (
	"github.com/bvk/tcbot/gobs"
	"github.com/shopspring/decimal"
)

// Summary aggregates the filled amounts of trades in one direction.
type Summary struct {
	Direction string

	NumTrades    int
	NumOpen      int
	NumCancelled int

	// Given and Received are the filled amounts.
	Given    decimal.Decimal
	Received decimal.Decimal
}

// AvgRate returns the effective rate of all filled amounts in the amount of
// first currency per unit of the second currency.
func (s *Summary) AvgRate() decimal.Decimal {
	if s.Given.IsZero() || s.Received.IsZero() {
		return decimal.Zero
	}
	if s.Direction == "AB" {
		return s.Given.Div(s.Received)
	}
	return s.Received.Div(s.Given)
}

// Summarize returns per-direction summaries for the trade records.
func Summarize(records []*gobs.TradeRecord) map[string]*Summary {
	sums := make(map[string]*Summary)
	for _, r := range records {
		s, ok := sums[r.Direction]
		if !ok {
			s = &Summary{Direction: r.Direction}
			sums[r.Direction] = s
		}
		s.NumTrades++
		if !r.IsFinished() {
			s.NumOpen++
		}
		if r.Cancelled {
			s.NumCancelled++
		}
		filled := r.Give.Sub(r.Remaining)
		if filled.IsZero() {
			continue
		}
		s.Given = s.Given.Add(filled)
		s.Received = s.Received.Add(r.Receive.Mul(filled).Div(r.Give).Floor())
	}
	return sums
}
