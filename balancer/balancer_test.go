// Copyright (c) 2025 BVK Chaitanya

package balancer

import (
	"errors"
	"testing"

	"github.com/bvk/tcbot/ledger"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newBalancer(t *testing.T, l *ledger.Ledger) *Balancer {
	b, err := New(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestTolerance(t *testing.T) {
	testCases := []struct {
		amount, want string
	}{
		{"0", "0.9"},
		{"5", "0.9"},
		{"10", "0.9"},
		{"99", "0.9"},
		{"100", "0.925"},
		{"999", "0.925"},
		{"1000", "0.95"},
		{"10000", "0.975"},
		{"1000000", "0.975"},
	}
	for i, tc := range testCases {
		if got := Tolerance(d(tc.amount)); !got.Equal(d(tc.want)) {
			t.Fatalf("%d: tolerance(%s): want %s, got %s", i, tc.amount, tc.want, got)
		}
	}
}

func TestCheck(t *testing.T) {
	l := ledger.New()
	b := newBalancer(t, l)

	if err := b.Check(pair.AB, d("2.1"), d("2.0"), d("3")); !errors.Is(err, tcerr.ErrTradeGap) {
		t.Fatalf("want ErrTradeGap, got %v", err)
	}
	if err := b.Check(pair.BA, d("1.9"), d("2.0"), d("1")); !errors.Is(err, tcerr.ErrTradeGap) {
		t.Fatalf("want ErrTradeGap, got %v", err)
	}
	if err := b.Check(pair.BA, d("2.0"), d("2.0"), decimal.Zero); !errors.Is(err, tcerr.ErrBadSpread) {
		t.Fatalf("want ErrBadSpread, got %v", err)
	}

	// 1.9014 rounds down to 1.901 which does not clear 1.9+0.0015.
	if err := b.Check(pair.BA, d("1.9014"), d("1.9014"), d("1.9")); !errors.Is(err, tcerr.ErrWorseRate) {
		t.Fatalf("want ErrWorseRate, got %v", err)
	}
	if err := b.Check(pair.BA, d("1.902"), d("1.902"), d("1.9")); err != nil {
		t.Fatal(err)
	}
	// 2.0 - 0.0015 = 1.9985 for AB.
	if err := b.Check(pair.AB, d("1.999"), d("1.999"), d("2.0")); !errors.Is(err, tcerr.ErrWorseRate) {
		t.Fatalf("want ErrWorseRate, got %v", err)
	}
	if err := b.Check(pair.AB, d("1.998"), d("1.998"), d("2.0")); err != nil {
		t.Fatal(err)
	}
}

func TestCheckRatchet(t *testing.T) {
	l := ledger.New()
	l.Fold(pair.BA, d("2.0"))
	b := newBalancer(t, l)

	if err := b.Check(pair.BA, d("1.99"), d("1.99"), d("1.5")); !errors.Is(err, tcerr.ErrWorseRate) {
		t.Fatalf("want ErrWorseRate, got %v", err)
	}
	// Equal to the ratchet is acceptable and the threshold is not used.
	if err := b.Check(pair.BA, d("2.0"), d("2.0"), decimal.Zero); err != nil {
		t.Fatal(err)
	}
}

func TestBalanceWithoutRatchet(t *testing.T) {
	b := newBalancer(t, ledger.New())

	r, err := b.Balance(pair.BA, d("1000"), d("2.0"), d("2.0"), d("1.9"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Give.LessThan(d("900")) || r.Give.GreaterThan(d("1000")) {
		t.Fatalf("give amount %s is out of range", r.Give)
	}
	if !r.Give.Equal(d("1000")) || !r.Receive.Equal(d("2000")) || !r.Rate.Equal(d("2")) {
		t.Fatalf("want 1000/2000@2, got %s/%s@%s", r.Give, r.Receive, r.Rate)
	}
	if err := b.Check(pair.BA, r.Rate, d("2.0"), d("1.9")); err != nil {
		t.Fatal(err)
	}
}

func TestBalanceWorseThanRatchet(t *testing.T) {
	l := ledger.New()
	l.Fold(pair.BA, d("2.0"))
	b := newBalancer(t, l)

	if _, err := b.Balance(pair.BA, d("1000"), d("1.99"), d("1.99"), d("1.5")); !errors.Is(err, tcerr.ErrWorseRate) {
		t.Fatalf("want ErrWorseRate, got %v", err)
	}
}

func TestBalanceExactRate(t *testing.T) {
	b := newBalancer(t, ledger.New())

	r, err := b.Balance(pair.BA, d("1000"), d("12.5"), d("12.5"), d("12.4"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Give.Equal(d("1000")) || !r.Receive.Equal(d("12500")) || !r.Rate.Equal(d("12.5")) {
		t.Fatalf("want 1000/12500@12.5, got %s/%s@%s", r.Give, r.Receive, r.Rate)
	}

	// The same target must also pass a ratchet sitting exactly on it.
	l := ledger.New()
	l.Fold(pair.BA, d("12.5"))
	b = newBalancer(t, l)

	r, err = b.Balance(pair.BA, d("1000"), d("12.5"), d("12.5"), d("12.4"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Give.Equal(d("1000")) || !r.Receive.Equal(d("12500")) || !r.Rate.Equal(d("12.5")) {
		t.Fatalf("want 1000/12500@12.5, got %s/%s@%s", r.Give, r.Receive, r.Rate)
	}
}

func TestBalanceBounds(t *testing.T) {
	b := newBalancer(t, ledger.New())

	testCases := []struct {
		dir                      pair.Direction
		amount, rate, threshold string
	}{
		{pair.AB, "1000", "2.37", "2.5"},
		{pair.AB, "57", "3.3", "3.5"},
		{pair.AB, "12345", "11.23", "12"},
		{pair.BA, "1000", "2.37", "2.2"},
		{pair.BA, "57", "3.3", "3.1"},
		{pair.BA, "12345", "11.23", "11"},
	}
	for i, tc := range testCases {
		amount := d(tc.amount)
		r, err := b.Balance(tc.dir, amount, d(tc.rate), d(tc.rate), d(tc.threshold))
		if err != nil {
			t.Fatalf("%d: %v", i, err)
		}
		if r.Give.GreaterThan(amount) {
			t.Fatalf("%d: give %s exceeds amount %s", i, r.Give, amount)
		}
		if !r.Give.GreaterThan(Tolerance(amount).Mul(amount)) {
			t.Fatalf("%d: give %s is below the tolerance floor", i, r.Give)
		}
		if !r.Receive.Equal(tc.dir.QuoteAmount(r.Give, d(tc.rate))) {
			t.Fatalf("%d: receive %s does not match give %s", i, r.Receive, r.Give)
		}
		if !r.Rate.Equal(tc.dir.EffectiveRate(r.Give, r.Receive)) {
			t.Fatalf("%d: rate %s is not the effective rate", i, r.Rate)
		}
		if tc.dir.Better(d(tc.rate), r.Rate) {
			t.Fatalf("%d: rate %s is worse than the target %s", i, r.Rate, tc.rate)
		}
	}
}

func TestBalanceRoundingFailure(t *testing.T) {
	b := newBalancer(t, ledger.New())

	// Small amounts cannot land near 7.3 so the rounded rate breaks the gap.
	_, err := b.Balance(pair.AB, d("20"), d("7.3"), d("7.3"), d("8"))
	if !errors.Is(err, tcerr.ErrWorseRate) || !errors.Is(err, tcerr.ErrTradeGap) {
		t.Fatalf("want ErrWorseRate and ErrTradeGap, got %v", err)
	}
}
