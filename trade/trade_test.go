// Copyright (c) 2025 BVK Chaitanya

package trade

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bvk/tcbot/pair"
	"github.com/shopspring/decimal"
)

var testPair = pair.Pair{A: "TIX", B: "ROBUX"}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNew(t *testing.T) {
	now := time.Now()
	if _, err := New(testPair, pair.AB, decimal.Zero, d("10"), d("2"), now); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
	if _, err := New(testPair, pair.AB, d("20"), d("10"), decimal.Zero, now); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}

	v, err := New(testPair, pair.BA, d("1000"), d("2000"), d("2"), now)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsUntouched() || !v.Remaining().Equal(d("1000")) || !v.CurrentRate().Equal(d("2")) {
		t.Fatalf("unexpected new trade %v", v)
	}
}

func TestUpdate(t *testing.T) {
	now := time.Now()
	v, err := New(testPair, pair.AB, d("1000"), d("400"), d("2.5"), now)
	if err != nil {
		t.Fatal(err)
	}

	// 999/2.5 = 399.6 -> 399, 999/399 = 2.503759...
	v.Update(d("999"), decimal.Zero)
	if v.IsUntouched() {
		t.Fatalf("trade must be touched after a partial fill")
	}
	if !v.Filled().Equal(d("1")) {
		t.Fatalf("want 1 filled, got %s", v.Filled())
	}
	if !v.CurrentRate().GreaterThan(d("2.5")) {
		t.Fatalf("want rounding to increase the AB rate, got %s", v.CurrentRate())
	}

	v.Update(d("900"), d("2.49"))
	if !v.CurrentRate().Equal(d("2.49")) {
		t.Fatalf("want displayed rate 2.49, got %s", v.CurrentRate())
	}

	v.Update(decimal.Zero, decimal.Zero)
	if !v.Remaining().IsZero() || !v.CurrentRate().Equal(d("2.5")) {
		t.Fatalf("completed trade must be back at its start rate, got %v", v)
	}

	v.Finish(now.Add(time.Minute))
	if !v.IsFinished() || v.Record().Cancelled {
		t.Fatalf("completed trade must finish without cancellation")
	}
}

func TestRecord(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v, err := New(testPair, pair.BA, d("100"), d("250"), d("2.5"), now)
	if err != nil {
		t.Fatal(err)
	}
	v.Update(d("40"), decimal.Zero)
	v.Finish(now.Add(time.Second))

	r := v.Record()
	if !r.Cancelled || r.GiveCurrency != "ROBUX" || r.ReceiveCurrency != "TIX" {
		t.Fatalf("unexpected record %#v", r)
	}

	c, err := FromRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID() != v.ID() || c.Direction() != pair.BA || !c.Remaining().Equal(d("40")) || !c.IsFinished() {
		t.Fatalf("want %v, got %v", v, c)
	}
}
