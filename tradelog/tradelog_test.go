// Copyright (c) 2025 BVK Chaitanya

package tradelog

import (
	"context"
	"testing"
	"time"

	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/trade"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLog(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	l := New(db)
	defer l.Close()

	receiver, err := l.Subscribe(false)
	if err != nil {
		t.Fatal(err)
	}
	defer receiver.Close()

	p := pair.Pair{A: "TIX", B: "ROBUX"}
	now := time.Unix(1700000000, 0)
	first, err := trade.New(p, pair.AB, d("1000"), d("80"), d("12.5"), now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := trade.New(p, pair.BA, d("100"), d("1230"), d("12.3"), now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}

	if err := l.AddTrade(ctx, second); err != nil {
		t.Fatal(err)
	}
	if err := l.AddTrade(ctx, first); err != nil {
		t.Fatal(err)
	}
	first.Update(decimal.Zero, decimal.Zero)
	first.Finish(now.Add(time.Minute))
	if err := l.CompleteTrade(ctx, first); err != nil {
		t.Fatal(err)
	}

	e, err := receiver.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if e.Kind != TradeAdded || e.Trade.ID != second.ID() {
		t.Fatalf("unexpected first event %#v", e)
	}

	records, err := ListDB(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	if records[0].ID != first.ID() || !records[0].IsFinished() {
		t.Fatalf("want the completed first trade at the front, got %#v", records[0])
	}

	sums := Summarize(records)
	ab := sums["AB"]
	if ab == nil || ab.NumTrades != 1 || !ab.Given.Equal(d("1000")) || !ab.Received.Equal(d("80")) {
		t.Fatalf("unexpected AB summary %#v", ab)
	}
	if !ab.AvgRate().Equal(d("12.5")) {
		t.Fatalf("want 12.5, got %s", ab.AvgRate())
	}
	if ba := sums["BA"]; ba == nil || ba.NumOpen != 1 || !ba.Given.IsZero() {
		t.Fatalf("unexpected BA summary %#v", ba)
	}
}
