// Copyright (c) 2025 BVK Chaitanya

package exchange

import (
	"errors"
	"testing"

	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/shopspring/decimal"
)

func TestSnapshotQuotes(t *testing.T) {
	s := &Snapshot{}
	s.Books[pair.AB].Top = Quote{Amount: decimal.NewFromInt(10), Rate: decimal.RequireFromString("2.5")}
	s.Books[pair.AB].Next = Quote{Amount: decimal.NewFromInt(5), AtMarket: true}

	q, err := s.Top(pair.AB)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Rate.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("want 2.5, got %s", q.Rate)
	}
	if _, err := s.Next(pair.AB); !errors.Is(err, tcerr.ErrMarketAtPrice) {
		t.Fatalf("want ErrMarketAtPrice, got %v", err)
	}

	if s.HasOpenOrders() {
		t.Fatalf("want no open orders")
	}
	s.Book(pair.BA).HasOpenOrder = true
	if !s.HasOpenOrders() {
		t.Fatalf("want open orders")
	}
}
