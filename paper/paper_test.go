// Copyright (c) 2025 BVK Chaitanya

package paper

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func q(amount, rate string) exchange.Quote {
	return exchange.Quote{Amount: d(amount), Rate: d(rate)}
}

func newTestExchange(t *testing.T) *Exchange {
	ex, err := New(pair.Pair{A: "TIX", B: "ROBUX"}, &Options{Username: "u", Password: "p"})
	if err != nil {
		t.Fatal(err)
	}
	return ex
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	ex := newTestExchange(t)
	if err := ex.Login(ctx, "u", "x"); !errors.Is(err, tcerr.ErrLoginFailed) {
		t.Fatalf("want ErrLoginFailed, got %v", err)
	}
	if err := ex.Login(ctx, "u", "p"); err != nil {
		t.Fatal(err)
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	ex := newTestExchange(t)

	ex.SetOffers(pair.AB, q("100", "11.5"), q("200", "11.9"), q("50", "11.7"))
	ex.SetOffers(pair.BA, q("10", "12.4"), q("20", "12.1"))

	s, err := ex.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if top, _ := s.Top(pair.AB); !top.Rate.Equal(d("11.9")) {
		t.Fatalf("want AB top 11.9, got %s", top.Rate)
	}
	if next, _ := s.Next(pair.AB); !next.Rate.Equal(d("11.7")) {
		t.Fatalf("want AB next 11.7, got %s", next.Rate)
	}
	if top, _ := s.Top(pair.BA); !top.Rate.Equal(d("12.1")) {
		t.Fatalf("want BA top 12.1, got %s", top.Rate)
	}
	if !s.Spread.Equal(d("0.2")) {
		t.Fatalf("want spread 0.2, got %s", s.Spread)
	}

	ex.FailNext(tcerr.ErrConnection)
	if _, err := ex.Refresh(ctx); !errors.Is(err, tcerr.ErrConnection) {
		t.Fatalf("want ErrConnection, got %v", err)
	}
}

func TestSubmitFillCancel(t *testing.T) {
	ctx := context.Background()
	ex := newTestExchange(t)
	ex.SetBalance(pair.AB, d("1000"))
	ex.SetOffers(pair.AB, q("100", "11.5"))

	order := &exchange.Order{Direction: pair.AB, Give: d("2000"), Receive: d("160")}
	if err := ex.Submit(ctx, order); !errors.Is(err, tcerr.ErrNoMoney) {
		t.Fatalf("want ErrNoMoney, got %v", err)
	}

	// 960/80 = 12 is above 11.5 so it becomes the top trade.
	order = &exchange.Order{Direction: pair.AB, Give: d("960"), Receive: d("80")}
	if err := ex.Submit(ctx, order); err != nil {
		t.Fatal(err)
	}
	s, err := ex.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b := s.Book(pair.AB)
	if !b.HasOpenOrder || !b.Remaining.Equal(d("960")) || !b.Top.Amount.Equal(d("960")) {
		t.Fatalf("unexpected book %#v", b)
	}
	if !b.Balance.Equal(d("40")) {
		t.Fatalf("want balance 40, got %s", b.Balance)
	}

	if err := ex.Fill(pair.AB, d("480")); err != nil {
		t.Fatal(err)
	}
	if got := ex.Balance(pair.BA); !got.Equal(d("40")) {
		t.Fatalf("want 40 received, got %s", got)
	}

	if err := ex.Cancel(ctx, pair.AB); err != nil {
		t.Fatal(err)
	}
	if got := ex.Balance(pair.AB); !got.Equal(d("520")) {
		t.Fatalf("want 520 after refund, got %s", got)
	}
	if _, _, ok := ex.OpenOrder(pair.AB); ok {
		t.Fatalf("order must be removed after cancel")
	}
	if ex.Cancels(pair.AB) != 1 || len(ex.Submitted()) != 1 {
		t.Fatalf("unexpected request counts")
	}
}

func TestStep(t *testing.T) {
	ctx := context.Background()
	ex := newTestExchange(t)
	ex.SetBalance(pair.BA, d("100"))
	ex.SetOffers(pair.BA, q("10", "12.4"))

	// 100 ROBUX for 1200 TIX is 12 which is below 12.4 so it is the top.
	if err := ex.Submit(ctx, &exchange.Order{Direction: pair.BA, Give: d("100"), Receive: d("1200")}); err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		ex.Step(rng)
		if _, _, ok := ex.OpenOrder(pair.BA); !ok {
			break
		}
	}
	if _, _, ok := ex.OpenOrder(pair.BA); ok {
		t.Fatalf("top order must be filled eventually")
	}
	if got := ex.Balance(pair.AB); !got.Equal(d("1200")) {
		t.Fatalf("want 1200 TIX received, got %s", got)
	}
}

func TestPopulate(t *testing.T) {
	ctx := context.Background()
	ex := newTestExchange(t)
	ex.Populate(rand.New(rand.NewPCG(3, 4)), d("12.5"), 5)

	snap, err := ex.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Rate(pair.AB); !got.Equal(d("12.49")) {
		t.Fatalf("want AB top rate 12.49, got %s", got)
	}
	if got := snap.Rate(pair.BA); !got.Equal(d("12.51")) {
		t.Fatalf("want BA top rate 12.51, got %s", got)
	}
	if !snap.Spread.IsPositive() {
		t.Fatalf("want a positive spread, got %s", snap.Spread)
	}
}
