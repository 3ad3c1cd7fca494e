// Copyright (c) 2025 BVK Chaitanya

package webex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/paper"
	"github.com/bvk/tcbot/tcerr"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var testPair = pair.Pair{A: "TIX", B: "ROBUX"}

func newTestClient(t *testing.T) (*Client, *paper.Exchange, *Handler) {
	t.Helper()

	pex, err := paper.New(testPair, &paper.Options{Username: "user", Password: "pass"})
	if err != nil {
		t.Fatal(err)
	}
	pex.SetBalance(pair.BA, d("1000"))
	pex.SetOffers(pair.AB, exchange.Quote{Amount: d("500"), Rate: d("12.0")}, exchange.Quote{Amount: d("300"), Rate: d("11.9")})
	pex.SetOffers(pair.BA, exchange.Quote{Amount: d("40"), AtMarket: true}, exchange.Quote{Amount: d("50"), Rate: d("12.3")})

	h := NewHandler(pex)
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	baseURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New("test", baseURL, testPair, &Options{RetryInterval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return c, pex, h
}

func TestLoginAndRefresh(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestClient(t)

	if _, err := c.Refresh(ctx); !errors.Is(err, tcerr.ErrLoginFailed) {
		t.Fatalf("want ErrLoginFailed before login, got %v", err)
	}
	if err := c.Login(ctx, "user", "wrong"); !errors.Is(err, tcerr.ErrLoginFailed) {
		t.Fatalf("want ErrLoginFailed, got %v", err)
	}
	if err := c.Login(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}

	snap, err := c.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Book(pair.BA).Balance.Equal(d("1000")) {
		t.Fatalf("want BA balance 1000, got %s", snap.Book(pair.BA).Balance)
	}
	top, err := snap.Top(pair.AB)
	if err != nil {
		t.Fatal(err)
	}
	if !top.Rate.Equal(d("12")) || !top.Amount.Equal(d("500")) {
		t.Fatalf("want AB top 500@12, got %s", top)
	}
	if _, err := snap.Top(pair.BA); !errors.Is(err, tcerr.ErrMarketAtPrice) {
		t.Fatalf("want ErrMarketAtPrice for the BA top, got %v", err)
	}
	if next, err := snap.Next(pair.BA); err != nil || !next.Rate.Equal(d("12.3")) {
		t.Fatalf("want BA next at 12.3, got %s (%v)", next, err)
	}
}

func TestSubmitCancel(t *testing.T) {
	ctx := context.Background()
	c, pex, _ := newTestClient(t)

	if err := c.Login(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}

	order := &exchange.Order{Direction: pair.BA, Give: d("100"), Receive: d("1230"), Split: "2"}
	if err := c.Submit(ctx, order); err != nil {
		t.Fatal(err)
	}
	remaining, rate, ok := pex.OpenOrder(pair.BA)
	if !ok || !remaining.Equal(d("100")) || !rate.Equal(d("12.3")) {
		t.Fatalf("want open order 100@12.3, got %s@%s (%v)", remaining, rate, ok)
	}
	if got := pex.Submitted(); len(got) != 1 || got[0].Split != "2" {
		t.Fatalf("want one submission with split 2, got %v", got)
	}

	snap, err := c.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b := snap.Book(pair.BA); !b.HasOpenOrder || !b.Remaining.Equal(d("100")) {
		t.Fatalf("want our open order in the BA book, got %#v", b)
	}

	large := &exchange.Order{Direction: pair.BA, Give: d("5000"), Receive: d("61500")}
	if err := c.Submit(ctx, large); !errors.Is(err, tcerr.ErrNoMoney) {
		t.Fatalf("want ErrNoMoney, got %v", err)
	}

	if err := c.Cancel(ctx, pair.BA); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := pex.OpenOrder(pair.BA); ok {
		t.Fatalf("want no open order after cancel")
	}
	if !pex.Balance(pair.BA).Equal(d("1000")) {
		t.Fatalf("want the balance refunded, got %s", pex.Balance(pair.BA))
	}
}

func TestSessionRenewal(t *testing.T) {
	ctx := context.Background()
	c, _, h := newTestClient(t)

	if err := c.Login(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}
	h.Expire()
	if _, err := c.Refresh(ctx); err != nil {
		t.Fatalf("want transparent login after session expiry, got %v", err)
	}
}

func TestConnectionErrors(t *testing.T) {
	ctx := context.Background()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	baseURL, _ := url.Parse(server.URL)

	c, err := New("test", baseURL, testPair, &Options{MaxRetries: 2, RetryInterval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Refresh(ctx); !errors.Is(err, tcerr.ErrConnection) {
		t.Fatalf("want ErrConnection, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("want 3 attempts, got %d", n)
	}

	server.Close()
	_, err = c.Refresh(ctx)
	if !errors.Is(err, tcerr.ErrConnection) {
		t.Fatalf("want ErrConnection for a closed server, got %v", err)
	}
	if a := tcerr.Classify(err); a != tcerr.Connectivity {
		t.Fatalf("want connectivity action, got %s", a)
	}
}
