// Copyright (c) 2025 BVK Chaitanya

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bvk/tcbot/config"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/kvutil"
	"github.com/bvk/tcbot/ledger"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/paper"
	"github.com/bvk/tcbot/tcerr"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for the condition")
		}
		time.Sleep(time.Millisecond)
	}
}

type testEnv struct {
	db  kv.Database
	ex  *paper.Exchange
	cfg *config.Store
	sup *Supervisor
}

func newTestEnv(t *testing.T) *testEnv {
	ctx := context.Background()
	ex, err := paper.New(pair.Pair{A: "TIX", B: "ROBUX"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ex.SetBalance(pair.BA, d("1000"))
	ex.SetOffers(pair.AB, exchange.Quote{Amount: d("500"), Rate: d("12.0")}, exchange.Quote{Amount: d("300"), Rate: d("11.9")})
	ex.SetOffers(pair.BA, exchange.Quote{Amount: d("50"), Rate: d("12.3")}, exchange.Quote{Amount: d("70"), Rate: d("12.4")})

	cfg := config.New(&config.Direction{Amount: d("100")}, &config.Direction{Amount: d("100")})
	t.Cleanup(cfg.Close)

	db := kvmemdb.New()
	sup, err := New(ctx, db, ex, cfg, nil, &Options{PollInterval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sup.Close() })
	return &testEnv{db: db, ex: ex, cfg: cfg, sup: sup}
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if err := env.sup.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := env.sup.Start(ctx); err == nil {
		t.Fatalf("second start must fail")
	}
	waitFor(t, func() bool { return len(env.ex.Submitted()) > 0 })

	// Ledger is saved as the traders make progress.
	waitFor(t, func() bool {
		s, err := kvutil.GetDB[gobs.LedgerState](ctx, env.db, ledger.StateKey)
		return err == nil && s.AB != nil && !s.AB.LastRate.IsZero()
	})

	if err := env.sup.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if env.sup.IsRunning() {
		t.Fatalf("supervisor must not be running after stop")
	}
	if _, _, ok := env.ex.OpenOrder(pair.BA); ok {
		t.Fatalf("open orders must be cancelled on stop")
	}
	for _, dir := range pair.Directions {
		if e := env.sup.Ledger().Entry(dir); !e.LastRate.IsZero() || !e.CurrentRate.IsZero() {
			t.Fatalf("%s: ledger must be reset on stop, got %v", dir, e)
		}
	}
	s, err := kvutil.GetDB[gobs.LedgerState](ctx, env.db, ledger.StateKey)
	if err != nil {
		t.Fatal(err)
	}
	if !s.AB.LastRate.IsZero() {
		t.Fatalf("reset ledger must be saved, got %s", s.AB.LastRate)
	}

	// Can be started again.
	if err := env.sup.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := env.sup.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestFatalError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	boom := errors.New("boom")
	env.ex.FailNext(boom)
	if err := env.sup.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := env.sup.Wait(); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if env.sup.IsRunning() {
		t.Fatalf("fatal error must stop both loops")
	}
	if s := env.sup.Status(); s.Err == "" {
		t.Fatalf("status must report the fatal error")
	}
}

func TestConnectivityErrorContinues(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.ex.FailNext(tcerr.ErrConnection)
	if err := env.sup.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(env.ex.Submitted()) > 0 })
	if !env.sup.IsRunning() {
		t.Fatalf("connection failures must not stop the supervisor")
	}
	if err := env.sup.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestConfigUpdates(t *testing.T) {
	env := newTestEnv(t)

	if err := env.cfg.Set(pair.AB, "amount", "42"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		c := env.sup.Trader(pair.AB).Config()
		return c.Amount.Equal(d("42"))
	})
	if c := env.sup.Trader(pair.BA).Config(); !c.Amount.Equal(d("100")) {
		t.Fatalf("other direction must not change, got %s", c.Amount)
	}
}
