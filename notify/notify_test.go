// Copyright (c) 2025 BVK Chaitanya

package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/trade"
	"github.com/bvk/tcbot/tradelog"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

type fakeMessenger struct {
	mu    sync.Mutex
	texts []string
}

func (m *fakeMessenger) SendMessage(ctx context.Context, at time.Time, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := tradelog.New(kvmemdb.New())
	defer l.Close()

	m := new(fakeMessenger)
	n := New(m)

	done := make(chan error, 1)
	go func() { done <- n.Watch(ctx, l) }()

	p := pair.Pair{A: "TIX", B: "ROBUX"}
	v, err := trade.New(p, pair.BA, decimal.NewFromInt(100), decimal.NewFromInt(1230), decimal.RequireFromString("12.3"), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	// Watch subscribes asynchronously, so keep publishing until a message
	// shows up.
	deadline := time.Now().Add(5 * time.Second)
	for len(m.Texts()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for a notification")
		}
		if err := l.AddTrade(ctx, v); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	text := m.Texts()[0]
	if !strings.Contains(text, "Placed BA trade giving 100 ROBUX for 1230 TIX") {
		t.Fatalf("unexpected notification %q", text)
	}

	cancel()
	<-done
}

func TestFormatCancelled(t *testing.T) {
	p := pair.Pair{A: "TIX", B: "ROBUX"}
	v, err := trade.New(p, pair.AB, decimal.NewFromInt(1000), decimal.NewFromInt(80), decimal.RequireFromString("12.5"), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	v.Update(decimal.NewFromInt(400), decimal.Zero)
	v.Finish(time.Now())

	e := &tradelog.Event{Kind: tradelog.TradeCompleted, Time: time.Now(), Trade: v.Record()}
	if got, want := Format(e), "Cancelled AB trade after filling 600 of 1000 TIX."; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}
