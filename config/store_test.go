// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bvk/tcbot/pair"
	"github.com/shopspring/decimal"
)

func TestDirectionSet(t *testing.T) {
	var c Direction
	if err := c.Set("amount", "-1"); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
	if err := c.Set("trade_all", "maybe"); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
	if err := c.Set("colour", "red"); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
	if err := c.Set("amount", "250"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("TRADE_ALL", "true"); err != nil {
		t.Fatal(err)
	}
	if !c.Amount.Equal(decimal.NewFromInt(250)) || !c.TradeAll {
		t.Fatalf("unexpected config %#v", c)
	}
	if v, err := c.Get("amount"); err != nil || v != "250" {
		t.Fatalf("want 250, got %q (%v)", v, err)
	}
}

func TestStoreSaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")

	s, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	receiver, err := s.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	defer receiver.Close()

	if err := s.Set(pair.BA, "amount", "1000"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(pair.AB, "split_trades", "2"); err != nil {
		t.Fatal(err)
	}

	change, err := receiver.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if change.Direction != pair.BA || change.Key != "amount" || !change.Config.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected change %#v", change)
	}

	// Failed updates are not applied.
	if err := s.Set(pair.BA, "amount", "x"); err == nil {
		t.Fatalf("want parse error")
	}

	loaded, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()

	if c := loaded.Get(pair.BA); !c.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("want amount 1000, got %s", c.Amount)
	}
	if c := loaded.Get(pair.AB); c.SplitTrades != "2" {
		t.Fatalf("want split 2, got %q", c.SplitTrades)
	}
}

func TestLoadInvalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte("ab:\n  amount: \"-5\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(file); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}
