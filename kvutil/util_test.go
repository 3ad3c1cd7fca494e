// Copyright (c) 2025 BVK Chaitanya

package kvutil

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path"
	"testing"

	"github.com/bvk/tcbot/gobs"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

func TestGetSetList(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	if _, err := GetDB[gobs.TradeRecord](ctx, db, "/trades/a"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("wanted ErrNotExist, got %v", err)
	}

	ids := []string{"a", "b", "c"}
	for i, id := range ids {
		v := &gobs.TradeRecord{ID: id, Give: decimal.NewFromInt(int64(i + 1))}
		if err := SetDB(ctx, db, path.Join("/trades", id), v); err != nil {
			t.Fatal(err)
		}
	}
	// Outside of the range.
	if err := SetDB(ctx, db, "/tradesx", &gobs.TradeRecord{ID: "x"}); err != nil {
		t.Fatal(err)
	}

	v, err := GetDB[gobs.TradeRecord](ctx, db, "/trades/b")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != "b" || !v.Give.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected value %#v", v)
	}

	values, err := ListDB[gobs.TradeRecord](ctx, db, "/trades")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, v := range values {
		got = append(got, v.ID)
	}
	if len(got) != len(ids) {
		t.Fatalf("want %v, got %v", ids, got)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("want %v, got %v", ids, got)
		}
	}

	var keys []string
	if err := kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) (err error) {
		keys, err = Keys(ctx, r, "/")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if len(keys) != 4 || keys[3] != "/tradesx" {
		t.Fatalf("want all four keys, got %v", keys)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	if err := SetDB(ctx, db, "/ledger/state", &gobs.LedgerState{}); err != nil {
		t.Fatal(err)
	}
	if err := SetDB(ctx, db, "/trades/a", &gobs.TradeRecord{ID: "a"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	var n int
	if err := kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) (err error) {
		n, err = Export(ctx, r, &buf, "/trades")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want one item under /trades, got %d", n)
	}

	var item gobs.KeyValue
	if err := gob.NewDecoder(&buf).Decode(&item); err != nil {
		t.Fatal(err)
	}
	if item.Key != "/trades/a" {
		t.Fatalf("want /trades/a, got %q", item.Key)
	}
}

func TestRestoreDB(t *testing.T) {
	ctx := context.Background()
	src, dst := kvmemdb.New(), kvmemdb.New()

	if err := SetDB(ctx, src, "/ledger/state", &gobs.LedgerState{}); err != nil {
		t.Fatal(err)
	}
	if err := SetDB(ctx, src, "/trades/a", &gobs.TradeRecord{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := SetDB(ctx, dst, "/stale", &gobs.LedgerState{}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := kv.WithReader(ctx, src, func(ctx context.Context, r kv.Reader) error {
		_, err := Export(ctx, r, &buf, "/")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	// Keyspace restore leaves the keys outside the keyspace alone.
	if err := RestoreDB(ctx, dst, bytes.NewReader(data), "/trades"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetDB[gobs.TradeRecord](ctx, dst, "/trades/a"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetDB[gobs.LedgerState](ctx, dst, "/ledger/state"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist for a key outside the keyspace, got %v", err)
	}
	if _, err := GetDB[gobs.LedgerState](ctx, dst, "/stale"); err != nil {
		t.Fatalf("want key outside the keyspace untouched, got %v", err)
	}

	if err := RestoreDB(ctx, dst, bytes.NewReader(data), "/"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetDB[gobs.LedgerState](ctx, dst, "/ledger/state"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetDB[gobs.LedgerState](ctx, dst, "/stale"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist for stale key, got %v", err)
	}
}
