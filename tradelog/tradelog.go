// Copyright (c) 2025 BVK Chaitanya

// Package tradelog records trades in the database and publishes them as
// events to the subscribers.
package tradelog

import (
	"context"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/kvutil"
	"github.com/bvk/tcbot/trade"
	"github.com/bvkgo/kv"
	"github.com/visvasity/topic"
)

const Keyspace = "/trades/"

type EventKind string

const (
	TradeAdded     EventKind = "added"
	TradeCompleted EventKind = "completed"
)

type Event struct {
	Kind  EventKind
	Time  time.Time
	Trade *gobs.TradeRecord
}

type Log struct {
	db kv.Database

	events *topic.Topic[*Event]
}

func New(db kv.Database) *Log {
	return &Log{
		db:     db,
		events: topic.New[*Event](),
	}
}

func (l *Log) Close() {
	l.events.Close()
}

func tradeKey(id string) string {
	return path.Join(Keyspace, id)
}

func (l *Log) save(ctx context.Context, kind EventKind, t *trade.Trade) error {
	r := t.Record()
	if err := kvutil.SetDB(ctx, l.db, tradeKey(r.ID), r); err != nil {
		return fmt.Errorf("could not save trade %s: %w", r.ID, err)
	}
	l.events.Send(&Event{Kind: kind, Time: time.Now(), Trade: r})
	return nil
}

func (l *Log) AddTrade(ctx context.Context, t *trade.Trade) error {
	return l.save(ctx, TradeAdded, t)
}

func (l *Log) CompleteTrade(ctx context.Context, t *trade.Trade) error {
	return l.save(ctx, TradeCompleted, t)
}

// Subscribe returns a receiver for trade events. When includeRecent is true
// the most recent event is also delivered.
func (l *Log) Subscribe(includeRecent bool) (*topic.Receiver[*Event], error) {
	return topic.Subscribe(l.events, 0, includeRecent)
}

func Get(ctx context.Context, r kv.Reader, id string) (*gobs.TradeRecord, error) {
	return kvutil.Get[gobs.TradeRecord](ctx, r, tradeKey(id))
}

// List returns all trade records ordered by their creation time.
func List(ctx context.Context, r kv.Reader) ([]*gobs.TradeRecord, error) {
	records, err := kvutil.List[gobs.TradeRecord](ctx, r, Keyspace)
	if err != nil {
		return nil, fmt.Errorf("could not scan trades: %w", err)
	}
	slices.SortFunc(records, func(a, b *gobs.TradeRecord) int {
		return a.CreateTime.Compare(b.CreateTime)
	})
	return records, nil
}

func ListDB(ctx context.Context, db kv.Database) (records []*gobs.TradeRecord, err error) {
	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		records, err = List(ctx, r)
		return err
	})
	return records, err
}
