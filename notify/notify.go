// Copyright (c) 2025 BVK Chaitanya

// Package notify forwards trade events to the user through messengers like
// telegram and pushover.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/tradelog"
	"github.com/visvasity/topic"
)

type Messenger interface {
	SendMessage(ctx context.Context, at time.Time, text string) error
}

type Notifier struct {
	messengers []Messenger
}

func New(messengers ...Messenger) *Notifier {
	return &Notifier{messengers: messengers}
}

func (n *Notifier) Len() int {
	return len(n.messengers)
}

// Send delivers the message to all messengers. Failures are logged and
// ignored.
func (n *Notifier) Send(ctx context.Context, at time.Time, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	for _, m := range n.messengers {
		if err := m.SendMessage(ctx, at, text); err != nil {
			slog.Warn("could not send notification (ignored)", "text", text, "err", err)
		}
	}
}

// Watch sends a message for every trade event from the log until the context
// is canceled or the log is closed.
func (n *Notifier) Watch(ctx context.Context, l *tradelog.Log) error {
	receiver, err := l.Subscribe(false)
	if err != nil {
		return err
	}
	defer receiver.Close()

	eventCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case e, ok := <-eventCh:
			if !ok {
				return nil
			}
			n.Send(ctx, e.Time, "%s", Format(e))
		}
	}
}

// Format returns a one-line human readable description of the event.
func Format(e *tradelog.Event) string {
	r := e.Trade
	switch e.Kind {
	case tradelog.TradeAdded:
		return fmt.Sprintf("Placed %s trade giving %s %s for %s %s at rate %s.",
			r.Direction, r.Give, r.GiveCurrency, r.Receive, r.ReceiveCurrency, r.StartRate.StringFixed(3))
	case tradelog.TradeCompleted:
		if r.Cancelled {
			return fmt.Sprintf("Cancelled %s trade after filling %s of %s %s.",
				r.Direction, filled(r), r.Give, r.GiveCurrency)
		}
		return fmt.Sprintf("Completed %s trade giving %s %s for %s %s at rate %s.",
			r.Direction, r.Give, r.GiveCurrency, r.Receive, r.ReceiveCurrency, r.StartRate.StringFixed(3))
	}
	return fmt.Sprintf("Trade %s event %s.", r.ID, e.Kind)
}

func filled(r *gobs.TradeRecord) string {
	return r.Give.Sub(r.Remaining).String()
}
