// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

type KeyValue struct {
	Key   string
	Value []byte
}

type LedgerEntry struct {
	LastRate    decimal.Decimal
	CurrentRate decimal.Decimal
	HoldsTop    bool
}

// LedgerState is the persistent form of the rate ledger. Entries are indexed
// by the direction they gate.
type LedgerState struct {
	AB *LedgerEntry
	BA *LedgerEntry

	LastTradeTime time.Time
}

// TradeRecord is the persistent form of a single trade placed by one of the
// traders.
type TradeRecord struct {
	ID        string
	Direction string

	GiveCurrency    string
	ReceiveCurrency string

	Give      decimal.Decimal
	Receive   decimal.Decimal
	Remaining decimal.Decimal

	StartRate   decimal.Decimal
	CurrentRate decimal.Decimal

	CreateTime time.Time
	FinishTime time.Time

	// Cancelled is true when the trade was removed from the book before it
	// was filled completely.
	Cancelled bool
}

func (v *TradeRecord) IsFinished() bool {
	return !v.FinishTime.IsZero()
}

// TelegramState keeps the chat ids learned from the messages sent by the
// authorized users to the bot.
type TelegramState struct {
	UserChatIDMap map[string]int64
}
