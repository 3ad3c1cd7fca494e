// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"fmt"
	"strings"

	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/ledger"
	"github.com/bvk/tcbot/tradelog"
)

func TypeNameValue(typename string) (any, error) {
	var v any
	switch typename {
	case "LedgerState":
		v = new(gobs.LedgerState)
	case "TradeRecord":
		v = new(gobs.TradeRecord)
	case "TelegramState":
		v = new(gobs.TelegramState)
	case "KeyValue":
		v = new(gobs.KeyValue)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}

// keyTypeName returns the value type name for well-known keys.
func keyTypeName(key string) string {
	switch {
	case key == ledger.StateKey:
		return "LedgerState"
	case strings.HasPrefix(key, tradelog.Keyspace):
		return "TradeRecord"
	case strings.HasPrefix(key, "/telegram/"):
		return "TelegramState"
	}
	return ""
}
