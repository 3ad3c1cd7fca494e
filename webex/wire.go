// Copyright (c) 2025 BVK Chaitanya

package webex

import (
	"fmt"
	"time"

	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/pair"
	"github.com/shopspring/decimal"
)

const (
	LoginPath  = "/login"
	MarketPath = "/market"
	OrdersPath = "/orders"
	CancelPath = "/orders/cancel"

	SessionCookie = "tcbot-session"

	// MarketRate is the rate placeholder shown for offers at the market price.
	MarketRate = "market"
)

// Error codes in the error responses.
const (
	CodeLoginFailed = "login_failed"
	CodeNoSession   = "no_session"
	CodeNoMoney     = "no_money"
	CodeInvalid     = "invalid"
	CodeInternal    = "internal"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Exchange string `json:"exchange"`
}

type QuoteJSON struct {
	Amount decimal.Decimal `json:"amount"`

	// Rate is a decimal number or the MarketRate placeholder.
	Rate string `json:"rate"`
}

type BookJSON struct {
	Balance   decimal.Decimal `json:"balance"`
	OpenOrder bool            `json:"open_order"`
	Remaining decimal.Decimal `json:"remaining"`

	Top  QuoteJSON `json:"top"`
	Next QuoteJSON `json:"next"`
}

type MarketResponse struct {
	Time   time.Time                          `json:"time"`
	Spread decimal.Decimal                    `json:"spread"`
	Rates  map[pair.Direction]decimal.Decimal `json:"rates"`
	Books  map[pair.Direction]*BookJSON       `json:"books"`
}

type OrderRequest struct {
	Direction pair.Direction  `json:"direction"`
	Give      decimal.Decimal `json:"give"`
	Receive   decimal.Decimal `json:"receive"`
	Split     string          `json:"split,omitempty"`
}

type CancelRequest struct {
	Direction pair.Direction `json:"direction"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func quoteJSON(q exchange.Quote) QuoteJSON {
	if q.AtMarket {
		return QuoteJSON{Amount: q.Amount, Rate: MarketRate}
	}
	return QuoteJSON{Amount: q.Amount, Rate: q.Rate.String()}
}

func (v *QuoteJSON) quote() (exchange.Quote, error) {
	if v.Rate == MarketRate {
		return exchange.Quote{Amount: v.Amount, AtMarket: true}, nil
	}
	if len(v.Rate) == 0 {
		return exchange.Quote{Amount: v.Amount}, nil
	}
	rate, err := decimal.NewFromString(v.Rate)
	if err != nil {
		return exchange.Quote{}, fmt.Errorf("could not parse rate %q: %w", v.Rate, err)
	}
	return exchange.Quote{Amount: v.Amount, Rate: rate}, nil
}

func marketResponse(s *exchange.Snapshot) *MarketResponse {
	resp := &MarketResponse{
		Time:   s.Time,
		Spread: s.Spread,
		Rates:  make(map[pair.Direction]decimal.Decimal),
		Books:  make(map[pair.Direction]*BookJSON),
	}
	for _, d := range pair.Directions {
		b := s.Book(d)
		resp.Rates[d] = s.Rate(d)
		resp.Books[d] = &BookJSON{
			Balance:   b.Balance,
			OpenOrder: b.HasOpenOrder,
			Remaining: b.Remaining,
			Top:       quoteJSON(b.Top),
			Next:      quoteJSON(b.Next),
		}
	}
	return resp
}

func (v *MarketResponse) snapshot() (*exchange.Snapshot, error) {
	s := &exchange.Snapshot{
		Time:   v.Time,
		Spread: v.Spread,
	}
	for _, d := range pair.Directions {
		s.Rates[d] = v.Rates[d]
		b, ok := v.Books[d]
		if !ok || b == nil {
			return nil, fmt.Errorf("market response has no %s book", d)
		}
		top, err := b.Top.quote()
		if err != nil {
			return nil, fmt.Errorf("%s top trade: %w", d, err)
		}
		next, err := b.Next.quote()
		if err != nil {
			return nil, fmt.Errorf("%s next trade: %w", d, err)
		}
		s.Books[d] = exchange.Book{
			Balance:      b.Balance,
			HasOpenOrder: b.OpenOrder,
			Remaining:    b.Remaining,
			Top:          top,
			Next:         next,
		}
	}
	return s, nil
}
