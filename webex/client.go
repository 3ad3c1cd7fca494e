// Copyright (c) 2025 BVK Chaitanya

// Package webex implements an exchange client that talks json over http to a
// web exchange, and a http handler that serves any exchange with the same
// protocol.
package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/bvk/tcbot/ctxutil"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/tcerr"
	"golang.org/x/time/rate"
)

type Options struct {
	HTTPTimeout time.Duration

	// RequestsPerSecond and Burst limit the request rate to the exchange.
	RequestsPerSecond float64
	Burst             int

	// MaxRetries is the number of retries for throttled or unavailable
	// responses before reporting a connection failure.
	MaxRetries    int
	RetryInterval time.Duration
}

func (v *Options) setDefaults() {
	if v.HTTPTimeout == 0 {
		v.HTTPTimeout = 10 * time.Second
	}
	if v.RequestsPerSecond == 0 {
		v.RequestsPerSecond = 20
	}
	if v.Burst == 0 {
		v.Burst = 5
	}
	if v.MaxRetries == 0 {
		v.MaxRetries = 2
	}
	if v.RetryInterval == 0 {
		v.RetryInterval = time.Second
	}
}

func (v *Options) Check() error {
	if v.RequestsPerSecond < 0 || v.Burst < 0 || v.MaxRetries < 0 {
		return fmt.Errorf("rate limits and retries cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type Client struct {
	opts Options

	name    string
	pair    pair.Pair
	baseURL *url.URL

	limiter *rate.Limiter
	client  *http.Client

	mu       sync.Mutex
	username string
	password string
}

var _ exchange.Exchange = &Client{}

func New(name string, baseURL *url.URL, p pair.Pair, opts *Options) (*Client, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:    *opts,
		name:    name,
		pair:    p,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		client: &http.Client{
			Timeout: opts.HTTPTimeout,
			Jar:     jar,
		},
	}
	return c, nil
}

func (c *Client) ExchangeName() string {
	return c.name
}

func (c *Client) Pair() pair.Pair {
	return c.pair
}

func (c *Client) endpoint(p string) *url.URL {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)
	return &u
}

// Login starts a new session. Credentials are kept so that an expired
// session can be renewed transparently.
func (c *Client) Login(ctx context.Context, user, pass string) error {
	resp := new(LoginResponse)
	if err := c.post(ctx, LoginPath, &LoginRequest{Username: user, Password: pass}, resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.username, c.password = user, pass
	c.mu.Unlock()

	slog.Info("logged into the exchange", "exchange", c.name, "remote", resp.Exchange, "user", user)
	return nil
}

func (c *Client) relogin(ctx context.Context) error {
	c.mu.Lock()
	user, pass := c.username, c.password
	c.mu.Unlock()

	if len(user) == 0 {
		return fmt.Errorf("no session: %w", tcerr.ErrLoginFailed)
	}
	slog.Warn("exchange session has expired; logging in again", "exchange", c.name)
	return c.post(ctx, LoginPath, &LoginRequest{Username: user, Password: pass}, new(LoginResponse))
}

func (c *Client) Refresh(ctx context.Context) (*exchange.Snapshot, error) {
	resp := new(MarketResponse)
	if err := c.withSession(ctx, func() error { return c.get(ctx, MarketPath, resp) }); err != nil {
		return nil, err
	}
	return resp.snapshot()
}

func (c *Client) Submit(ctx context.Context, order *exchange.Order) error {
	req := &OrderRequest{
		Direction: order.Direction,
		Give:      order.Give,
		Receive:   order.Receive,
		Split:     order.Split,
	}
	return c.withSession(ctx, func() error { return c.post(ctx, OrdersPath, req, new(OKResponse)) })
}

func (c *Client) Cancel(ctx context.Context, d pair.Direction) error {
	req := &CancelRequest{Direction: d}
	return c.withSession(ctx, func() error { return c.post(ctx, CancelPath, req, new(OKResponse)) })
}

// withSession runs the request and retries it once after a new login when
// the server reports an expired session.
func (c *Client) withSession(ctx context.Context, f func() error) error {
	err := f()
	if !errors.Is(err, errNoSession) {
		return err
	}
	if err := c.relogin(ctx); err != nil {
		return err
	}
	return f()
}

var errNoSession = fmt.Errorf("session expired: %w", tcerr.ErrLoginFailed)

func (c *Client) get(ctx context.Context, p string, response any) error {
	return c.do(ctx, http.MethodGet, p, nil, response)
}

func (c *Client) post(ctx context.Context, p string, request, response any) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("could not encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, p, data, response)
}

func (c *Client) do(ctx context.Context, method, p string, body []byte, response any) error {
	addr := c.endpoint(p)
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, addr.String(), bytes.NewReader(body))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return fmt.Errorf("%s %s: %w: %w", method, p, tcerr.ErrConnection, err)
		}

		retry, wait, err := c.handle(resp, response)
		if !retry {
			if err != nil {
				return fmt.Errorf("%s %s: %w", method, p, err)
			}
			return nil
		}
		if attempt >= c.opts.MaxRetries {
			return fmt.Errorf("%s %s: %w: %w", method, p, tcerr.ErrConnection, err)
		}
		slog.Debug("retrying exchange request", "method", method, "path", p, "wait", wait, "err", err)
		ctxutil.Sleep(ctx, wait)
	}
}

// handle consumes the response. Returns true with a wait duration when the
// request should be retried.
func (c *Client) handle(resp *http.Response, response any) (bool, time.Duration, error) {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return false, 0, fmt.Errorf("could not decode response: %w", err)
		}
		return false, 0, nil
	}

	data, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		wait := c.opts.RetryInterval
		if v := resp.Header.Get("Retry-After"); len(v) != 0 {
			if secs, err := strconv.Atoi(v); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return true, wait, fmt.Errorf("http status %d", resp.StatusCode)
	}

	eresp := new(ErrorResponse)
	if err := json.Unmarshal(data, eresp); err != nil {
		return false, 0, fmt.Errorf("http status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	switch eresp.Code {
	case CodeLoginFailed:
		return false, 0, fmt.Errorf("%s: %w", eresp.Message, tcerr.ErrLoginFailed)
	case CodeNoSession:
		return false, 0, errNoSession
	case CodeNoMoney:
		return false, 0, fmt.Errorf("%s: %w", eresp.Message, tcerr.ErrNoMoney)
	case CodeInvalid:
		return false, 0, fmt.Errorf("%s: %w", eresp.Message, os.ErrInvalid)
	}
	if resp.StatusCode >= 500 {
		return false, 0, fmt.Errorf("%w: http status %d: %s", tcerr.ErrConnection, resp.StatusCode, eresp.Message)
	}
	return false, 0, fmt.Errorf("http status %d: %s", resp.StatusCode, eresp.Message)
}
