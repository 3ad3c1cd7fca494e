// Copyright (c) 2025 BVK Chaitanya

// Package server ties the trading supervisor, the trade log and the
// notifications together and exposes them through the http api.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bvk/tcbot/api"
	"github.com/bvk/tcbot/config"
	"github.com/bvk/tcbot/ctxutil"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/httputil"
	"github.com/bvk/tcbot/notify"
	"github.com/bvk/tcbot/pushover"
	"github.com/bvk/tcbot/supervisor"
	"github.com/bvk/tcbot/telegram"
	"github.com/bvk/tcbot/tradelog"
	"github.com/bvkgo/kv"
)

type Server struct {
	cg ctxutil.CloseGroup

	opts Options

	db kv.Database

	ex exchange.Exchange

	secrets *Secrets

	cfg *config.Store

	tlog *tradelog.Log

	sup *supervisor.Supervisor

	notifier *notify.Notifier

	telegramClient *telegram.Client
}

func New(ctx context.Context, db kv.Database, ex exchange.Exchange, cfg *config.Store, secrets *Secrets, opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if secrets == nil {
		secrets = new(Secrets)
	}

	s := &Server{
		opts:    *opts,
		db:      db,
		ex:      ex,
		secrets: secrets,
		cfg:     cfg,
		tlog:    tradelog.New(db),
	}
	defer func() {
		if status != nil {
			s.Close()
		}
	}()

	var messengers []notify.Messenger
	if secrets.Pushover != nil {
		client, err := pushover.New(secrets.Pushover)
		if err != nil {
			return nil, fmt.Errorf("could not create pushover client: %w", err)
		}
		messengers = append(messengers, client)
	}
	if secrets.Telegram != nil {
		client, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return nil, fmt.Errorf("could not create telegram client: %w", err)
		}
		s.telegramClient = client
		messengers = append(messengers, client)
	}
	s.notifier = notify.New(messengers...)

	sup, err := supervisor.New(ctx, db, ex, cfg, s.tlog, &s.opts.Supervisor)
	if err != nil {
		return nil, err
	}
	s.sup = sup

	if s.notifier.Len() > 0 {
		s.cg.Go("trade-notifier", func(ctx context.Context) {
			if err := s.notifier.Watch(ctx, s.tlog); err != nil && !errors.Is(err, os.ErrClosed) {
				slog.Warn("trade notifications have stopped", "err", err)
			}
		})
	}
	if s.telegramClient != nil {
		if err := s.addTelegramCommands(ctx); err != nil {
			return nil, err
		}
	}

	if s.opts.AutoStart {
		if err := s.Start(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close stops the traders without resetting the ledger so that the ratchet
// survives the restart.
func (s *Server) Close() error {
	if s.sup != nil {
		s.sup.Close()
	}
	s.cg.Close()
	if s.telegramClient != nil {
		s.telegramClient.Close()
	}
	s.tlog.Close()
	return nil
}

func (s *Server) Supervisor() *supervisor.Supervisor {
	return s.sup
}

func (s *Server) TradeLog() *tradelog.Log {
	return s.tlog
}

// Start logs into the exchange and starts both traders.
func (s *Server) Start(ctx context.Context) error {
	if s.sup.IsRunning() {
		return fmt.Errorf("trading is already running: %w", os.ErrExist)
	}
	var user, pass string
	if s.secrets.Exchange != nil {
		user, pass = s.secrets.Exchange.Username, s.secrets.Exchange.Password
	}
	if err := s.ex.Login(ctx, user, pass); err != nil {
		return fmt.Errorf("could not login to %s: %w", s.ex.ExchangeName(), err)
	}
	if err := s.sup.Start(ctx); err != nil {
		return err
	}
	s.cg.Go("failure-watcher", s.watchFailure)
	return nil
}

// watchFailure notifies the user when the traders stop on a fatal error.
func (s *Server) watchFailure(ctx context.Context) {
	if err := s.sup.Wait(); err != nil {
		s.notifier.Send(ctx, time.Now(), "Trading has stopped with an error: %v", err)
	}
}

func (s *Server) Stop(ctx context.Context) error {
	return s.sup.Stop(ctx)
}

// HandlerMap returns the http api handlers keyed by their paths.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.StartPath:     httputil.JSONHandler(s.doStart),
		api.StopPath:      httputil.JSONHandler(s.doStop),
		api.StatusPath:    httputil.JSONHandler(s.doStatus),
		api.ConfigSetPath: httputil.JSONHandler(s.doConfigSet),
		api.TradesPath:    httputil.JSONHandler(s.doTrades),
		api.EventsPath:    http.HandlerFunc(s.serveEvents),
	}
}
