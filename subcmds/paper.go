// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bvk/tcbot/httputil"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/paper"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/bvk/tcbot/webex"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type PaperExchange struct {
	cmdutil.ServerFlags
	cmdutil.PairFlags

	username string
	password string

	rate     string
	balance  string
	depth    int
	interval time.Duration
	seed     uint64
}

func (c *PaperExchange) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("paper-exchange", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	c.PairFlags.SetFlags(fset)
	fset.StringVar(&c.username, "username", "", "accepted login username; empty accepts any login")
	fset.StringVar(&c.password, "password", "", "accepted login password")
	fset.StringVar(&c.rate, "rate", "12.5", "mid rate of the simulated market")
	fset.StringVar(&c.balance, "balance", "10000", "starting balance of both currencies")
	fset.IntVar(&c.depth, "depth", 10, "number of offers from other traders in each column")
	fset.DurationVar(&c.interval, "interval", time.Second, "delay between two simulated market ticks")
	fset.Uint64Var(&c.seed, "seed", 0, "random seed for the simulation; zero picks a time based seed")
	return "paper-exchange", fset, cli.CmdFunc(c.run)
}

func (c *PaperExchange) Purpose() string {
	return "Serves a simulated exchange over the web exchange protocol"
}

func (c *PaperExchange) Description() string {
	return `

Command "paper-exchange" runs an in-memory exchange with a simulated market
and serves it with the same json over http protocol that tcbot uses to talk
to the real exchange. It is useful to try out the complete service, including
the login and session handling, without real money:

  $ tcbot paper-exchange -listen-port=10200 -username=test -password=test
  $ tcbot login -exchange-url=http://127.0.0.1:10200 -username=test
  $ tcbot run

`
}

func (c *PaperExchange) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := c.PairFlags.Pair()
	if err != nil {
		return err
	}
	addr, err := c.ServerFlags.TCPAddr()
	if err != nil {
		return err
	}
	mid, err := decimal.NewFromString(c.rate)
	if err != nil || !mid.IsPositive() {
		return fmt.Errorf("rate must be a positive number: %w", os.ErrInvalid)
	}
	balance, err := decimal.NewFromString(c.balance)
	if err != nil || balance.IsNegative() {
		return fmt.Errorf("balance must be a non-negative number: %w", os.ErrInvalid)
	}
	if c.depth <= 0 {
		return fmt.Errorf("depth must be positive: %w", os.ErrInvalid)
	}

	ex, err := paper.New(p, &paper.Options{Username: c.username, Password: c.password})
	if err != nil {
		return err
	}
	seed := c.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	ex.Populate(rand.New(rand.NewPCG(seed, seed>>1)), mid, c.depth)
	for _, d := range pair.Directions {
		ex.SetBalance(d, balance)
	}
	go ex.Simulate(ctx, c.interval, seed)

	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.StartTCP(ctx, addr); err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	s.AddHandler("/", webex.NewHandler(ex))

	slog.Info("started paper exchange", "addr", addr, "pair", p, "seed", seed)
	<-ctx.Done()
	return nil
}
