// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/bvk/tcbot/config"
	"github.com/bvk/tcbot/ctxutil"
	"github.com/bvk/tcbot/daemonize"
	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/httputil"
	"github.com/bvk/tcbot/logdir"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/paper"
	"github.com/bvk/tcbot/server"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/bvk/tcbot/subcmds/defaults"
	"github.com/bvk/tcbot/supervisor"
	"github.com/bvk/tcbot/trader"
	"github.com/bvk/tcbot/webex"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

const daemonizeEnvKey = "TCBOT_DAEMONIZE"

type Run struct {
	cmdutil.ServerFlags
	cmdutil.DataFlags
	cmdutil.PairFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	debug bool

	configFile string

	noStart bool

	pollInterval time.Duration
	idleReset    time.Duration

	paper        bool
	paperRate    string
	paperBalance string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	c.DataFlags.SetFlags(fset)
	c.PairFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.debug, "debug", false, "when true, debug messages are logged")
	fset.StringVar(&c.configFile, "config-file", "", "path to the trading config file; defaults to config.yaml in the data directory")
	fset.BoolVar(&c.noStart, "no-start", false, "when true, trading waits for an explicit start command")
	fset.DurationVar(&c.pollInterval, "poll-interval", 175*time.Millisecond, "delay between two poll cycles of a trader")
	fset.DurationVar(&c.idleReset, "idle-reset", 300*time.Second, "resets the ratchet when no trade is placed for this long")
	fset.BoolVar(&c.paper, "paper", false, "when true, trades on a simulated in-memory exchange")
	fset.StringVar(&c.paperRate, "paper-rate", "12.5", "mid rate of the simulated market")
	fset.StringVar(&c.paperBalance, "paper-balance", "10000", "starting balance of both currencies in the simulated market")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs tcbot in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the tcbot service. The service logs into the exchange and
trades both directions of the currency pair until it is stopped. Ratchet state
is kept in the database so that a restart continues from the last rates.

SECRETS FILE

Exchange address and the login credentials are read from a secrets file in
JSON format. Use the "login" command to create it or write it by hand:

    {
        "exchange":{
            "url":"https://exchange.example.com/api",
            "username":"trader",
            "password":"secret"
        }
    }

The secrets file may also carry the "telegram" and "pushover" sections which
are created by the "setup" commands.

PAPER TRADING

With the -paper flag, the service trades on a simulated exchange with an
in-memory database. Nothing is read from or written to the exchange and the
ratchet state is discarded on exit.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := c.DataFlags.DataDir()
	if err != nil {
		return err
	}
	secrets, err := c.DataFlags.Secrets()
	if err != nil {
		return err
	}
	p, err := c.PairFlags.Pair()
	if err != nil {
		return err
	}
	addr, err := c.ServerFlags.TCPAddr()
	if err != nil {
		return err
	}
	if !c.paper && (secrets.Exchange == nil || len(secrets.Exchange.URL) == 0) {
		return fmt.Errorf("exchange url is not configured in the secrets file: %w", os.ErrInvalid)
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context, child *os.Process) error {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if pid := string(data); pid != strconv.Itoa(child.Pid) {
			return fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, daemonizeEnvKey, check); err != nil {
			return err
		}
	}

	backend, err := logdir.New(defaults.LogDir(dataDir), "tcbot")
	if err != nil {
		return err
	}
	defer backend.Close()

	level := slog.LevelInfo
	if c.debug {
		level = slog.LevelDebug
	}
	var logw io.Writer = backend
	if !daemonize.IsChild(daemonizeEnvKey) {
		logw = io.MultiWriter(os.Stderr, backend)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logw, &slog.HandlerOptions{Level: level})))

	secretsPath, _ := c.DataFlags.SecretsPath()
	slog.Info("using data directory and secrets file", "data-dir", dataDir, "secrets-file", secretsPath)

	lockPath := filepath.Join(dataDir, "tcbot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.StartTCP(ctx, addr); err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}

	// Open the database.
	var db kv.Database
	if c.paper {
		db = kvmemdb.New()
	} else {
		bdb, err := badger.Open(badger.DefaultOptions(filepath.Join(dataDir, "db")).WithLogger(nil))
		if err != nil {
			return fmt.Errorf("could not open the database: %w", err)
		}
		defer bdb.Close()
		db = kvbadger.New(bdb, cmdutil.IsGoodKey)
	}
	s.AddHandler(cmdutil.DBPath+"/", http.StripPrefix(cmdutil.DBPath, kvhttp.Handler(db)))

	ex, err := c.newExchange(ctx, p, secrets)
	if err != nil {
		return err
	}

	configFile := c.configFile
	if len(configFile) == 0 {
		configFile = filepath.Join(dataDir, "config.yaml")
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	defer cfg.Close()

	sopts := &server.Options{
		AutoStart: !c.noStart,
		Supervisor: supervisor.Options{
			PollInterval: c.pollInterval,
			Trader: trader.Options{
				IdleReset: c.idleReset,
			},
		},
	}
	bot, err := server.New(ctx, db, ex, cfg, secrets, sopts)
	if err != nil {
		return err
	}
	defer bot.Close()

	apis := bot.HandlerMap()
	for k, v := range apis {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range apis {
			s.RemoveHandler(k)
		}
	}()

	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, strconv.Itoa(os.Getpid()))
	}))

	slog.Info("started tcbot server", "addr", addr, "exchange", ex.ExchangeName(), "pair", p)
	<-ctx.Done()
	slog.Info("tcbot server is shutting down", "cause", context.Cause(ctx))
	return nil
}

func (c *Run) newExchange(ctx context.Context, p pair.Pair, secrets *server.Secrets) (exchange.Exchange, error) {
	if c.paper {
		mid, err := decimal.NewFromString(c.paperRate)
		if err != nil || !mid.IsPositive() {
			return nil, fmt.Errorf("paper rate must be a positive number: %w", os.ErrInvalid)
		}
		balance, err := decimal.NewFromString(c.paperBalance)
		if err != nil || balance.IsNegative() {
			return nil, fmt.Errorf("paper balance must be a non-negative number: %w", os.ErrInvalid)
		}
		ex, err := paper.New(p, nil)
		if err != nil {
			return nil, err
		}
		seed := uint64(time.Now().UnixNano())
		ex.Populate(rand.New(rand.NewPCG(seed, seed>>1)), mid, 10)
		for _, d := range pair.Directions {
			ex.SetBalance(d, balance)
		}
		go ex.Simulate(ctx, time.Second, seed)
		return ex, nil
	}

	baseURL, err := url.Parse(secrets.Exchange.URL)
	if err != nil {
		return nil, fmt.Errorf("could not parse exchange url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("exchange url must be a http or https url: %w", os.ErrInvalid)
	}
	ex, err := webex.New(baseURL.Host, baseURL, p, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create exchange client: %w", err)
	}
	return ex, nil
}
