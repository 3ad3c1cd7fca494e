// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bvk/tcbot/api"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Trades struct {
	cmdutil.ClientFlags

	direction string
	period    string
	limit     int
}

func (c *Trades) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("trades", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.direction, "direction", "", "when non-empty, lists trades of the AB or BA direction only")
	fset.StringVar(&c.period, "period", "", "when non-empty, lists trades from today, yesterday, this-week, last-week, this-month, last-month or a duration like 24h")
	fset.IntVar(&c.limit, "limit", 20, "max number of most recent trades to list; zero lists all")
	return "trades", fset, cli.CmdFunc(c.run)
}

func (c *Trades) Purpose() string {
	return "Lists the recent trades and per-direction totals"
}

func (c *Trades) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	req := &api.TradesRequest{
		Direction: c.direction,
		Period:    c.period,
		Limit:     c.limit,
	}
	resp, err := cmdutil.Post[api.TradesResponse](ctx, &c.ClientFlags, api.TradesPath, req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 8, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Created\tDirection\tGive\tReceive\tFilled\tRate\tState\t\n")
	for _, r := range resp.Trades {
		state := "open"
		if r.Cancelled {
			state = "cancelled"
		} else if r.IsFinished() {
			state = "completed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s %s\t%s\t%s\t%s\t\n",
			r.CreateTime.Local().Format("2006-01-02 15:04:05"), r.Direction,
			r.Give, r.GiveCurrency, r.Receive, r.ReceiveCurrency,
			r.Give.Sub(r.Remaining), r.CurrentRate.StringFixed(3), state)
	}
	tw.Flush()

	if len(resp.Summaries) == 0 {
		return nil
	}
	fmt.Println()
	tw = tabwriter.NewWriter(os.Stdout, 8, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Direction\tTrades\tOpen\tCancelled\tGiven\tReceived\tAvgRate\t\n")
	for _, s := range resp.Summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t\n",
			s.Direction, s.NumTrades, s.NumOpen, s.NumCancelled,
			s.Given, s.Received, s.AvgRate.StringFixed(3))
	}
	tw.Flush()
	return nil
}
