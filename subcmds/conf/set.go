// Copyright (c) 2025 BVK Chaitanya

package conf

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/tcbot/api"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Set struct {
	cmdutil.ClientFlags
}

func (c *Set) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("set", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "set", fset, cli.CmdFunc(c.run)
}

func (c *Set) Purpose() string {
	return "Updates a trading setting of a direction in the running service"
}

func (c *Set) Description() string {
	return `

Command "set" takes three arguments: the direction (AB or BA), the setting
name and the new value. Following settings are supported:

  split_trades   Passed through to the exchange with every order.
  trade_all      When true, every trade uses the whole balance.
  amount         Max amount of the given currency to trade when trade_all is false.

Any change cancels the open trade of the direction, which is placed again in
the next poll cycle with the new settings.

  $ tcbot config set AB amount 1000

`
}

func (c *Set) run(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("this command takes three (direction, key, value) arguments")
	}
	req := &api.ConfigSetRequest{
		Direction: args[0],
		Key:       args[1],
		Value:     args[2],
	}
	if err := req.Check(); err != nil {
		return err
	}
	resp, err := cmdutil.Post[api.ConfigSetResponse](ctx, &c.ClientFlags, api.ConfigSetPath, req)
	if err != nil {
		return err
	}
	fmt.Printf("%s: split_trades=%q trade_all=%t amount=%s\n", resp.Direction, resp.SplitTrades, resp.TradeAll, resp.Amount)
	return nil
}
