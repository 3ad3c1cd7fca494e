// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bvk/tcbot/api"
	"github.com/bvk/tcbot/server"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Prints the ratchet rates and open trades of both directions"
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	resp, err := cmdutil.Post[api.StatusResponse](ctx, &c.ClientFlags, api.StatusPath, &api.StatusRequest{})
	if err != nil {
		return err
	}
	server.WriteStatus(os.Stdout, resp)
	return nil
}

type Start struct {
	cmdutil.ClientFlags
}

func (c *Start) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("start", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "start", fset, cli.CmdFunc(c.run)
}

func (c *Start) Purpose() string {
	return "Logs into the exchange and starts trading"
}

func (c *Start) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if _, err := cmdutil.Post[api.StartResponse](ctx, &c.ClientFlags, api.StartPath, &api.StartRequest{}); err != nil {
		return err
	}
	fmt.Println("Trading is started.")
	return nil
}

type Stop struct {
	cmdutil.ClientFlags
}

func (c *Stop) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("stop", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "stop", fset, cli.CmdFunc(c.run)
}

func (c *Stop) Purpose() string {
	return "Cancels open trades, stops trading and resets the ratchet"
}

func (c *Stop) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	if _, err := cmdutil.Post[api.StopResponse](ctx, &c.ClientFlags, api.StopPath, &api.StopRequest{}); err != nil {
		return err
	}
	fmt.Println("Trading is stopped.")
	return nil
}
