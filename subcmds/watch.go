// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/bvk/tcbot/api"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/gorilla/websocket"
	"github.com/visvasity/cli"
)

type Watch struct {
	cmdutil.ClientFlags
}

func (c *Watch) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "watch", fset, cli.CmdFunc(c.run)
}

func (c *Watch) Purpose() string {
	return "Prints trade events from the running service as they happen"
}

func (c *Watch) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	wsURL, err := c.ClientFlags.Endpoint("ws", api.EventsPath)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return fmt.Errorf("could not connect to %s: http status %d: %w", wsURL, resp.StatusCode, err)
		}
		return fmt.Errorf("could not connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var e api.Event
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("could not read trade event: %w", err)
		}
		t := e.Trade
		if t == nil {
			continue
		}
		fmt.Printf("%s %s %s trade %s giving %s %s for %s %s at rate %s, remaining %s\n",
			e.Time.Local().Format("2006-01-02 15:04:05"), e.Kind, t.Direction, t.ID,
			t.Give, t.GiveCurrency, t.Receive, t.ReceiveCurrency,
			t.CurrentRate.StringFixed(3), t.Remaining)
	}
}
