// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"io"

	"github.com/bvk/tcbot/api"
	"github.com/visvasity/cli"
)

func (s *Server) addTelegramCommands(ctx context.Context) error {
	cmds := []struct {
		name, purpose string
		handler       cli.CmdFunc
	}{
		{"status", "Prints trading status", s.statusTelegramCmd},
		{"start", "Starts trading", s.startTelegramCmd},
		{"stop", "Stops trading and resets the ratchet", s.stopTelegramCmd},
	}
	for _, c := range cmds {
		if err := s.telegramClient.AddCommand(ctx, c.name, c.purpose, c.handler); err != nil {
			return fmt.Errorf("could not add telegram command %q: %w", c.name, err)
		}
	}
	return nil
}

func (s *Server) statusTelegramCmd(ctx context.Context, args []string) error {
	resp, err := s.doStatus(ctx, &api.StatusRequest{})
	if err != nil {
		return err
	}
	WriteStatus(cli.Stdout(ctx), resp)
	return nil
}

func (s *Server) startTelegramCmd(ctx context.Context, args []string) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.Stdout(ctx), "Trading is started.")
	return nil
}

func (s *Server) stopTelegramCmd(ctx context.Context, args []string) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.Stdout(ctx), "Trading is stopped.")
	return nil
}

// WriteStatus prints the status in a human readable form.
func WriteStatus(w io.Writer, st *api.StatusResponse) {
	state := "stopped"
	if st.Running {
		state = "running"
	}
	fmt.Fprintf(w, "%s on %s is %s\n", st.Pair, st.Exchange, state)
	if len(st.Error) != 0 {
		fmt.Fprintf(w, "Last error: %s\n", st.Error)
	}
	if !st.LastTradeTime.IsZero() {
		fmt.Fprintf(w, "Last trade: %s\n", st.LastTradeTime.Format("2006-01-02 15:04:05 MST"))
	}
	for _, t := range st.Traders {
		fmt.Fprintf(w, "%s: last=%s current=%s holds-top=%t amount=%s trade-all=%t split=%q\n",
			t.Direction, t.LastRate.StringFixed(3), t.CurrentRate.StringFixed(3), t.HoldsTop,
			t.Amount, t.TradeAll, t.SplitTrades)
		if t.Current != nil {
			fmt.Fprintf(w, "  open trade %s: %s/%s remaining at rate %s\n",
				t.Current.ID, t.Current.Remaining, t.Current.Give, t.Current.CurrentRate.StringFixed(3))
		}
	}
}
