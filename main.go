// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/tcbot/subcmds"
	"github.com/bvk/tcbot/subcmds/conf"
	"github.com/bvk/tcbot/subcmds/db"
	"github.com/bvk/tcbot/subcmds/setup"
	"github.com/visvasity/cli"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.List),
		new(db.Backup),
		new(db.Restore),
	}

	configCmds := []cli.Command{
		new(conf.Set),
		new(conf.Get),
	}

	setupCmds := []cli.Command{
		new(setup.Telegram),
		new(setup.PushOver),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Login),
		new(subcmds.Status),
		new(subcmds.Start),
		new(subcmds.Stop),
		new(subcmds.Trades),
		new(subcmds.Watch),
		new(subcmds.PaperExchange),
		cli.NewGroup("config", "View/update trading settings", configCmds...),
		cli.NewGroup("db", "View/update database directly", dbCmds...),
		cli.NewGroup("setup", "Configure notification services", setupCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
