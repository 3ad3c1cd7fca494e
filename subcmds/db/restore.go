// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bvk/tcbot/kvutil"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Restore struct {
	cmdutil.DBFlags

	keyspace string
}

func (c *Restore) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("restore", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.keyspace, "keyspace", "/", "limits the operation to the keys under this directory, like /trades")
	return "restore", fset, cli.CmdFunc(c.run)
}

func (c *Restore) Purpose() string {
	return "Replaces the database content with a backup file"
}

func (c *Restore) Description() string {
	return `

Command "restore" deletes all keys in the database and loads the keys and
values from a backup file created by the "backup" command. Use the
-backup-before flag to keep a copy of the current content.

`
}

func (c *Restore) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (backup-file) argument")
	}

	fp, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer fp.Close()

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return fmt.Errorf("could not create database client: %w", err)
	}
	defer closer()

	return kvutil.RestoreDB(ctx, db, bufio.NewReader(fp), c.keyspace)
}
