// Copyright (c) 2025 BVK Chaitanya

package conf

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/bvk/tcbot/config"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Get struct {
	cmdutil.DataFlags

	configFile string
}

func (c *Get) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.StringVar(&c.configFile, "config-file", "", "path to the trading config file; defaults to config.yaml in the data directory")
	return "get", fset, cli.CmdFunc(c.run)
}

func (c *Get) Purpose() string {
	return "Prints trading settings from the config file"
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("this command takes optional direction and key arguments")
	}

	fpath := c.configFile
	if len(fpath) == 0 {
		dir, err := c.DataFlags.DataDir()
		if err != nil {
			return err
		}
		fpath = filepath.Join(dir, "config.yaml")
	}
	store, err := config.Load(fpath)
	if err != nil {
		return err
	}
	defer store.Close()

	dirs := pair.Directions[:]
	if len(args) > 0 {
		d, err := pair.ParseDirection(args[0])
		if err != nil {
			return err
		}
		dirs = []pair.Direction{d}
	}
	keys := config.Keys
	if len(args) > 1 {
		keys = []string{args[1]}
	}

	for _, d := range dirs {
		dc := store.Get(d)
		for _, k := range keys {
			v, err := dc.Get(k)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s=%s\n", d, k, v)
		}
	}
	return nil
}
