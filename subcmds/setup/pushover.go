// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bvk/tcbot/pushover"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type PushOver struct {
	cmdutil.DataFlags

	skipTesting bool

	appKey  string
	userKey string
}

func (c *PushOver) Purpose() string {
	return "Configures Pushover notification keys"
}

func (c *PushOver) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pushover", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.StringVar(&c.userKey, "user-key", "", "Pushover service user key")
	fset.StringVar(&c.appKey, "app-key", "", "Pushover service application key")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't send a test message")
	return "pushover", fset, cli.CmdFunc(c.run)
}

func (c *PushOver) Description() string {
	return `

Command "pushover" adds the Pushover keys to the secrets file. With the keys in
place, the tcbot service sends a notification for every trade it places,
completes or cancels.

  $ tcbot setup pushover -app-key=awja5ue...ito7svf -user-key=uscjs2...tvp4kv

`
}

func (c *PushOver) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	secretsPath, err := c.DataFlags.SecretsPath()
	if err != nil {
		return err
	}
	secrets, err := c.DataFlags.Secrets()
	if err != nil {
		return err
	}

	secrets.Pushover = &pushover.Keys{
		ApplicationKey: c.appKey,
		UserKey:        c.userKey,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		client, err := pushover.New(secrets.Pushover)
		if err != nil {
			return err
		}
		if err := client.SendMessage(ctx, time.Now(), "Test message from tcbot pushover setup; please ignore."); err != nil {
			return fmt.Errorf("could not send a test message: %w", err)
		}
	}
	return secrets.Save(secretsPath)
}
