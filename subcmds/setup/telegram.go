// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/tcbot/ctxutil"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/bvk/tcbot/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Telegram struct {
	cmdutil.DataFlags

	skipTesting bool

	ownerID  string
	otherIDs string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Configures the Telegram bot for notifications and commands"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram username")
	fset.StringVar(&c.otherIDs, "other-ids", "", "Comma separated telegram usernames of other authorized users")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't send a test message")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" adds the Telegram bot parameters to the secrets file. With
the parameters in place, the tcbot service sends trade notifications to the
owner and accepts the /status, /start and /stop commands from the authorized
users.

  $ tcbot setup telegram -owner-id=username -bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
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

	var others []string
	if len(c.otherIDs) != 0 {
		others = strings.Split(c.otherIDs, ",")
	}
	secrets.Telegram = &telegram.Secrets{
		BotToken: c.botToken,
		OwnerID:  c.ownerID,
		OtherIDs: others,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		fmt.Println("Start a chat with the telegram bot and then press any key")
		if err := waitKeyPress(); err != nil {
			return err
		}

		client, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram)
		if err != nil {
			return err
		}
		defer client.Close()

		ctxutil.Sleep(ctx, time.Second)
		if err := client.SendMessage(ctx, time.Now(), "Test message from tcbot telegram setup; please ignore."); err != nil {
			return fmt.Errorf("could not send a test message: %w", err)
		}
	}
	return secrets.Save(secretsPath)
}

func waitKeyPress() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	b := make([]byte, 1)
	if _, err := os.Stdin.Read(b); err != nil {
		return err
	}
	return nil
}
