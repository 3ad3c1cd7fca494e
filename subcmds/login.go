// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bvk/tcbot/server"
	"github.com/bvk/tcbot/subcmds/cmdutil"
	"github.com/bvk/tcbot/webex"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Login struct {
	cmdutil.DataFlags
	cmdutil.PairFlags

	exchangeURL string
	username    string

	skipTesting bool
}

func (c *Login) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("login", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.PairFlags.SetFlags(fset)
	fset.StringVar(&c.exchangeURL, "exchange-url", "", "base url of the exchange api")
	fset.StringVar(&c.username, "username", "", "exchange account username")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't verify the credentials with the exchange")
	return "login", fset, cli.CmdFunc(c.run)
}

func (c *Login) Purpose() string {
	return "Saves the exchange address and login credentials"
}

func (c *Login) Description() string {
	return `

Command "login" prompts for the exchange account password, verifies the
credentials by logging into the exchange and saves them to the secrets file.
Exchange url and username are taken from the flags or prompted for when
missing.

  $ tcbot login -exchange-url=https://exchange.example.com/api -username=trader

`
}

func (c *Login) run(ctx context.Context, args []string) error {
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
	p, err := c.PairFlags.Pair()
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(os.Stdin)
	prompt := func(name string) (string, error) {
		fmt.Printf("%s: ", name)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	if len(c.exchangeURL) == 0 {
		if c.exchangeURL, err = prompt("Exchange URL"); err != nil {
			return err
		}
	}
	if len(c.username) == 0 {
		if c.username, err = prompt("Username"); err != nil {
			return err
		}
	}
	fmt.Printf("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("could not read password: %w", err)
	}

	secrets.Exchange = &server.ExchangeSecrets{
		URL:      c.exchangeURL,
		Username: c.username,
		Password: string(password),
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		baseURL, err := url.Parse(c.exchangeURL)
		if err != nil {
			return fmt.Errorf("could not parse exchange url: %w", err)
		}
		client, err := webex.New(baseURL.Host, baseURL, p, nil)
		if err != nil {
			return err
		}
		if err := client.Login(ctx, c.username, string(password)); err != nil {
			return err
		}
		if _, err := client.Refresh(ctx); err != nil {
			return fmt.Errorf("could not fetch market data after login: %w", err)
		}
		fmt.Println("Login is successful.")
	}
	return secrets.Save(secretsPath)
}
