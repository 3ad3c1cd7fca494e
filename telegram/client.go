// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bvk/tcbot/ctxutil"
	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/kvutil"
	"github.com/bvkgo/kv"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

type Command struct {
	Purpose string
	Handler cli.CmdFunc
}

// Client is a telegram bot that sends notifications to the authorized users
// and runs their commands.
type Client struct {
	cg ctxutil.CloseGroup

	db kv.Database

	bot  *bot.Bot
	self *models.User

	secrets *Secrets

	mu       sync.Mutex
	state    *gobs.TelegramState
	commands map[string]*Command
}

func New(ctx context.Context, db kv.Database, secrets *Secrets) (*Client, error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		db:       db,
		secrets:  secrets.Clone(),
		commands: make(map[string]*Command),
	}
	b, err := bot.New(secrets.BotToken, bot.WithDefaultHandler(c.handler))
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	c.bot = b

	self, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get bot user information: %w", err)
	}
	c.self = self

	state, err := kvutil.GetDB[gobs.TelegramState](ctx, db, c.stateKey())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		state = &gobs.TelegramState{UserChatIDMap: make(map[string]int64)}
	}
	c.state = state

	c.cg.Go("telegram-bot", func(ctx context.Context) {
		c.bot.Start(ctx)
	})
	return c, nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) BotUserName() string {
	return c.self.Username
}

func (c *Client) stateKey() string {
	return path.Join("/telegram", c.self.Username, "state")
}

// AddCommand registers a bot command. Output written to cli.Stdout by the
// handler is sent back as the reply.
func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler cli.CmdFunc) error {
	if len(name) == 0 || len(purpose) == 0 || handler == nil {
		return os.ErrInvalid
	}

	c.mu.Lock()
	if _, ok := c.commands[name]; ok {
		c.mu.Unlock()
		return os.ErrExist
	}
	c.commands[name] = &Command{Purpose: purpose, Handler: handler}
	params := c.commandsLocked()
	c.mu.Unlock()

	if ok, err := c.bot.SetMyCommands(ctx, params); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("could not set bot commands")
	}
	return nil
}

func (c *Client) commandsLocked() *bot.SetMyCommandsParams {
	var cmds []models.BotCommand
	for name, cmd := range c.commands {
		cmds = append(cmds, models.BotCommand{Command: name, Description: cmd.Purpose})
	}
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Command < cmds[j].Command
	})
	return &bot.SetMyCommandsParams{Commands: cmds}
}

// SendMessage sends the text to all authorized users with a known chat id.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text
	receivers := append([]string{c.secrets.OwnerID}, c.secrets.OtherIDs...)

	var errs []error
	for _, receiver := range receivers {
		chatID, ok := c.state.UserChatIDMap[receiver]
		if !ok {
			slog.Warn("could not notify telegram user without a chat id", "user", receiver)
			continue
		}
		if _, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: msg}); err != nil {
			errs = append(errs, fmt.Errorf("could not notify %q: %w", receiver, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	sender := update.Message.From.Username
	if !c.secrets.isAuthorized(sender) {
		slog.Warn("ignoring telegram message from an unauthorized user", "user", sender)
		return
	}
	if err := c.updateChatID(ctx, sender, update.Message.Chat.ID); err != nil {
		slog.Warn("could not save telegram chat id (ignored)", "user", sender, "err", err)
	}

	reply := c.run(ctx, update.Message)
	if len(reply) == 0 {
		return
	}
	params := &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   reply,
		ReplyParameters: &models.ReplyParameters{
			MessageID: update.Message.ID,
		},
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		slog.Error("could not reply to telegram command", "user", sender, "err", err)
	}
}

func (c *Client) run(ctx context.Context, msg *models.Message) string {
	name, args, err := parseCommand(msg)
	if err != nil {
		return ""
	}

	c.mu.Lock()
	cmd, ok := c.commands[name]
	c.mu.Unlock()
	if !ok {
		return fmt.Sprintf("unknown command %q", name)
	}

	var sb strings.Builder
	if err := cmd.Handler(cli.WithStdout(ctx, &sb), args); err != nil {
		slog.Warn("telegram command failed", "command", name, "err", err)
		return err.Error()
	}
	return sb.String()
}

func (c *Client) updateChatID(ctx context.Context, user string, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.state.UserChatIDMap[user]; ok && id == chatID {
		return nil
	}
	c.state.UserChatIDMap[user] = chatID
	slog.Info("learned telegram chat id for user", "user", user, "chat-id", chatID)
	return kvutil.SetDB(ctx, c.db, c.stateKey(), c.state)
}

// parseCommand splits a bot command message into the command name and its
// arguments.
func parseCommand(msg *models.Message) (string, []string, error) {
	if len(msg.Entities) == 0 {
		return "", nil, os.ErrInvalid
	}
	entity := msg.Entities[0]
	if entity.Type != models.MessageEntityTypeBotCommand || entity.Offset != 0 {
		return "", nil, os.ErrInvalid
	}
	if entity.Length < 2 || entity.Length > len(msg.Text) || msg.Text[0] != '/' {
		return "", nil, os.ErrInvalid
	}
	name := msg.Text[1:entity.Length]
	// Commands in groups are suffixed with the bot name.
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	args := strings.Fields(msg.Text[entity.Length:])
	return name, args, nil
}
