// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/go-telegram/bot/models"
)

var testingSecrets *Secrets

func checkSecrets() bool {
	if testingSecrets != nil {
		return true
	}
	data, err := os.ReadFile("telegram-creds.json")
	if err != nil {
		return false
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	if err := s.Check(); err != nil {
		return false
	}
	testingSecrets = s
	return true
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	if !checkSecrets() {
		t.Skip("no credentials")
		return
	}

	c, err := New(ctx, kvmemdb.New(), testingSecrets)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	t.Logf("authorized as bot %s", c.BotUserName())
	if err := c.SendMessage(ctx, time.Now(), t.Name()); err != nil {
		t.Fatal(err)
	}
}

func TestSecretsCheck(t *testing.T) {
	good := &Secrets{BotToken: "token", OwnerID: "alice", OtherIDs: []string{"bob"}}
	if err := good.Check(); err != nil {
		t.Fatal(err)
	}
	if !good.isAuthorized("bob") || good.isAuthorized("eve") {
		t.Fatalf("unexpected authorization result")
	}

	bad := []*Secrets{
		{OwnerID: "alice"},
		{BotToken: "token"},
		{BotToken: "token", OwnerID: "alice", OtherIDs: []string{""}},
		{BotToken: "token", OwnerID: "alice", OtherIDs: []string{"alice"}},
	}
	for i, s := range bad {
		if err := s.Check(); err == nil {
			t.Fatalf("%d: want an error for %#v", i, s)
		}
	}
}

func TestParseCommand(t *testing.T) {
	cmd := func(text string, length int) *models.Message {
		return &models.Message{
			Text: text,
			Entities: []models.MessageEntity{
				{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: length},
			},
		}
	}

	name, args, err := parseCommand(cmd("/status", 7))
	if err != nil || name != "status" || len(args) != 0 {
		t.Fatalf("unexpected result %q %v %v", name, args, err)
	}

	name, args, err = parseCommand(cmd("/config@tcbot ab amount 100", 13))
	if err != nil || name != "config" || !slices.Equal(args, []string{"ab", "amount", "100"}) {
		t.Fatalf("unexpected result %q %v %v", name, args, err)
	}

	if _, _, err := parseCommand(&models.Message{Text: "hello"}); err == nil {
		t.Fatalf("want an error for a plain message")
	}
}
