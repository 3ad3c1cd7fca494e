// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Secrets hold the bot token and the telegram usernames allowed to talk to
// the bot. Notifications go to every allowed user that has started a chat.
type Secrets struct {
	BotToken string `json:"token"`

	OwnerID  string   `json:"owner"`
	OtherIDs []string `json:"others"`
}

func (v *Secrets) Check() error {
	if len(strings.TrimSpace(v.BotToken)) == 0 {
		return fmt.Errorf("telegram bot token is required: %w", os.ErrInvalid)
	}
	if len(v.OwnerID) == 0 {
		return fmt.Errorf("telegram owner username is required: %w", os.ErrInvalid)
	}
	for _, id := range v.OtherIDs {
		if len(id) == 0 {
			return fmt.Errorf("telegram usernames cannot be empty: %w", os.ErrInvalid)
		}
		if id == v.OwnerID {
			return fmt.Errorf("owner %q is repeated in other usernames: %w", id, os.ErrInvalid)
		}
	}
	return nil
}

func (v *Secrets) Clone() *Secrets {
	c := *v
	c.OtherIDs = slices.Clone(v.OtherIDs)
	return &c
}

func (v *Secrets) isAuthorized(user string) bool {
	return len(user) != 0 && (user == v.OwnerID || slices.Contains(v.OtherIDs, user))
}
