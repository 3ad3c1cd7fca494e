// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/bvk/tcbot/pushover"
	"github.com/bvk/tcbot/telegram"
)

// ExchangeSecrets holds the web exchange address and the login credentials.
type ExchangeSecrets struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (v *ExchangeSecrets) Check() error {
	if len(v.URL) != 0 {
		if _, err := url.Parse(v.URL); err != nil {
			return fmt.Errorf("invalid exchange url: %w", err)
		}
	}
	if len(v.Username) == 0 && len(v.Password) != 0 {
		return fmt.Errorf("exchange username cannot be empty when password is set")
	}
	return nil
}

type Secrets struct {
	Exchange *ExchangeSecrets  `json:"exchange"`
	Pushover *pushover.Keys    `json:"pushover"`
	Telegram *telegram.Secrets `json:"telegram"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("could not parse secrets file %q: %w", fpath, err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the secrets to the file with owner only permissions.
func (v *Secrets) Save(fpath string) error {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fpath, js, 0600)
}

func (v *Secrets) Check() error {
	if v.Exchange != nil {
		if err := v.Exchange.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	return nil
}
