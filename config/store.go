// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bvk/tcbot/pair"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
	"gopkg.in/yaml.v3"
)

type yamlDirection struct {
	SplitTrades string `yaml:"split_trades"`
	TradeAll    bool   `yaml:"trade_all"`
	Amount      string `yaml:"amount"`
}

type yamlFile struct {
	AB yamlDirection `yaml:"ab"`
	BA yamlDirection `yaml:"ba"`
}

func (v *yamlDirection) toDirection() (Direction, error) {
	c := Direction{SplitTrades: v.SplitTrades, TradeAll: v.TradeAll}
	if v.Amount != "" {
		amount, err := decimal.NewFromString(v.Amount)
		if err != nil {
			return c, fmt.Errorf("could not parse amount %q: %w", v.Amount, err)
		}
		c.Amount = amount
	}
	if err := c.Check(); err != nil {
		return c, err
	}
	return c, nil
}

func fromDirection(c Direction) yamlDirection {
	return yamlDirection{
		SplitTrades: c.SplitTrades,
		TradeAll:    c.TradeAll,
		Amount:      c.Amount.String(),
	}
}

// Store keeps the trading configuration for both directions. When file path
// is non-empty, every change is written to the file.
type Store struct {
	file string

	mu sync.Mutex

	dirs [2]Direction

	changes *topic.Topic[*Change]
}

// New returns an in-memory store with the given initial configuration.
func New(ab, ba *Direction) *Store {
	s := &Store{changes: topic.New[*Change]()}
	if ab != nil {
		s.dirs[pair.AB] = *ab
	}
	if ba != nil {
		s.dirs[pair.BA] = *ba
	}
	return s
}

// Load reads the configuration file. A missing file is not an error and
// results in the default configuration, which is written on the first
// change.
func Load(file string) (*Store, error) {
	s := New(nil, nil)
	s.file = file

	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("could not parse config file %q: %w", file, err)
	}
	if s.dirs[pair.AB], err = yf.AB.toDirection(); err != nil {
		return nil, fmt.Errorf("invalid ab config: %w", err)
	}
	if s.dirs[pair.BA], err = yf.BA.toDirection(); err != nil {
		return nil, fmt.Errorf("invalid ba config: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	s.changes.Close()
}

func (s *Store) Get(d pair.Direction) Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[d]
}

// Set changes one setting of the direction and publishes the change.
func (s *Store) Set(d pair.Direction, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.dirs[d]
	if err := c.Set(key, value); err != nil {
		return err
	}
	old := s.dirs[d]
	s.dirs[d] = c
	if err := s.saveLocked(); err != nil {
		s.dirs[d] = old
		return err
	}
	slog.Info("trading config is updated", "direction", d, "key", key, "value", value)
	s.changes.Send(&Change{Direction: d, Key: key, Value: value, Config: c})
	return nil
}

// Subscribe returns a receiver for the configuration changes.
func (s *Store) Subscribe() (*topic.Receiver[*Change], error) {
	return topic.Subscribe(s.changes, 0, false)
}

func (s *Store) saveLocked() error {
	if s.file == "" {
		return nil
	}
	yf := &yamlFile{
		AB: fromDirection(s.dirs[pair.AB]),
		BA: fromDirection(s.dirs[pair.BA]),
	}
	data, err := yaml.Marshal(yf)
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	abspath, err := filepath.Abs(s.file)
	if err != nil {
		return fmt.Errorf("could not determine absolute path: %w", err)
	}
	fp, err := os.CreateTemp(filepath.Dir(abspath), ".config*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer os.Remove(fp.Name())
	defer fp.Close()

	if _, err := fp.Write(data); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}
	if err := fp.Sync(); err != nil {
		return fmt.Errorf("could not sync config file: %w", err)
	}
	if err := os.Rename(fp.Name(), abspath); err != nil {
		return fmt.Errorf("could not rename temp file to %q: %w", abspath, err)
	}
	return nil
}
