// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"
	"strings"
)

func checkDirection(d string) error {
	switch strings.ToUpper(d) {
	case "AB", "BA":
		return nil
	}
	return fmt.Errorf("invalid direction %q: %w", d, os.ErrInvalid)
}

func (r *ConfigSetRequest) Check() error {
	if err := checkDirection(r.Direction); err != nil {
		return err
	}
	if len(r.Key) == 0 {
		return fmt.Errorf("config key cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

func (r *TradesRequest) Check() error {
	if len(r.Direction) != 0 {
		if err := checkDirection(r.Direction); err != nil {
			return err
		}
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
