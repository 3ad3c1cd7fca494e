// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"github.com/bvk/tcbot/supervisor"
)

type Options struct {
	// AutoStart starts trading as soon as the server is created.
	AutoStart bool

	Supervisor supervisor.Options
}

func (v *Options) setDefaults() {
}

func (v *Options) Check() error {
	return nil
}
