// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"fmt"
	"time"
)

type Options struct {
	// ReadyTimeout is the maximum time to wait for a new listener to serve
	// the readiness probe.
	ReadyTimeout time.Duration

	ReadyRetryInterval time.Duration
}

func (v *Options) setDefaults() {
	if v.ReadyTimeout == 0 {
		v.ReadyTimeout = 10 * time.Second
	}
	if v.ReadyRetryInterval == 0 {
		v.ReadyRetryInterval = 100 * time.Millisecond
	}
}

func (v *Options) Check() error {
	if v.ReadyRetryInterval > v.ReadyTimeout {
		return fmt.Errorf("ready retry interval cannot be larger than the ready timeout")
	}
	return nil
}
