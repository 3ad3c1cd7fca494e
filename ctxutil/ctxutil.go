// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"time"
)

// Sleep blocks for the duration or until the context is canceled.
func Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Retry calls f every interval until it succeeds or the context expires. The
// last error from f is returned when the context expires first.
func Retry(ctx context.Context, interval time.Duration, f func() error) error {
	err := f()
	for err != nil && ctx.Err() == nil {
		Sleep(ctx, interval)
		err = f()
	}
	return err
}

func RetryTimeout(ctx context.Context, interval, timeout time.Duration, f func() error) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Retry(tctx, interval, f)
}
