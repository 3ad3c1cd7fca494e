// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup

	var done atomic.Int32
	for i := 0; i < 50; i++ {
		cg.Go("waiter", func(ctx context.Context) {
			<-ctx.Done()
			done.Add(1)
		})
	}
	cg.Close()

	if v := done.Load(); v != 50 {
		t.Fatalf("want 50 goroutines done, got %d", v)
	}
	if err := context.Cause(cg.Context()); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed, got %v", err)
	}
}

func TestRetryTimeout(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryTimeout(ctx, time.Millisecond, time.Second, func() error {
		calls++
		if calls < 3 {
			return os.ErrNotExist
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("want success after 3 calls, got %v after %d", err, calls)
	}

	err = RetryTimeout(ctx, time.Millisecond, 10*time.Millisecond, func() error {
		return os.ErrNotExist
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
}
