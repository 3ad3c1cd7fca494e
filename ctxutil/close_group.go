// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
)

// CloseGroup runs background goroutines that are canceled together when the
// group is closed. Zero value is ready to use.
type CloseGroup struct {
	once sync.Once

	ctx    context.Context
	cancel context.CancelCauseFunc

	wg sync.WaitGroup
}

func (cg *CloseGroup) lazyInit() {
	cg.ctx, cg.cancel = context.WithCancelCause(context.Background())
}

// Close cancels the group context with os.ErrClosed and waits for all
// goroutines started by Go to return.
func (cg *CloseGroup) Close() {
	cg.once.Do(cg.lazyInit)
	cg.cancel(os.ErrClosed)
	cg.wg.Wait()
}

// Context returns the group context, which is canceled by Close.
func (cg *CloseGroup) Context() context.Context {
	cg.once.Do(cg.lazyInit)
	return cg.ctx
}

// Go runs f in a new goroutine of the group. Name identifies the goroutine
// in the logs when it panics or returns before the group is closed.
func (cg *CloseGroup) Go(name string, f func(ctx context.Context)) {
	cg.once.Do(cg.lazyInit)
	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("goroutine panicked", "name", name, "panic", r, "stack", string(debug.Stack()))
				panic(r)
			}
			if cg.ctx.Err() == nil {
				slog.Debug("goroutine returned before close", "name", name)
			}
		}()
		f(cg.ctx)
	}()
}
