// Copyright (c) 2025 BVK Chaitanya

// Package daemonize respawns the current program as a background process.
package daemonize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/bvk/tcbot/ctxutil"
	"golang.org/x/sys/unix"
)

// IsChild returns true if the current process is the background instance
// started by Daemonize with the same environment key.
func IsChild(envKey string) bool {
	return len(os.Getenv(envKey)) != 0
}

// Daemonize restarts the current program in the background with the same
// arguments. It must be called before opening databases or listeners.
//
// In the parent process, Daemonize waits till the check function reports the
// child as ready and exits the parent; it returns only on errors. In the
// child process, Daemonize detaches from the controlling terminal and
// returns nil. Standard input and outputs of the child are /dev/null, so the
// child is expected to log into files.
func Daemonize(ctx context.Context, envKey string, check func(ctx context.Context, child *os.Process) error) error {
	if IsChild(envKey) {
		if _, err := unix.Setsid(); err != nil {
			return fmt.Errorf("could not create a new session: %w", err)
		}
		return nil
	}

	child, err := spawn(envKey)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	if check != nil {
		for {
			ctxutil.Sleep(ctx, time.Second)
			if ctx.Err() != nil {
				return fmt.Errorf("background process %d did not initialize: %w", child.Pid, context.Cause(ctx))
			}
			if err := check(ctx, child); err != nil {
				slog.Warn("background process is not yet ready", "pid", child.Pid, "err", err)
				continue
			}
			break
		}
	}
	fmt.Printf("started background process %d\n", child.Pid)
	os.Exit(0)
	return nil
}

func spawn(envKey string) (*os.Process, error) {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return nil, fmt.Errorf("could not find the binary: %w", err)
	}
	binary, err = filepath.Abs(binary)
	if err != nil {
		return nil, fmt.Errorf("could not determine the binary path: %w", err)
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer devnull.Close()

	// Child runs in the same directory so that relative paths in the
	// arguments stay valid.
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	env := append(os.Environ(), envKey+"="+strconv.Itoa(os.Getpid()))
	attr := &os.ProcAttr{
		Dir:   wd,
		Env:   env,
		Files: []*os.File{devnull, devnull, devnull},
	}
	child, err := os.StartProcess(binary, os.Args, attr)
	if err != nil {
		return nil, fmt.Errorf("could not start background process: %w", err)
	}
	return child, nil
}
