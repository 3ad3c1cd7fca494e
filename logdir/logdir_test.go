// Copyright (c) 2025 BVK Chaitanya

package logdir

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBackend(t *testing.T) {
	oldLimit, oldMax := FileSizeLimit, MaxFiles
	FileSizeLimit, MaxFiles = 1024, 3
	defer func() { FileSizeLimit, MaxFiles = oldLimit, oldMax }()

	dir := t.TempDir()
	b, err := New(dir, "tcbot")
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(b, nil))
	for i := 0; i < 200; i++ {
		logger.Info("hello world", "index", i, "padding", strings.Repeat("x", 32))
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "tcbot-*.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 || len(matches) > MaxFiles {
		t.Fatalf("want 1 to %d log files, got %d", MaxFiles, len(matches))
	}
	for _, m := range matches {
		finfo, err := os.Stat(m)
		if err != nil {
			t.Fatal(err)
		}
		if finfo.Size() > FileSizeLimit {
			t.Fatalf("log file %s size %d is over the limit", m, finfo.Size())
		}
	}

	if _, err := b.Write([]byte("closed\n")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed, got %v", err)
	}
}
