// Copyright (c) 2025 BVK Chaitanya

// Package logdir implements an io.Writer that keeps log messages in a
// directory of size-limited files.
//
// Files are named <logname>-<timestamp>.log. A new backend appends to the
// newest file created within the last ReuseInterval so that a crash-looping
// daemon doesn't fill the directory with tiny files. When a file crosses the
// size limit a new one is started and the oldest files beyond MaxFiles are
// removed.
package logdir

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	ReuseInterval = time.Hour

	FileSizeLimit int64 = 64 << 20

	MaxFiles = 20

	FileMode = os.FileMode(0600)
)

type Backend struct {
	mu sync.Mutex

	dirname string
	logname string

	fp   *os.File
	size int64
}

func New(dirname, logname string) (*Backend, error) {
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, fmt.Errorf("could not create log directory %q: %w", dirname, err)
	}
	b := &Backend{
		dirname: dirname,
		logname: logname,
	}
	if err := b.rotate(ReuseInterval); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return os.ErrClosed
	}
	err := b.fp.Close()
	b.fp = nil
	return err
}

func (b *Backend) fileName(at time.Time, truncate time.Duration) string {
	at = at.UTC()
	if truncate != 0 {
		at = at.Truncate(truncate)
	}
	return fmt.Sprintf("%s-%s.log", b.logname, at.Format("20060102-150405.000000000"))
}

func (b *Backend) rotate(truncate time.Duration) error {
	name := filepath.Join(b.dirname, b.fileName(time.Now(), truncate))
	fp, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	finfo, err := fp.Stat()
	if err != nil {
		fp.Close()
		return fmt.Errorf("could not stat log file: %w", err)
	}
	if finfo.Size() >= FileSizeLimit && truncate != 0 {
		fp.Close()
		return b.rotate(0)
	}
	if b.fp != nil {
		b.fp.Close()
	}
	b.fp, b.size = fp, finfo.Size()
	b.prune()
	return nil
}

// prune removes the oldest log files when there are more than MaxFiles.
func (b *Backend) prune() {
	if MaxFiles <= 0 {
		return
	}
	matches, err := filepath.Glob(filepath.Join(b.dirname, b.logname+"-*.log"))
	if err != nil || len(matches) <= MaxFiles {
		return
	}
	slices.SortFunc(matches, strings.Compare)
	for _, m := range matches[:len(matches)-MaxFiles] {
		os.Remove(m)
	}
}

func (b *Backend) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return 0, os.ErrClosed
	}
	if b.size+int64(len(data)) > FileSizeLimit {
		if err := b.rotate(0); err != nil {
			return 0, err
		}
	}
	n, err := b.fp.Write(data)
	b.size += int64(n)
	return n, err
}
