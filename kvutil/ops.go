// Copyright (c) 2025 BVK Chaitanya

package kvutil

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bvk/tcbot/gobs"
	"github.com/bvkgo/kv"
)

// Export writes the keys under the directory and their values as a stream of
// gob encoded KeyValue items. Directory "/" selects every key. It returns the
// number of items written.
func Export(ctx context.Context, r kv.Reader, w io.Writer, dir string) (int, error) {
	n := 0
	encoder := gob.NewEncoder(w)
	err := walk(ctx, r, dir, func(k string, v io.Reader) error {
		value, err := io.ReadAll(v)
		if err != nil {
			return fmt.Errorf("could not read value at key %q: %w", k, err)
		}
		if err := encoder.Encode(&gobs.KeyValue{Key: k, Value: value}); err != nil {
			return fmt.Errorf("could not encode item at key %q: %w", k, err)
		}
		n++
		return nil
	})
	return n, err
}

// BackupDB exports the keys under the directory into the file. File is
// replaced atomically, so an existing backup survives a failed export.
func BackupDB(ctx context.Context, db kv.Database, file, dir string) (status error) {
	abspath, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("could not determine absolute path: %w", err)
	}

	fp, err := os.CreateTemp(filepath.Dir(abspath), ".backup*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer func() {
		fp.Close()
		if status != nil {
			os.Remove(fp.Name())
		}
	}()

	bw := bufio.NewWriter(fp)
	var count int
	if err := kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) (err error) {
		count, err = Export(ctx, r, bw, dir)
		return err
	}); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("could not flush the backup file: %w", err)
	}
	if err := fp.Sync(); err != nil {
		return fmt.Errorf("could not sync the backup file: %w", err)
	}
	if err := os.Rename(fp.Name(), abspath); err != nil {
		return fmt.Errorf("could not rename temp file to %q: %w", abspath, err)
	}
	slog.Info("database backup is complete", "file", abspath, "keyspace", dir, "count", count)
	return nil
}

// Import replaces the keys under the directory with the items from a stream
// created by Export. Items outside the directory are skipped.
func Import(ctx context.Context, rw kv.ReadWriter, r io.Reader, dir string) error {
	stale, err := Keys(ctx, rw, dir)
	if err != nil {
		return err
	}
	for _, k := range stale {
		if err := rw.Delete(ctx, k); err != nil {
			return fmt.Errorf("could not delete key %q: %w", k, err)
		}
	}

	begin, end := PathRange(dir)
	inRange := func(k string) bool {
		return (begin == "" || k >= begin) && (end == "" || k < end)
	}
	decoder := gob.NewDecoder(r)
	for {
		var item gobs.KeyValue
		if err := decoder.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("could not decode backup item: %w", err)
		}
		if !inRange(item.Key) {
			continue
		}
		if err := rw.Set(ctx, item.Key, bytes.NewReader(item.Value)); err != nil {
			return fmt.Errorf("could not restore key %q: %w", item.Key, err)
		}
	}
}

func RestoreDB(ctx context.Context, db kv.Database, r io.Reader, dir string) error {
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return Import(ctx, rw, r, dir)
	})
}
