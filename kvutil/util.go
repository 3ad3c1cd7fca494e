// Copyright (c) 2025 BVK Chaitanya

// Package kvutil stores gob encoded values in a kv database and treats
// slash separated keys as directories.
package kvutil

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/bvkgo/kv"
)

// Get reads the gob-encoded value at the given key. Returns an error wrapping
// os.ErrNotExist when the key is missing.
func Get[T any](ctx context.Context, g kv.Getter, key string) (*T, error) {
	r, err := g.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("could not read key %q: %w", key, err)
	}
	return decode[T](key, r)
}

func Set[T any](ctx context.Context, s kv.Setter, key string, value *T) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("could not encode value for key %q: %w", key, err)
	}
	return s.Set(ctx, key, &buf)
}

func GetDB[T any](ctx context.Context, db kv.Database, key string) (value *T, err error) {
	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		value, err = Get[T](ctx, r, key)
		return err
	})
	return value, err
}

func SetDB[T any](ctx context.Context, db kv.Database, key string, value *T) error {
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return Set(ctx, rw, key, value)
	})
}

func decode[T any](key string, r io.Reader) (*T, error) {
	v := new(T)
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return nil, fmt.Errorf("could not decode value at key %q: %w", key, err)
	}
	return v, nil
}

// PathRange returns the key range covering every key under the directory.
// Directory "/" selects the whole database, which is the empty range.
func PathRange(dir string) (begin, end string) {
	dir = path.Clean(dir)
	if dir == "/" {
		return "", ""
	}
	return dir + "/", dir + "0"
}

// walk calls fn for every key under the directory in ascending key order.
func walk(ctx context.Context, r kv.Reader, dir string, fn func(key string, value io.Reader) error) error {
	begin, end := PathRange(dir)
	it, err := r.Ascend(ctx, begin, end)
	if err != nil {
		return fmt.Errorf("could not scan %q: %w", dir, err)
	}
	defer kv.Close(it)

	k, v, err := it.Fetch(ctx, false)
	for ; err == nil; k, v, err = it.Fetch(ctx, true) {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not complete scan of %q: %w", dir, err)
	}
	return nil
}

// List decodes all values under the directory in ascending key order.
func List[T any](ctx context.Context, r kv.Reader, dir string) ([]*T, error) {
	var values []*T
	err := walk(ctx, r, dir, func(k string, v io.Reader) error {
		gv, err := decode[T](k, v)
		if err != nil {
			return err
		}
		values = append(values, gv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func ListDB[T any](ctx context.Context, db kv.Database, dir string) (values []*T, err error) {
	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		values, err = List[T](ctx, r, dir)
		return err
	})
	return values, err
}

// Keys returns the keys under the directory in ascending order.
func Keys(ctx context.Context, r kv.Reader, dir string) ([]string, error) {
	var keys []string
	err := walk(ctx, r, dir, func(k string, _ io.Reader) error {
		keys = append(keys, k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
