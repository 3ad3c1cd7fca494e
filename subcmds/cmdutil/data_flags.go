// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/server"
	"github.com/bvk/tcbot/subcmds/defaults"
)

// DataFlags locate the data directory and the files inside it.
type DataFlags struct {
	dataDir     string
	secretsFile string
}

func (f *DataFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", defaults.DataDir(), "path to the data directory")
	fset.StringVar(&f.secretsFile, "secrets-file", "", "path to the secrets file; defaults to secrets.json in the data directory")
}

// DataDir returns the absolute path of the data directory after creating it
// if necessary.
func (f *DataFlags) DataDir() (string, error) {
	if err := os.MkdirAll(f.dataDir, 0700); err != nil {
		return "", fmt.Errorf("could not create data directory %q: %w", f.dataDir, err)
	}
	dir, err := filepath.Abs(f.dataDir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", f.dataDir, err)
	}
	return dir, nil
}

func (f *DataFlags) SecretsPath() (string, error) {
	if len(f.secretsFile) != 0 {
		return f.secretsFile, nil
	}
	dir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "secrets.json"), nil
}

// Secrets loads the secrets file. A missing file results in empty secrets.
func (f *DataFlags) Secrets() (*server.Secrets, error) {
	fpath, err := f.SecretsPath()
	if err != nil {
		return nil, err
	}
	secrets, err := server.SecretsFromFile(fpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return new(server.Secrets), nil
		}
		return nil, err
	}
	return secrets, nil
}

// PairFlags name the two currencies.
type PairFlags struct {
	currencyA string
	currencyB string
}

func (f *PairFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.currencyA, "currency-a", "TIX", "name of the first currency; rates are amounts of this currency")
	fset.StringVar(&f.currencyB, "currency-b", "ROBUX", "name of the second currency")
}

func (f *PairFlags) Pair() (pair.Pair, error) {
	p := pair.Pair{A: pair.Currency(f.currencyA), B: pair.Currency(f.currencyB)}
	if err := p.Check(); err != nil {
		return p, err
	}
	return p, nil
}
