// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"

	"github.com/bvk/tcbot/kvutil"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DBPath is the path of the database handler in the tcbot server.
const DBPath = "/db"

// DBFlags select one of the three database sources: a local badger
// database, a backup file loaded into memory or the database of a running
// server over http.
type DBFlags struct {
	ClientFlags

	dataDir    string
	fromBackup string

	backupBefore string
}

func (f *DBFlags) SetFlags(fset *flag.FlagSet) {
	f.ClientFlags.SetFlags(fset)
	fset.StringVar(&f.dataDir, "db-dir", "", "Path to a local database directory; must not be in use")
	fset.StringVar(&f.fromBackup, "from-backup", "", "Path to a database backup file")
	fset.StringVar(&f.backupBefore, "backup-before", "", "Path to a file to receive db backup before cmd is run")
}

// IsGoodKey accepts absolute, clean key paths.
func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}

func (f *DBFlags) GetDatabase(ctx context.Context) (db kv.Database, closer func(), status error) {
	if len(f.dataDir) != 0 && len(f.fromBackup) != 0 {
		return nil, nil, fmt.Errorf("db-dir and from-backup flags are exclusive: %w", os.ErrInvalid)
	}
	defer func() {
		if status == nil && len(f.backupBefore) != 0 {
			if err := kvutil.BackupDB(ctx, db, f.backupBefore, "/"); err != nil {
				closer()
				db, closer, status = nil, nil, fmt.Errorf("could not take a db backup: %w", err)
			}
		}
	}()

	if len(f.fromBackup) != 0 {
		fp, err := os.Open(f.fromBackup)
		if err != nil {
			return nil, nil, err
		}
		defer fp.Close()

		mdb := kvmemdb.New()
		if err := kvutil.RestoreDB(ctx, mdb, bufio.NewReader(fp), "/"); err != nil {
			return nil, nil, fmt.Errorf("could not load backup file %q: %w", f.fromBackup, err)
		}
		return mdb, func() {}, nil
	}

	if len(f.dataDir) != 0 {
		bdb, err := badger.Open(badger.DefaultOptions(f.dataDir).WithLogger(nil))
		if err != nil {
			return nil, nil, fmt.Errorf("could not open the database: %w", err)
		}
		closer := func() {
			if err := bdb.Close(); err != nil {
				slog.Warn("could not close the database", "err", err)
			}
		}
		return kvbadger.New(bdb, IsGoodKey), closer, nil
	}

	addrURL, err := f.ClientFlags.Endpoint("http", DBPath)
	if err != nil {
		return nil, nil, err
	}
	return kvhttp.New(addrURL, &http.Client{Timeout: f.ClientFlags.Timeout}), func() {}, nil
}
