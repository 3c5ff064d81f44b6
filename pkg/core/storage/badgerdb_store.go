package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
)

// BadgerDBStore is the storage implementation backed by BadgerDB.
type BadgerDBStore struct {
	db *badger.DB
}

// NewBadgerDBStore returns a new BadgerDBStore object that will
// initialize the database found at the given directory.
func NewBadgerDBStore(cfg dbconfig.BadgerDBOptions) (*BadgerDBStore, error) {
	var opts badger.Options

	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("badger directory is not specified")
		}
		if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("could not create dir for BadgerDB: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(nil).WithSyncWrites(cfg.SyncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB instance: %w", err)
	}
	return &BadgerDBStore{db: db}, nil
}

// Get implements the Store interface.
func (b *BadgerDBStore) Get(key []byte) ([]byte, error) {
	var val []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

// PutChangeSet implements the Store interface. The change set is applied in
// a single write batch.
func (b *BadgerDBStore) PutChangeSet(puts map[string][]byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for k, v := range puts {
			var err error
			if v != nil {
				err = txn.Set([]byte(k), v)
			} else {
				err = txn.Delete([]byte(k))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Seek implements the Store interface.
func (b *BadgerDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	rang := seekRangeToPrefixes(rng)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = rng.Prefix
		opts.Reverse = rng.Backwards
		it := txn.NewIterator(opts)
		defer it.Close()

		var seekTo = rang.Start
		if rng.Backwards {
			seekTo = lastKeyBefore(rang.Limit)
		}
		for it.Seek(seekTo); it.ValidForPrefix(rng.Prefix); it.Next() {
			item := it.Item()
			k := item.Key()
			if rng.Backwards && len(rang.Limit) != 0 && bytes.Compare(k, rang.Limit) >= 0 {
				continue
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !f(k, v) {
				break
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// lastKeyBefore returns the key to start reverse iteration from: reverse
// iterators seek to the largest key less or equal to the given one. Empty
// limit means the end of the key space.
func lastKeyBefore(limit []byte) []byte {
	if len(limit) == 0 {
		return bytes.Repeat([]byte{0xff}, 64)
	}
	return limit
}

// Close releases all db resources.
func (b *BadgerDBStore) Close() error {
	return b.db.Close()
}
