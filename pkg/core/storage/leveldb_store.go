package storage

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBStore is the default persistent Store backed by goleveldb.
type LevelDBStore struct {
	db   *leveldb.DB
	path string
}

// NewLevelDBStore opens (or creates unless ReadOnly is set) the database at
// cfg.DataDirectoryPath.
func NewLevelDBStore(cfg dbconfig.LevelDBOptions) (*LevelDBStore, error) {
	opts := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		ReadOnly:               cfg.ReadOnly,
		ErrorIfMissing:         cfg.ReadOnly,
		WriteBuffer:            max(cfg.WriteBufferSize, 0),
		BlockCacheCapacity:     max(cfg.BlockCacheCapacity, 0),
		OpenFilesCacheCapacity: max(cfg.OpenFilesCacheCapacity, 0),
	}
	db, err := leveldb.OpenFile(cfg.DataDirectoryPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB instance: %w", err)
	}
	return &LevelDBStore{db: db, path: cfg.DataDirectoryPath}, nil
}

// Get implements the Store interface.
func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

// PutChangeSet implements the Store interface. The change set is written as
// a single batch.
func (s *LevelDBStore) PutChangeSet(puts map[string][]byte) error {
	batch := new(leveldb.Batch)
	for k, v := range puts {
		if v == nil {
			batch.Delete([]byte(k))
		} else {
			batch.Put([]byte(k), v)
		}
	}
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Seek implements the Store interface.
func (s *LevelDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	iter := s.db.NewIterator(seekRangeToPrefixes(rng), nil)
	defer iter.Release()

	ok, next := iter.First, iter.Next
	if rng.Backwards {
		ok, next = iter.Last, iter.Prev
	}
	for valid := ok(); valid; valid = next() {
		if !f(iter.Key(), iter.Value()) {
			return
		}
	}
}

// Close implements the Store interface.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
