package storage

import (
	"bytes"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps everything in a map. It's used for tests and for the
// "inmemory" database type, all data is lost on Close.
type MemoryStore struct {
	mut sync.RWMutex
	mem map[string][]byte
}

// KeyValue represents key-value pair.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// NewMemoryStore creates a new MemoryStore object.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mem: make(map[string][]byte)}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	val := s.mem[string(key)]
	s.mut.RUnlock()
	if val == nil {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

// put stores value under key, nil value is kept as a deletion marker. The
// caller holds the lock.
func put(m map[string][]byte, key string, value []byte) {
	m[key] = value
}

// PutChangeSet implements the Store interface. Never returns an error.
func (s *MemoryStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	defer s.mut.Unlock()
	for k, v := range puts {
		if v == nil {
			delete(s.mem, k)
			continue
		}
		put(s.mem, k, v)
	}
	return nil
}

// Seek implements the Store interface.
func (s *MemoryStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	items := s.collect(rng, false)
	s.mut.RUnlock()
	for _, kv := range items {
		if !f(kv.Key, kv.Value) {
			return
		}
	}
}

// inRange checks whether key matches rng.
func inRange(rng SeekRange, key string) bool {
	rest, ok := strings.CutPrefix(key, string(rng.Prefix))
	if !ok {
		return false
	}
	if len(rng.Start) == 0 {
		return true
	}
	c := strings.Compare(rest, string(rng.Start))
	if rng.Backwards {
		return c <= 0
	}
	return c >= 0
}

// collect returns items matching rng in the seek order, deletion markers
// included if withDeleted is set. The caller holds the lock.
func (s *MemoryStore) collect(rng SeekRange, withDeleted bool) []KeyValue {
	var res []KeyValue
	for k, v := range s.mem {
		if (v == nil && !withDeleted) || !inRange(rng, k) {
			continue
		}
		res = append(res, KeyValue{Key: []byte(k), Value: v})
	}
	slices.SortFunc(res, func(a, b KeyValue) int {
		c := bytes.Compare(a.Key, b.Key)
		if rng.Backwards {
			return -c
		}
		return c
	})
	return res
}

// Close implements the Store interface and drops all data. Never returns an
// error.
func (s *MemoryStore) Close() error {
	s.mut.Lock()
	s.mem = nil
	s.mut.Unlock()
	return nil
}
