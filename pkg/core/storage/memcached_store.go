package storage

import (
	"bytes"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch.
type MemCachedStore struct {
	MemoryStore

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: *NewMemoryStore(),
		ps:          lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	return s.ps.Get(key)
}

// Put puts new KV pair into the store.
func (s *MemCachedStore) Put(key, value []byte) {
	s.mut.Lock()
	put(s.mem, string(key), value)
	s.mut.Unlock()
}

// Delete drops KV pair from the store. Never returns an error.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	put(s.mem, string(key), nil)
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface. It only updates the cache,
// use Persist to flush it. Never returns an error.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k := range puts {
		put(s.mem, k, puts[k])
	}
	s.mut.Unlock()
	return nil
}

// GetChangeSet returns the accumulated changes (nil values are deletions).
func (s *MemCachedStore) GetChangeSet() map[string][]byte {
	s.mut.RLock()
	defer s.mut.RUnlock()

	res := make(map[string][]byte, len(s.mem))
	for k, v := range s.mem {
		res[k] = v
	}
	return res
}

// Seek implements the Store interface. Cached items take precedence over
// the lower store ones, deleted items are skipped.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	var (
		memList = s.collect(rng, true)
		i       int
		done    bool
		less    = func(a, b []byte) bool {
			if rng.Backwards {
				return bytes.Compare(a, b) > 0
			}
			return bytes.Compare(a, b) < 0
		}
		// emit passes cached item to f unless it's a deletion marker.
		emit = func(kv KeyValue) bool {
			if kv.Value == nil {
				return true
			}
			return f(kv.Key, kv.Value)
		}
	)
	s.ps.Seek(rng, func(k, v []byte) bool {
		for ; i < len(memList) && less(memList[i].Key, k); i++ {
			if !emit(memList[i]) {
				done = true
				return false
			}
		}
		if i < len(memList) && bytes.Equal(memList[i].Key, k) {
			kv := memList[i]
			i++
			if !emit(kv) {
				done = true
				return false
			}
			return true
		}
		if !f(k, v) {
			done = true
			return false
		}
		return true
	})
	if done {
		return
	}
	for ; i < len(memList); i++ {
		if !emit(memList[i]) {
			return
		}
	}
}

// Persist flushes all the MemoryStore contents into the (supposedly) persistent
// store ps in a single PutChangeSet call. It returns the number of keys
// flushed.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	keys := len(s.mem)
	if keys == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(s.mem)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return keys, nil
}

// Close implements Store interface, clears up memory and closes the lower layer
// Store.
func (s *MemCachedStore) Close() error {
	// It's always successful.
	_ = s.MemoryStore.Close()
	return s.ps.Close()
}
