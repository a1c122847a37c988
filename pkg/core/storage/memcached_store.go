package storage

import (
	"bytes"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch. Changes that are
// never persisted are simply dropped with the wrapper, which is what makes
// it usable as a discardable layer for a single state-changing call.
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
	if val, ok := s.mem[string(key)]; ok {
		s.mut.RUnlock()
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	s.mut.RUnlock()
	return s.ps.Get(key)
}

// Delete drops KV pair from the store.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface, it keeps deletions as
// markers so that they can later be flushed to the lower layer.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		s.mem[k] = v
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface. Items from this layer shadow the ones
// from the lower Store, deleted items are skipped.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	memList := s.MemoryStore.collect(rng)
	s.mut.RUnlock()

	var (
		i    int
		stop bool
	)
	// emitMem passes all cached items below the lower-level key to f.
	emitMem := func(limit []byte) bool {
		for ; i < len(memList); i++ {
			if limit != nil && bytes.Compare(memList[i].Key, limit) >= 0 {
				break
			}
			if memList[i].Value != nil && !f(memList[i].Key, memList[i].Value) {
				return false
			}
		}
		return true
	}
	s.ps.Seek(rng, func(k, v []byte) bool {
		if !emitMem(k) {
			stop = true
			return false
		}
		if i < len(memList) && bytes.Equal(memList[i].Key, k) {
			// Overridden (or deleted) in this layer, emitted by emitMem.
			return true
		}
		if !f(k, v) {
			stop = true
			return false
		}
		return true
	})
	if !stop {
		emitMem(nil)
	}
}

// Persist flushes all the changes made into the lower Store and returns the
// number of keys flushed (deletions included).
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
