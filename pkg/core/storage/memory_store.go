package storage

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of a Store, mainly
// used for testing. Do not use MemoryStore in production.
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
	return &MemoryStore{
		mem: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok && val != nil {
		return val, nil
	}
	return nil, ErrKeyNotFound
}

// Put puts a key-value pair into the store. It's intended for tests, the
// ledger itself only writes through PutChangeSet.
func (s *MemoryStore) Put(key, value []byte) {
	s.mut.Lock()
	s.mem[string(key)] = value
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface. Never returns an error.
func (s *MemoryStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		if v == nil {
			delete(s.mem, k)
		} else {
			s.mem[k] = v
		}
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface.
func (s *MemoryStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	s.seek(rng, func(k, v []byte) bool {
		if v == nil {
			return true
		}
		return f(k, v)
	})
	s.mut.RUnlock()
}

// seek is an internal unlocked implementation of Seek. It passes deleted
// (nil-valued) items to f as well.
func (s *MemoryStore) seek(rng SeekRange, f func(k, v []byte) bool) {
	for _, kv := range s.collect(rng) {
		if !f(kv.Key, kv.Value) {
			break
		}
	}
}

// collect returns all items (deleted included) matching rng sorted by key.
func (s *MemoryStore) collect(rng SeekRange) []KeyValue {
	var (
		sPrefix = string(rng.Prefix)
		lPrefix = len(sPrefix)
		sStart  = string(rng.Start)
		memList []KeyValue
	)
	for k, v := range s.mem {
		if strings.HasPrefix(k, sPrefix) && (len(sStart) == 0 || strings.Compare(k[lPrefix:], sStart) >= 0) {
			memList = append(memList, KeyValue{
				Key:   []byte(k),
				Value: v,
			})
		}
	}
	sort.Slice(memList, func(i, j int) bool {
		return bytes.Compare(memList[i].Key, memList[j].Key) < 0
	})
	return memList
}

// Close implements Store interface and clears up memory. Never returns an
// error.
func (s *MemoryStore) Close() error {
	s.mut.Lock()
	s.mem = nil
	s.mut.Unlock()
	return nil
}
