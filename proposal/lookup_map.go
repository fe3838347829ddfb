// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proposal

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// KVStore is the key-value contract a proposal needs from its storage.
// Implementations backed by a database must run every call of one proposal
// operation inside a single transaction.
type KVStore interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key []byte, val []byte) error
	Delete(key []byte) error
}

// MemoryStore is a KVStore that keeps everything in a map
type MemoryStore struct {
	data map[string][]byte
	mu   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (m *MemoryStore) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(val), true, nil
}

func (m *MemoryStore) Set(key []byte, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = slices.Clone(val)
	return nil
}

func (m *MemoryStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// Len returns the number of keys in the store
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// LookupMap is a typed view over a KVStore. All keys are namespaced by the
// map prefix and values are CBOR encoded.
type LookupMap[K any, V any] struct {
	store  KVStore
	prefix []byte
	keyFn  func(K) []byte
}

func NewLookupMap[K any, V any](
	store KVStore,
	prefix []byte,
	keyFn func(K) []byte,
) *LookupMap[K, V] {
	return &LookupMap[K, V]{
		store:  store,
		prefix: slices.Clone(prefix),
		keyFn:  keyFn,
	}
}

func (m *LookupMap[K, V]) key(k K) []byte {
	return slices.Concat(m.prefix, m.keyFn(k))
}

// Get returns the value stored for k and whether it was present
func (m *LookupMap[K, V]) Get(k K) (V, bool, error) {
	var ret V
	data, found, err := m.store.Get(m.key(k))
	if err != nil || !found {
		return ret, false, err
	}
	if _, err := cbor.Decode(data, &ret); err != nil {
		return ret, false, fmt.Errorf("decode lookup map value: %w", err)
	}
	return ret, true, nil
}

func (m *LookupMap[K, V]) ContainsKey(k K) (bool, error) {
	_, found, err := m.store.Get(m.key(k))
	return found, err
}

// Insert stores v for k and returns the previous value, if any
func (m *LookupMap[K, V]) Insert(k K, v V) (V, bool, error) {
	prev, found, err := m.Get(k)
	if err != nil {
		return prev, false, err
	}
	data, err := cbor.Encode(&v)
	if err != nil {
		return prev, false, fmt.Errorf("encode lookup map value: %w", err)
	}
	if err := m.store.Set(m.key(k), data); err != nil {
		return prev, false, err
	}
	return prev, found, nil
}

// Remove deletes k and returns the value it held, if any
func (m *LookupMap[K, V]) Remove(k K) (V, bool, error) {
	prev, found, err := m.Get(k)
	if err != nil || !found {
		return prev, false, err
	}
	if err := m.store.Delete(m.key(k)); err != nil {
		return prev, false, err
	}
	return prev, true, nil
}

// TokenKey encodes a token ID as a fixed-width big-endian key
func TokenKey(token TokenId) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, uint64(token))
	return ret
}

func AccountKey(account AccountId) []byte {
	return []byte(account)
}
