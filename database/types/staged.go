// Copyright 2025 Blink Labs Software
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

package types

import (
	"bytes"
	"sync"
)

type stagedWrite struct {
	value   []byte
	deleted bool
}

// StagedWrites buffers the writes of a transaction for blob backends that
// have no native transactions. Nothing reaches the backend until Apply, so a
// rollback only needs to drop the buffer.
type StagedWrites struct {
	mu     sync.Mutex
	writes map[string]stagedWrite
	order  []string
}

func NewStagedWrites() *StagedWrites {
	return &StagedWrites{
		writes: make(map[string]stagedWrite),
	}
}

func (s *StagedWrites) Set(key, val []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage(string(key), stagedWrite{value: bytes.Clone(val)})
}

func (s *StagedWrites) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage(string(key), stagedWrite{deleted: true})
}

func (s *StagedWrites) stage(key string, w stagedWrite) {
	if _, ok := s.writes[key]; !ok {
		s.order = append(s.order, key)
	}
	s.writes[key] = w
}

// Get returns the pending value for a key. The found flag reports whether
// the key has a pending write at all, and deleted whether that write is a
// delete.
func (s *StagedWrites) Get(key []byte) (val []byte, deleted bool, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.writes[string(key)]
	if !ok {
		return nil, false, false
	}
	if w.deleted {
		return nil, true, true
	}
	return bytes.Clone(w.value), false, true
}

func (s *StagedWrites) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Apply writes the final state of every staged key to the backend, in the
// order the keys were first written. It stops at the first error.
func (s *StagedWrites) Apply(
	put func(key string, val []byte) error,
	del func(key string) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.order {
		w := s.writes[key]
		if w.deleted {
			if err := del(key); err != nil {
				return err
			}
			continue
		}
		if err := put(key, w.value); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops all pending writes
func (s *StagedWrites) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.writes)
	s.order = nil
}
