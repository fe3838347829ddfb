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

package database

import (
	"errors"

	"github.com/blinklabs-io/elections/database/plugin/blob"
	"github.com/blinklabs-io/elections/database/types"
	"github.com/blinklabs-io/elections/proposal"
)

// blobKVStore runs proposal storage operations against the blob half of a
// transaction
type blobKVStore struct {
	blob blob.BlobStore
	txn  types.Txn
}

// KVStore adapts the blob transaction of txn to proposal.KVStore. Every
// read and write of the returned store is part of txn.
func (d *Database) KVStore(txn *Txn) proposal.KVStore {
	return &blobKVStore{
		blob: d.blob,
		txn:  txn.Blob(),
	}
}

func (s *blobKVStore) Get(key []byte) ([]byte, bool, error) {
	val, err := s.blob.Get(s.txn, key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (s *blobKVStore) Set(key []byte, val []byte) error {
	return s.blob.Set(s.txn, key, val)
}

func (s *blobKVStore) Delete(key []byte) error {
	return s.blob.Delete(s.txn, key)
}
