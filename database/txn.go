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
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/elections/database/types"
)

// ErrPartialCommit is returned when the blob store committed but the
// metadata store did not. The database reports a CommitTimestampError on
// the next open.
var ErrPartialCommit = errors.New("partial commit")

// Txn spans one transaction in each store. A read-write Txn stamps both
// stores with the same commit timestamp and commits the blob side first.
type Txn struct {
	db        *Database
	blob      types.Txn
	metadata  types.Txn
	mu        sync.Mutex
	done      bool
	readWrite bool
}

func newTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{
		db:        db,
		readWrite: readWrite,
	}
	if db.blob != nil {
		t.blob = db.blob.NewTransaction(readWrite)
	}
	if db.metadata != nil {
		t.metadata = db.metadata.Transaction()
	}
	return t
}

// Metadata returns the metadata half of the transaction
func (t *Txn) Metadata() types.Txn {
	return t.metadata
}

// Blob returns the blob half of the transaction
func (t *Txn) Blob() types.Txn {
	return t.blob
}

// Do runs fn and commits, or rolls back if fn fails
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	if !t.readWrite {
		return t.rollback()
	}
	if t.blob == nil && t.metadata == nil {
		t.done = true
		return types.ErrNoStoreAvailable
	}
	t.done = true
	if t.blob != nil && t.metadata != nil {
		if err := t.db.stampCommit(t, time.Now().UnixMilli()); err != nil {
			t.discard()
			return fmt.Errorf("stamp commit: %w", err)
		}
	}
	if t.blob != nil {
		if err := t.blob.Commit(); err != nil {
			if t.metadata != nil {
				_ = t.metadata.Rollback()
			}
			return fmt.Errorf("blob: %w", err)
		}
	}
	if t.metadata != nil {
		if err := t.metadata.Commit(); err != nil {
			t.db.logger.Error(
				"metadata commit failed after blob commit",
				"component", "database",
				"error", err,
			)
			_ = t.metadata.Rollback()
			return fmt.Errorf("%w: metadata: %w", ErrPartialCommit, err)
		}
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.discard()
}

func (t *Txn) discard() error {
	var err error
	if t.blob != nil {
		if rbErr := t.blob.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("blob rollback: %w", rbErr))
		}
	}
	if t.metadata != nil {
		if rbErr := t.metadata.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("metadata rollback: %w", rbErr))
		}
	}
	return err
}

// Release rolls back a transaction that was not committed. It is meant for
// defer and only logs failures.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
