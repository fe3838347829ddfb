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
	"fmt"
)

// CommitTimestampError is returned by New when the blob and metadata stores
// were last committed at different times. Both carry the timestamp of every
// read-write transaction, so they only disagree after an interrupted commit
// or when one of the stores was swapped out.
type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"blob and metadata stores out of sync: metadata committed at %d, blob at %d",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

// BlobAhead reports whether the blob store holds a commit that the metadata
// store lacks. The blob side commits first, so this is what a failed
// metadata commit leaves behind.
func (e CommitTimestampError) BlobAhead() bool {
	return e.BlobTimestamp > e.MetadataTimestamp
}

// checkCommitTimestamp compares the last commit of both stores. Two empty
// stores agree at zero.
func (d *Database) checkCommitTimestamp() error {
	metadataTs, err := d.metadata.GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("read metadata commit timestamp: %w", err)
	}
	blobTs, err := d.blob.GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("read blob commit timestamp: %w", err)
	}
	if metadataTs != blobTs {
		return CommitTimestampError{
			MetadataTimestamp: metadataTs,
			BlobTimestamp:     blobTs,
		}
	}
	return nil
}

// stampCommit writes the same commit timestamp into both halves of txn
func (d *Database) stampCommit(txn *Txn, ts int64) error {
	if err := d.metadata.SetCommitTimestamp(ts, txn.metadata); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if err := d.blob.SetCommitTimestamp(ts, txn.blob); err != nil {
		return fmt.Errorf("blob: %w", err)
	}
	return nil
}
