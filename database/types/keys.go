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
	"encoding/binary"
	"encoding/hex"
)

const (
	ProposalBlobKeyPrefix        = "p"
	ProposalStorageBlobKeyPrefix = "s"
	CommitTimestampBlobKey       = "metadata_commit_timestamp"
)

func BlobKeyUint32ToBytes(input uint32) []byte {
	ret := make([]byte, 4)
	binary.BigEndian.PutUint32(ret, input)
	return ret
}

// ProposalBlobKey returns the key of the encoded proposal header
func ProposalBlobKey(proposalId uint32) []byte {
	key := []byte(ProposalBlobKeyPrefix)
	key = append(key, BlobKeyUint32ToBytes(proposalId)...)
	return key
}

// ProposalStorageKey returns the prefix under which the voter maps of a
// proposal are stored. It has a fixed width so that no proposal prefix is a
// prefix of another.
func ProposalStorageKey(proposalId uint32) []byte {
	key := []byte(ProposalStorageBlobKeyPrefix)
	key = append(key, BlobKeyUint32ToBytes(proposalId)...)
	return key
}

// BlobObjectName returns the name under which a blob key is stored in an
// object store. Keys are binary while object names must be valid UTF-8.
func BlobObjectName(key []byte) string {
	return hex.EncodeToString(key)
}
