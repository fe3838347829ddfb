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
	"encoding/hex"
	"fmt"
	"slices"
)

// ValidateVote checks a ballot against the proposal type, the credit limit
// and the list of valid candidates. validCandidates must be sorted.
func ValidateVote(
	typ ProposalType,
	vote Vote,
	maxCredits uint16,
	validCandidates []AccountId,
) error {
	if typ == SetupPackage && len(vote) == 0 {
		return newRejectedError("setup package vote must be non empty")
	}
	if len(vote) > int(maxCredits) {
		return newRejectedError(
			fmt.Sprintf("max vote is %d seats", maxCredits),
		)
	}
	voteFor := make(map[AccountId]struct{}, len(vote))
	for _, candidate := range vote {
		if _, ok := voteFor[candidate]; ok {
			return &RejectedError{
				Reason: "double vote for the same option",
				Err:    ErrDuplicateCandidate,
			}
		}
		voteFor[candidate] = struct{}{}
		if _, found := slices.BinarySearch(validCandidates, candidate); !found {
			return newRejectedError("vote for unknown option")
		}
	}
	return nil
}

// AssertHashHexString decodes a 64 character hex string into its 32 raw bytes
func AssertHashHexString(s string) ([32]byte, error) {
	var ret [32]byte
	if len(s) != 64 {
		return ret, newRejectedError("policy must be a 64byte hex string")
	}
	if _, err := hex.Decode(ret[:], []byte(s)); err != nil {
		return [32]byte{}, &RejectedError{
			Reason: "policy must be a proper hex string",
			Err:    err,
		}
	}
	return ret, nil
}
