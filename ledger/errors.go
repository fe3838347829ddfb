// Copyright 2024 Blink Labs Software
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

package ledger

import (
	"errors"

	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/proposal"
)

var (
	ErrProposalNotFound  = models.ErrProposalNotFound
	ErrUnauthorized      = errors.New("caller is not an authority")
	ErrPolicyNotAccepted = errors.New("voter has not accepted the current policy")
	ErrPolicyMismatch    = errors.New("policy does not match the current policy")
)

// rejectionReason returns the metric label for a failed vote
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, proposal.ErrWrongIssuer):
		return "wrong_issuer"
	case errors.Is(err, proposal.ErrNoSBTs):
		return "no_sbts"
	case errors.Is(err, proposal.ErrDoubleVote):
		return "double_vote"
	case errors.Is(err, proposal.ErrDuplicateCandidate):
		return "duplicate_candidate"
	case errors.Is(err, proposal.ErrRejected):
		return "rejected"
	case errors.Is(err, ErrPolicyNotAccepted):
		return "policy"
	case errors.Is(err, ErrProposalNotFound):
		return "not_found"
	default:
		return "error"
	}
}
