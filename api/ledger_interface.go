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

package api

import (
	"context"

	"github.com/blinklabs-io/elections/database/models"
	"github.com/blinklabs-io/elections/ledger"
	"github.com/blinklabs-io/elections/proposal"
)

// Ledger is the interface that the API server uses to read and change
// election state. It is implemented by *ledger.Ledger and decouples the HTTP
// handlers from storage, so that tests can use a mock.
type Ledger interface {
	// Now returns the current time in milliseconds
	Now() uint64

	CreateProposal(
		ctx context.Context,
		authority string,
		spec ledger.ProposalSpec,
	) (uint32, error)

	Proposal(proposalId uint32) (proposal.View, error)

	// Proposals returns a page of proposals and the total count
	Proposals(
		offset int,
		limit int,
		desc bool,
	) ([]proposal.View, int64, error)

	Status(proposalId uint32, now uint64) (proposal.Status, error)

	Vote(
		ctx context.Context,
		proposalId uint32,
		voter proposal.AccountId,
		proof ledger.VoteProof,
		vote proposal.Vote,
	) error

	RevokeVote(
		ctx context.Context,
		proposalId uint32,
		token proposal.TokenId,
		authority string,
	) error

	// Ballot returns the candidates a token voted for
	Ballot(
		proposalId uint32,
		token proposal.TokenId,
	) ([]proposal.AccountId, bool, error)

	// Votes returns a page of the vote log and the total count
	Votes(
		proposalId uint32,
		offset int,
		limit int,
	) ([]models.Vote, int64, error)

	AcceptPolicy(
		ctx context.Context,
		voter proposal.AccountId,
		policyHex string,
	) error
}

var _ Ledger = (*ledger.Ledger)(nil)
